package dirwatch

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
)

// SortBy selects the FileStat field a scan's events are ordered by.
type SortBy string

// Sort keys.
const (
	SortByPath  SortBy = "path"
	SortByMTime SortBy = "mtime"
	SortBySize  SortBy = "size"
)

// OrderBy selects the sort direction.
type OrderBy string

// Sort directions.
const (
	OrderAscending  OrderBy = "ascending"
	OrderDescending OrderBy = "descending"
)

// Backend names accepted by Options.Backend.
const (
	BackendPoll     = "poll"
	BackendFsnotify = "fsnotify"
)

// Options configures a Watcher. A zero value plus Dir is usable; everything
// else has defaults. Invalid options reject construction; a misconfigured
// watcher fails fast rather than at runtime.
type Options struct {
	// Dir is the root of the watched directory tree.
	Dir string `validate:"required"`

	// Globs are the include patterns, slash-separated and relative to Dir.
	// Defaults to ["**"] (every regular file under Dir).
	Globs []string

	// IgnoreGlobs are subtracted from the include set.
	IgnoreGlobs []string

	// Interval is the scanner's polling interval. Defaults to 30s.
	Interval time.Duration `validate:"gt=0"`

	// StableThreshold enables stable events when positive: a path must be
	// observed unchanged this many consecutive times after an add/modify
	// before a single stable event emits. Zero disables the feature.
	StableThreshold int `validate:"gte=0"`

	// PreLoad seeds the state table from an initial scan at Start without
	// emitting added events for pre-existing files.
	PreLoad bool

	// PersistPath, when set, persists the state table on Stop and reloads
	// it on Start. A ".db" or ".bolt" extension selects the bbolt store;
	// anything else is a JSON snapshot file.
	PersistPath string

	// SortBy and OrderBy fix the emission order of events produced by one
	// scan. Default: path, ascending.
	SortBy  SortBy  `validate:"oneof=path mtime size"`
	OrderBy OrderBy `validate:"oneof=ascending descending"`

	// Backend selects the scanner strategy. Defaults to the poller; an
	// unavailable backend falls back to the poller with a logged warning.
	Backend string `validate:"oneof=poll fsnotify"`

	// MaxIterations, when positive, auto-stops the scanner backend after
	// that many periodic cycles. Used for deterministic testing.
	MaxIterations int `validate:"gte=0"`
}

// setDefaults applies default values to unset options.
func (o *Options) setDefaults() {
	if len(o.Globs) == 0 {
		o.Globs = []string{"**"}
	}
	if o.Interval == 0 {
		o.Interval = 30 * time.Second
	}
	if o.SortBy == "" {
		o.SortBy = SortByPath
	}
	if o.OrderBy == "" {
		o.OrderBy = OrderAscending
	}
	if o.Backend == "" {
		o.Backend = BackendPoll
	}
}

var optionsValidator = validator.New()

// validate checks the struct constraints and that Dir is an existing
// directory.
func (o *Options) validate() error {
	if err := optionsValidator.Struct(o); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	info, err := os.Stat(o.Dir)
	if err != nil {
		return fmt.Errorf("invalid options: dir %q: %w", o.Dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("invalid options: dir %q is not a directory", o.Dir)
	}
	return nil
}
