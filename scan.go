package dirwatch

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gobwas/glob"
)

// Scan is an ordered batch of FileStats produced by applying include globs
// (minus ignore globs) against the watch root at one instant. Results are
// computed once and memoized; a Scan is transient and consumed exactly once
// by the Collector.
type Scan struct {
	dir     string
	globs   []string
	ignores []string

	set *globSet

	logger *slog.Logger

	once    sync.Once
	results []FileStat
}

// globSet is a compiled include/ignore pattern pair. A slash-relative path is
// selected iff it matches at least one include glob and no ignore glob.
type globSet struct {
	include []glob.Glob
	exclude []glob.Glob
}

func newGlobSet(globs, ignoreGlobs []string) (*globSet, error) {
	include, err := compileGlobs(globs)
	if err != nil {
		return nil, fmt.Errorf("compile include globs: %w", err)
	}
	exclude, err := compileGlobs(ignoreGlobs)
	if err != nil {
		return nil, fmt.Errorf("compile ignore globs: %w", err)
	}
	return &globSet{include: include, exclude: exclude}, nil
}

func (gs *globSet) match(rel string) bool {
	included := false
	for _, g := range gs.include {
		if g.Match(rel) {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	for _, g := range gs.exclude {
		if g.Match(rel) {
			return false
		}
	}
	return true
}

// NewScan compiles the glob patterns and prepares a scan of dir. Patterns are
// slash-separated and matched against paths relative to dir; `**` crosses
// directory boundaries.
func NewScan(dir string, globs, ignoreGlobs []string, logger *slog.Logger) (*Scan, error) {
	set, err := newGlobSet(globs, ignoreGlobs)
	if err != nil {
		return nil, err
	}

	return &Scan{
		dir:     filepath.Clean(dir),
		globs:   globs,
		ignores: ignoreGlobs,
		set:     set,
		logger:  logger,
	}, nil
}

// scanFromStats builds a pre-resolved scan. Used by backends that already
// hold the stats and by tests.
func scanFromStats(stats []FileStat) *Scan {
	s := &Scan{results: stats}
	s.once.Do(func() {})
	return s
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

// Results walks the tree and returns the matching regular files with their
// mtime and size. The walk happens once; repeated calls return the memoized
// batch. Per-file stat errors (permissions, files vanishing mid-walk) are
// logged and the file omitted; they never fail the scan.
func (s *Scan) Results() []FileStat {
	s.once.Do(func() {
		s.results = s.walk()
	})
	return s.results
}

// Paths returns the set of paths present in the scan results.
func (s *Scan) Paths() map[string]struct{} {
	results := s.Results()
	paths := make(map[string]struct{}, len(results))
	for _, st := range results {
		paths[st.Path] = struct{}{}
	}
	return paths
}

func (s *Scan) walk() []FileStat {
	var stats []FileStat

	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Warn("scan: failed to access path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		// Only regular files; symlinks, devices and sockets are excluded.
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(s.dir, path)
		if err != nil {
			s.logger.Warn("scan: failed to compute relative path", "path", path, "error", err)
			return nil
		}

		if !s.set.match(filepath.ToSlash(rel)) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			// Raced with a delete between listing and stat; skip it.
			s.logger.Warn("scan: failed to stat file", "path", path, "error", err)
			return nil
		}

		stats = append(stats, NewFileStat(path, info.ModTime(), info.Size()))
		return nil
	})
	if err != nil {
		s.logger.Warn("scan: walk failed", "dir", s.dir, "error", err)
	}

	return stats
}

// String describes the scan's patterns for logging.
func (s *Scan) String() string {
	return fmt.Sprintf("scan %s globs=[%s] ignore=[%s]",
		s.dir, strings.Join(s.globs, " "), strings.Join(s.ignores, " "))
}
