// Package di wires the CLI's dependencies.
package di

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/listenupapp/dirwatch"
	"github.com/listenupapp/dirwatch/internal/config"
	"github.com/listenupapp/dirwatch/internal/logger"
)

// configPathKey carries the --config flag value into the container.
type configPathKey struct{ Path string }

// NewContainer builds the DI container for a given config path.
func NewContainer(configPath string) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, configPathKey{Path: configPath})
	do.Provide(injector, provideConfig)
	do.Provide(injector, provideLogger)
	do.Provide(injector, provideWatcher)

	return injector
}

func provideConfig(i do.Injector) (*config.Config, error) {
	key := do.MustInvoke[configPathKey](i)
	return config.Load(key.Path)
}

func provideLogger(i do.Injector) (*slog.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return logger.New(logger.Config{
		Environment: cfg.Env,
		Level:       logger.ParseLevel(cfg.LogLevel),
	}), nil
}

func provideWatcher(i do.Injector) (*dirwatch.Watcher, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)

	return dirwatch.New(log, dirwatch.Options{
		Dir:             cfg.Watch.Dir,
		Globs:           cfg.Watch.Globs,
		IgnoreGlobs:     cfg.Watch.IgnoreGlobs,
		Interval:        cfg.Watch.Interval,
		StableThreshold: cfg.Watch.StableThreshold,
		PreLoad:         cfg.Watch.PreLoad,
		PersistPath:     cfg.Watch.PersistPath,
		SortBy:          dirwatch.SortBy(cfg.Watch.SortBy),
		OrderBy:         dirwatch.OrderBy(cfg.Watch.OrderBy),
		Backend:         cfg.Watch.Backend,
		MaxIterations:   cfg.Watch.MaxIterations,
	})
}

// Watcher resolves the fully wired watcher from the container.
func Watcher(i do.Injector) (*dirwatch.Watcher, error) {
	return do.Invoke[*dirwatch.Watcher](i)
}

// Logger resolves the configured logger from the container.
func Logger(i do.Injector) (*slog.Logger, error) {
	return do.Invoke[*slog.Logger](i)
}
