package dirwatch

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/listenupapp/dirwatch/internal/queue"
)

// fsnotifyBackend is the kernel-notification scanner strategy. Filesystem
// events are translated into per-file FileStat updates on the collection
// queue, and the periodic driver cycle pushes a full-glob Scan to catch
// additions in directories created after watches were established. Removals
// are reported by the kernel callbacks, so the Collector must not reconcile
// against this backend's scans.
type fsnotifyBackend struct {
	*driver

	dir     string
	globs   []string
	ignores []string
	set     *globSet
	sink    *queue.Queue[any]
	logger  *slog.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

func newFsnotifyBackend(opts Options, sink *queue.Queue[any], logger *slog.Logger) (*fsnotifyBackend, error) {
	set, err := newGlobSet(opts.Globs, opts.IgnoreGlobs)
	if err != nil {
		return nil, err
	}

	b := &fsnotifyBackend{
		dir:     opts.Dir,
		globs:   opts.Globs,
		ignores: opts.IgnoreGlobs,
		set:     set,
		sink:    sink,
		logger:  logger,
	}
	b.driver = newDriver(BackendFsnotify, opts.Interval, opts.MaxIterations, b.fullPass, logger)
	return b, nil
}

// Start establishes recursive watches on the tree, launches the event
// translation goroutine, and starts the periodic full-pass cycle.
func (b *fsnotifyBackend) Start() error {
	if b.Running() {
		return ErrAlreadyRunning
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	b.watcher = watcher
	b.done = make(chan struct{})

	if err := b.watchTree(b.dir); err != nil {
		watcher.Close()
		return err
	}

	b.wg.Add(1)
	go b.translate()

	if err := b.driver.Start(); err != nil {
		close(b.done)
		watcher.Close()
		b.wg.Wait()
		return err
	}
	return nil
}

// Stop halts the periodic cycle, then tears down the kernel watches and the
// translation goroutine.
func (b *fsnotifyBackend) Stop() error {
	if err := b.driver.Stop(); err != nil {
		return err
	}
	close(b.done)
	b.watcher.Close()
	b.wg.Wait()
	b.watcher = nil
	return nil
}

// watchTree adds kernel watches on dir and every subdirectory.
func (b *fsnotifyBackend) watchTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			b.logger.Warn("fsnotify: failed to access path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := b.watcher.Add(path); err != nil {
			b.logger.Warn("fsnotify: failed to add watch", "path", path, "error", err)
		}
		return nil
	})
}

// translate converts kernel events into FileStat updates on the collection
// queue. Events seen while paused are discarded, not buffered.
func (b *fsnotifyBackend) translate() {
	defer b.wg.Done()

	for {
		select {
		case <-b.done:
			return
		case event, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			b.handleEvent(event)
		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			b.logger.Warn("fsnotify: watcher error", "error", err)
		}
	}
}

func (b *fsnotifyBackend) handleEvent(event fsnotify.Event) {
	if b.paused.Load() {
		return
	}

	path := event.Name

	// New directories need watches before their contents produce events.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := b.watchTree(path); err != nil {
				b.logger.Warn("fsnotify: failed to watch new directory", "path", path, "error", err)
			}
			return
		}
	}

	if !b.selects(path) {
		return
	}

	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		b.sink.Push(NewRemovedStat(path))
		return
	}

	if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		info, err := os.Stat(path)
		if err != nil {
			// Vanished between the event and the stat.
			b.sink.Push(NewRemovedStat(path))
			return
		}
		if info.IsDir() || !info.Mode().IsRegular() {
			return
		}
		b.sink.Push(NewFileStat(path, info.ModTime(), info.Size()))
	}
}

// selects reports whether a path inside the tree matches the glob set.
func (b *fsnotifyBackend) selects(path string) bool {
	rel, err := filepath.Rel(b.dir, path)
	if err != nil {
		return false
	}
	return b.set.match(filepath.ToSlash(rel))
}

// fullPass pushes a complete Scan so files created where the kernel had no
// watch yet (or missed during races) are still picked up as additions.
func (b *fsnotifyBackend) fullPass() error {
	scan, err := NewScan(b.dir, b.globs, b.ignores, b.logger)
	if err != nil {
		return err
	}
	scan.Results()
	b.sink.Push(scan)
	return nil
}
