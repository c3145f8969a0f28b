// Package dirwatch watches a directory tree for file additions, modifications,
// removals, and stability (unchanged for N consecutive scans), and delivers
// these as a de-duplicated, ordered event stream to registered observers.
//
// It is a library component meant to be embedded in a host application. The
// pipeline has three independently scheduled loops: a scanner backend produces
// snapshots of the matching file set, the Collector diffs them against its
// authoritative state table and classifies the results, and the Notifier fans
// qualifying events out to observers. Hand-off between loops happens over two
// unbounded FIFO queues; no other state is shared.
package dirwatch

import "time"

// FileStat is a snapshot of one path at one point in time. A FileStat is
// immutable once created; the next scan supersedes it with a fresh value.
//
// The removed sentinel (Removed == true, zero ModTime and Size) marks a path
// that was previously tracked but no longer exists.
type FileStat struct {
	Path    string    `json:"path"`
	ModTime time.Time `json:"mtime"`
	Size    int64     `json:"size"`
	Removed bool      `json:"removed,omitempty"`
}

// NewFileStat builds a snapshot for an existing regular file.
func NewFileStat(path string, modTime time.Time, size int64) FileStat {
	return FileStat{Path: path, ModTime: modTime, Size: size}
}

// NewRemovedStat builds the removed sentinel for a path that disappeared.
func NewRemovedStat(path string) FileStat {
	return FileStat{Path: path, Removed: true}
}

// IsRemoved reports whether this stat is the removed sentinel.
func (s FileStat) IsRemoved() bool {
	return s.Removed
}

// Equal reports whether two stats describe the same file state. Path is
// deliberately not part of equality; equality answers "did this path change"
// for stats that share a path key.
func (s FileStat) Equal(o FileStat) bool {
	return s.Removed == o.Removed && s.Size == o.Size && s.ModTime.Equal(o.ModTime)
}
