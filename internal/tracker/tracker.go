// Package tracker maintains the per-source table of tracked files: which
// concrete paths a source's pattern currently matches, each file's identity,
// and how far into each file the engine has read.
package tracker

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileID is a stable identity token for a file, used to distinguish the file
// currently at a path from any other file that later occupies the same path.
// On unix systems it is the (device, inode) pair.
type FileID struct {
	Dev uint64
	Ino uint64
}

// TrackedFile is one concrete file currently matched by a source's pattern.
type TrackedFile struct {
	Path    string
	ID      FileID
	IDValid bool // false when the platform has no stable identity primitive
	Offset  int64
	Size    int64
	ModTime time.Time
}

// FileState describes one resolved file for the current tick, including the
// range the engine should read and any lifecycle transition detected.
type FileState struct {
	Path      string
	ID        FileID
	Offset    int64 // position to read from
	Size      int64 // current file size
	New       bool  // first observation of this file
	Rotated   bool  // identity changed under the same path
	Truncated bool  // size shrank below the stored offset
	Err       error // stat failure; the file is skipped this tick
}

// DroppedFile identifies a tracked file that no longer matches its pattern.
type DroppedFile struct {
	Path string
	ID   FileID
}

// RefreshResult is the outcome of re-resolving one source's pattern.
type RefreshResult struct {
	Files   []FileState
	Dropped []DroppedFile
	// EmptyPattern is true when the pattern matched no files at all.
	EmptyPattern bool
}

// SeedFunc returns the initial read offset for a newly observed file.
// Implementations typically return size (tail from now) or a persisted
// offset clamped to size.
type SeedFunc func(source, path string, id FileID, size int64) int64

// Tracker owns the TrackedFile tables for all sources of one engine
// instance. It is not safe for concurrent use; the engine mutates it only
// at tick boundaries.
type Tracker struct {
	files map[string]map[string]*TrackedFile // source name -> path -> file
	seed  SeedFunc
}

// New creates a Tracker. seed may be nil, in which case newly observed files
// are read from their current end.
func New(seed SeedFunc) *Tracker {
	if seed == nil {
		seed = func(_, _ string, _ FileID, size int64) int64 { return size }
	}
	return &Tracker{
		files: make(map[string]map[string]*TrackedFile),
		seed:  seed,
	}
}

// Refresh re-resolves the source's pattern against the filesystem and
// reconciles the tracked file table: new files are seeded, rotated and
// truncated files are reset to offset 0, and files that no longer match are
// dropped. Patterns are resolved fresh every call; nothing is cached between
// ticks beyond the table itself.
func (t *Tracker) Refresh(source, pattern string) (RefreshResult, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}

	table := t.files[source]
	if table == nil {
		table = make(map[string]*TrackedFile)
		t.files[source] = table
	}

	res := RefreshResult{EmptyPattern: len(matches) == 0}
	touched := make(map[string]bool, len(matches))

	for _, path := range matches {
		state := t.refreshFile(source, table, path)
		if state == nil {
			continue // disappeared between glob and stat
		}
		touched[path] = true
		res.Files = append(res.Files, *state)
	}

	// Drop entries whose path no longer matches the pattern. If the file
	// reappears later it is treated as newly observed.
	for path, tf := range table {
		if !touched[path] {
			res.Dropped = append(res.Dropped, DroppedFile{Path: path, ID: tf.ID})
			delete(table, path)
		}
	}

	return res, nil
}

func (t *Tracker) refreshFile(source string, table map[string]*TrackedFile, path string) *FileState {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &FileState{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil
	}

	id, idValid := fileID(info)
	size := info.Size()

	tf, exists := table[path]
	if !exists {
		tf = &TrackedFile{
			Path:    path,
			ID:      id,
			IDValid: idValid,
			Offset:  t.seed(source, path, id, size),
			Size:    size,
			ModTime: info.ModTime(),
		}
		if tf.Offset > size {
			tf.Offset = size
		}
		table[path] = tf
		return &FileState{Path: path, ID: id, Offset: tf.Offset, Size: size, New: true}
	}

	rotated := false
	switch {
	case tf.IDValid && idValid:
		rotated = tf.ID != id
	default:
		// No identity primitive: fall back to a weaker heuristic. A size
		// decrease or modification-time regression signals replacement;
		// in-place truncation to a larger rewrite can escape detection.
		rotated = size < tf.Size || info.ModTime().Before(tf.ModTime)
	}

	if rotated {
		// Close out the old entry and start from the beginning of the new
		// file's current content.
		tf = &TrackedFile{Path: path, ID: id, IDValid: idValid, Size: size, ModTime: info.ModTime()}
		table[path] = tf
		return &FileState{Path: path, ID: id, Offset: 0, Size: size, Rotated: true}
	}

	truncated := size < tf.Offset
	if truncated {
		tf.Offset = 0
	}
	tf.ID = id
	tf.IDValid = idValid
	tf.Size = size
	tf.ModTime = info.ModTime()

	return &FileState{Path: path, ID: id, Offset: tf.Offset, Size: size, Truncated: truncated}
}

// Commit records how far the engine actually read into a file. The offset
// only ever advances past complete lines; a trailing partial line stays
// ahead of the committed offset and is re-read on the next tick.
func (t *Tracker) Commit(source, path string, offset int64) {
	if table := t.files[source]; table != nil {
		if tf := table[path]; tf != nil {
			tf.Offset = offset
		}
	}
}

// Lookup returns the tracked file for (source, path), if any.
func (t *Tracker) Lookup(source, path string) (*TrackedFile, bool) {
	table := t.files[source]
	if table == nil {
		return nil, false
	}
	tf, ok := table[path]
	return tf, ok
}

// Prune removes tracked state for sources not in the active set. Used when
// configuration reloads remove or rename sources.
func (t *Tracker) Prune(active map[string]bool) {
	for source := range t.files {
		if !active[source] {
			delete(t.files, source)
		}
	}
}

// Len returns the total number of tracked files across all sources.
func (t *Tracker) Len() int {
	n := 0
	for _, table := range t.files {
		n += len(table)
	}
	return n
}
