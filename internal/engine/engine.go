// Package engine implements the polling tail loop: every tick it re-resolves
// each source's pattern, reads newly appended bytes from tracked files,
// splits them into lines and routes them through transform and classify to
// the dispatch sink.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/good-yellow-bee/docklog/internal/classify"
	"github.com/good-yellow-bee/docklog/internal/dispatch"
	"github.com/good-yellow-bee/docklog/internal/metrics"
	"github.com/good-yellow-bee/docklog/internal/models"
	"github.com/good-yellow-bee/docklog/internal/state"
	"github.com/good-yellow-bee/docklog/internal/tracker"
	"github.com/good-yellow-bee/docklog/internal/transform"
)

// Pseudo-sources for internal diagnostics emitted on the output stream.
const (
	sourceGeneral      = "general"
	sourceNotification = "notification"
)

// Source is one configured log input.
type Source struct {
	Name         string
	Pattern      string
	Transformer  *transform.Transformer
	Notify       bool
	NotifyLevels models.SeveritySet
}

// Options configures an Engine.
type Options struct {
	// Interval between poll ticks (default: 5s).
	Interval time.Duration
	// Location for record timestamps (default: time.Local).
	Location *time.Location
}

// Status is a snapshot of engine liveness, consumed by the heartbeat writer.
type Status struct {
	LastTick     time.Time
	Ticks        uint64
	Interval     time.Duration
	Sources      []string
	TrackedFiles int
}

// Engine drives all polling from a single timer. Ticks never overlap: file
// table mutation happens only inside tick, on one goroutine.
type Engine struct {
	opts    Options
	sink    *dispatch.Sink
	tracker *tracker.Tracker
	store   *state.Store // nil disables offset persistence

	sources     []Source
	emptyWarned map[string]bool

	mu       sync.Mutex
	pending  []Source // replacement source set, applied at the next tick
	reload   bool
	lastTick time.Time
	ticks    uint64
}

// New creates an Engine for the given sources. store may be nil, in which
// case offsets are not persisted and every newly observed file is tailed
// from its current end.
func New(sources []Source, sink *dispatch.Sink, store *state.Store, opts Options) *Engine {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	e := &Engine{
		opts:        opts,
		sink:        sink,
		store:       store,
		sources:     sources,
		emptyWarned: make(map[string]bool),
	}
	e.tracker = tracker.New(e.seedOffset)
	return e
}

// seedOffset picks the initial offset for a newly observed file: a persisted
// offset for the same identity when available, otherwise the current end so
// pre-existing content is not replayed.
func (e *Engine) seedOffset(source, path string, id tracker.FileID, size int64) int64 {
	if e.store != nil {
		offset, found, err := e.store.Offset(context.Background(), source, id)
		if err != nil {
			e.sink.Logf(models.SeverityError, sourceGeneral, "state lookup for %s failed: %v", path, err)
		} else if found {
			if offset > size {
				// File shrank while we were down; start over.
				return 0
			}
			return offset
		}
	}
	return size
}

// Run executes the poll loop until the context is canceled. The first tick
// runs immediately; an in-flight tick always completes before Run returns.
func (e *Engine) Run(ctx context.Context) error {
	e.startupSummary()

	ticker := time.NewTicker(e.opts.Interval)
	defer ticker.Stop()

	e.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			e.sink.Logf(models.SeverityInfo, sourceGeneral, "Shutdown requested, exiting cleanly")
			return nil
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

// UpdateSources replaces the source set at the next tick boundary. Tracked
// state survives for sources whose name is unchanged.
func (e *Engine) UpdateSources(sources []Source) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = sources
	e.reload = true
}

// Status returns a liveness snapshot.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	names := make([]string, len(e.sources))
	for i, src := range e.sources {
		names[i] = src.Name
	}
	return Status{
		LastTick:     e.lastTick,
		Ticks:        e.ticks,
		Interval:     e.opts.Interval,
		Sources:      names,
		TrackedFiles: e.tracker.Len(),
	}
}

// NotifyError surfaces a notification delivery failure on the output stream.
// Wired as the notification queue's error callback.
func (e *Engine) NotifyError(err error) {
	e.sink.Logf(models.SeverityError, sourceNotification, "Failed to deliver notification: %v", err)
}

func (e *Engine) startupSummary() {
	e.sink.Logf(models.SeverityInfo, sourceGeneral,
		"Starting with updatefreq=%s, sources=%d", e.opts.Interval, len(e.sources))

	for _, src := range e.sources {
		res, err := e.tracker.Refresh(src.Name, src.Pattern)
		if err != nil {
			e.sink.Logf(models.SeverityError, src.Name, "Invalid pattern %q: %v", src.Pattern, err)
			continue
		}
		if res.EmptyPattern {
			e.sink.Logf(models.SeverityWarn, src.Name, "No files currently match pattern: %s", src.Pattern)
			e.emptyWarned[src.Name] = true
			continue
		}
		for _, f := range res.Files {
			e.sink.Logf(models.SeverityInfo, src.Name, "Tracking file: %s", f.Path)
		}
	}
}

// Tick runs a single poll cycle; exported for tests. Sources are processed
// in configuration order and files in resolved (sorted) order, so per-tick
// output interleaving is deterministic.
func (e *Engine) Tick(ctx context.Context) {
	e.tick(ctx)
}

func (e *Engine) tick(ctx context.Context) {
	started := time.Now()
	e.applyPending(ctx)

	for _, src := range e.sources {
		e.processSource(ctx, src)
	}

	metrics.TrackedFiles.Set(float64(e.tracker.Len()))
	metrics.TickDuration.Observe(time.Since(started).Seconds())

	e.mu.Lock()
	e.lastTick = time.Now()
	e.ticks++
	e.mu.Unlock()
}

// applyPending swaps in a reloaded source set at the tick boundary.
func (e *Engine) applyPending(ctx context.Context) {
	e.mu.Lock()
	if !e.reload {
		e.mu.Unlock()
		return
	}
	old := e.sources
	e.sources = e.pending
	e.pending = nil
	e.reload = false
	e.mu.Unlock()

	active := make(map[string]bool, len(e.sources))
	for _, src := range e.sources {
		active[src.Name] = true
	}
	e.tracker.Prune(active)

	for _, src := range old {
		if !active[src.Name] {
			delete(e.emptyWarned, src.Name)
			if e.store != nil {
				if err := e.store.DeleteSource(ctx, src.Name); err != nil {
					e.sink.Logf(models.SeverityError, sourceGeneral, "state cleanup for %s failed: %v", src.Name, err)
				}
			}
		}
	}

	e.sink.Logf(models.SeverityInfo, sourceGeneral, "Configuration reloaded: %d sources", len(e.sources))
}

func (e *Engine) processSource(ctx context.Context, src Source) {
	res, err := e.tracker.Refresh(src.Name, src.Pattern)
	if err != nil {
		e.sink.Logf(models.SeverityError, src.Name, "Failed to resolve pattern %q: %v", src.Pattern, err)
		return
	}

	// Warn once per transition into the empty state; re-resolution retries
	// automatically every tick.
	if res.EmptyPattern {
		if !e.emptyWarned[src.Name] {
			e.sink.Logf(models.SeverityWarn, src.Name, "No files currently match pattern: %s", src.Pattern)
			e.emptyWarned[src.Name] = true
		}
	} else {
		e.emptyWarned[src.Name] = false
	}

	for _, dropped := range res.Dropped {
		if e.store != nil {
			if err := e.store.Delete(ctx, src.Name, dropped.ID); err != nil {
				e.sink.Logf(models.SeverityError, sourceGeneral, "state cleanup for %s failed: %v", dropped.Path, err)
			}
		}
	}

	for _, f := range res.Files {
		if f.Err != nil {
			metrics.ReadErrors.WithLabelValues(src.Name).Inc()
			e.sink.Logf(models.SeverityError, src.Name, "Failed to stat %s: %v", f.Path, f.Err)
			continue
		}
		if f.Rotated || f.Truncated {
			metrics.Rotations.WithLabelValues(src.Name).Inc()
		}
		if f.Size <= f.Offset {
			continue
		}
		// A failure on one file never aborts the tick for the others.
		if err := e.readFile(ctx, src, f); err != nil {
			metrics.ReadErrors.WithLabelValues(src.Name).Inc()
			e.sink.Logf(models.SeverityError, src.Name, "Failed reading %s: %v", f.Path, err)
		}
	}
}

// readFile reads the appended byte range [offset, size) from a tracked file,
// emits its complete lines, and commits the offset past the last newline.
// A trailing partial line is left uncommitted and re-read next tick.
func (e *Engine) readFile(ctx context.Context, src Source, f tracker.FileState) error {
	file, err := os.Open(f.Path)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(f.Offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek to %d: %w", f.Offset, err)
	}

	// Read only up to the size snapshot from this tick; bytes appended while
	// we read are picked up next tick.
	buf := make([]byte, f.Size-f.Offset)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return fmt.Errorf("read: %w", err)
	}
	buf = buf[:n]

	consumed := int64(bytes.LastIndexByte(buf, '\n') + 1)
	if consumed == 0 {
		// No complete line yet; hold the offset so the fragment is re-read
		// once completed.
		return nil
	}

	for _, raw := range bytes.Split(buf[:consumed-1], []byte{'\n'}) {
		e.emitLine(src, strings.TrimSuffix(string(raw), "\r"))
	}

	e.tracker.Commit(src.Name, f.Path, f.Offset+consumed)
	if e.store != nil {
		if err := e.store.Save(ctx, src.Name, f.Path, f.ID, f.Offset+consumed); err != nil {
			e.sink.Logf(models.SeverityError, sourceGeneral, "state save for %s failed: %v", f.Path, err)
		}
	}
	return nil
}

// emitLine routes one complete line through filter, transform and classify,
// then hands the record to the sink.
func (e *Engine) emitLine(src Source, line string) {
	metrics.LinesRead.WithLabelValues(src.Name).Inc()
	if line == "" {
		return
	}

	text := line
	if src.Transformer != nil {
		var ok bool
		text, ok = src.Transformer.Apply(line)
		if !ok {
			metrics.LinesFiltered.WithLabelValues(src.Name).Inc()
			return
		}
	}

	e.sink.Emit(models.Record{
		Source:    src.Name,
		Severity:  classify.Classify(text),
		Text:      text,
		Timestamp: time.Now().In(e.opts.Location),
	}, src.Notify, src.NotifyLevels)
}
