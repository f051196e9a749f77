// Package health writes and checks the liveness heartbeat file. The
// forwarder rewrites the file on its own timer; an external checker (or the
// healthcheck subcommand) compares its age against a staleness threshold.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/good-yellow-bee/docklog/internal/engine"
)

// Payload is the JSON heartbeat record.
type Payload struct {
	Status            string   `json:"status"`
	Timestamp         int64    `json:"timestamp"`
	UpdateFreqSeconds int      `json:"updatefreq_seconds"`
	RunID             string   `json:"run_id,omitempty"`
	Sources           []string `json:"sources"`
}

// StatusProvider supplies the current engine status for heartbeats.
type StatusProvider func() engine.Status

// Writer periodically rewrites the heartbeat file.
type Writer struct {
	path     string
	interval time.Duration
	runID    string
	status   StatusProvider
}

// NewWriter creates a heartbeat writer. interval defaults to 15s.
func NewWriter(path string, interval time.Duration, runID string, status StatusProvider) *Writer {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Writer{path: path, interval: interval, runID: runID, status: status}
}

// Run writes the heartbeat immediately and then on every interval until the
// context is canceled. Write failures are returned only from the first
// attempt; later failures are ignored so a transiently full disk does not
// kill the forwarder.
func (w *Writer) Run(ctx context.Context) error {
	if err := w.WriteOnce(); err != nil {
		return fmt.Errorf("write heartbeat: %w", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_ = w.WriteOnce()
		}
	}
}

// WriteOnce writes a single heartbeat record atomically (temp file + rename).
func (w *Writer) WriteOnce() error {
	st := w.status()
	payload := Payload{
		Status:            "ok",
		Timestamp:         time.Now().Unix(),
		UpdateFreqSeconds: int(st.Interval / time.Second),
		RunID:             w.runID,
		Sources:           st.Sources,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	tmp := w.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, w.path)
}

// Check reads the heartbeat file at path and returns an error when it is
// missing, malformed, or older than maxAge.
func Check(path string, maxAge time.Duration) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("health file missing: %s", path)
		}
		return fmt.Errorf("read health file: %w", err)
	}

	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse health file: %w", err)
	}
	if payload.Timestamp <= 0 {
		return fmt.Errorf("invalid heartbeat timestamp")
	}

	age := time.Since(time.Unix(payload.Timestamp, 0))
	if age > maxAge {
		return fmt.Errorf("stale heartbeat: %.1fs old (max %s)", age.Seconds(), maxAge)
	}
	return nil
}
