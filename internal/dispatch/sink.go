// Package dispatch fans classified records out to the output stream and,
// for alert-enabled sources, to the notification queue.
package dispatch

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/good-yellow-bee/docklog/internal/metrics"
	"github.com/good-yellow-bee/docklog/internal/models"
)

// AlertFunc receives records that passed alert filtering. It must not block;
// the notification queue's Enqueue satisfies this.
type AlertFunc func(rec models.Record)

// Sink writes records to the output stream synchronously and in order, and
// forwards alert-eligible records to the notifier. Output emission is
// unconditional; alerting is best effort and independently failing.
type Sink struct {
	mu    sync.Mutex
	out   io.Writer
	alert AlertFunc
	now   func() time.Time
}

// New creates a Sink writing to out. alert may be nil to disable alerting.
func New(out io.Writer, alert AlertFunc) *Sink {
	return &Sink{out: out, alert: alert, now: time.Now}
}

// SetLocation makes diagnostic timestamps use the given timezone.
func (s *Sink) SetLocation(loc *time.Location) {
	s.now = func() time.Time { return time.Now().In(loc) }
}

// Emit writes one record to the output stream and, when the source has
// alerting enabled and the record's severity is in its alert set, hands the
// record to the alert function.
func (s *Sink) Emit(rec models.Record, notify bool, alertLevels models.SeveritySet) {
	s.write(rec)
	metrics.RecordsEmitted.WithLabelValues(rec.Source, string(rec.Severity)).Inc()

	if notify && s.alert != nil && alertLevels.Contains(rec.Severity) {
		s.alert(rec)
	}
}

// Logf emits an internal diagnostic through the same output stream, under a
// pseudo-source such as "general" or "notification". Diagnostics never alert.
func (s *Sink) Logf(severity models.Severity, source, format string, args ...any) {
	s.write(models.Record{
		Source:    source,
		Severity:  severity,
		Text:      fmt.Sprintf(format, args...),
		Timestamp: s.now(),
	})
}

func (s *Sink) write(rec models.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, rec.String())
}
