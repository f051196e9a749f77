package notifier

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/good-yellow-bee/docklog/internal/metrics"
	"github.com/good-yellow-bee/docklog/internal/models"
)

// QueueConfig configures the async notification queue.
type QueueConfig struct {
	Capacity    int           // buffered records (default: 64)
	SendTimeout time.Duration // per-delivery timeout (default: 10s)
	RatePerMin  int           // max notifications per minute, 0 disables limiting
}

// DefaultQueueConfig returns default queue settings.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		Capacity:    64,
		SendTimeout: 10 * time.Second,
		RatePerMin:  30,
	}
}

// ErrorFunc receives delivery failures so the caller can surface them on its
// own log channel without the queue importing it.
type ErrorFunc func(err error)

// Queue decouples notification delivery from the tailing loop: Enqueue never
// blocks, and a single worker drains the queue in the background.
type Queue struct {
	notifier Notifier
	config   QueueConfig
	limiter  *rate.Limiter
	records  chan models.Record
	onError  ErrorFunc
}

// NewQueue creates a queue in front of the given notifier. onError may be nil.
func NewQueue(n Notifier, config QueueConfig, onError ErrorFunc) *Queue {
	if config.Capacity <= 0 {
		config.Capacity = 64
	}
	if config.SendTimeout <= 0 {
		config.SendTimeout = 10 * time.Second
	}

	var limiter *rate.Limiter
	if config.RatePerMin > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RatePerMin)), config.RatePerMin)
	}

	if onError == nil {
		onError = func(error) {}
	}

	return &Queue{
		notifier: n,
		config:   config,
		limiter:  limiter,
		records:  make(chan models.Record, config.Capacity),
		onError:  onError,
	}
}

// Enqueue hands a record to the delivery worker. It never blocks: when the
// queue is full or the rate limit is exhausted the record is dropped and the
// error reported through the error callback.
func (q *Queue) Enqueue(rec models.Record) {
	if q.limiter != nil && !q.limiter.Allow() {
		metrics.NotificationsRateLimited.Inc()
		q.onError(ErrRateLimited)
		return
	}

	select {
	case q.records <- rec:
	default:
		metrics.NotificationsDropped.Inc()
		q.onError(ErrQueueFull)
	}
}

// Run drains the queue until the context is canceled, then delivers whatever
// is still buffered with the send timeout as the final deadline.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			q.drain()
			return q.notifier.Close()
		case rec := <-q.records:
			q.deliver(ctx, rec)
		}
	}
}

func (q *Queue) deliver(ctx context.Context, rec models.Record) {
	sendCtx, cancel := context.WithTimeout(ctx, q.config.SendTimeout)
	defer cancel()

	if err := q.notifier.Send(sendCtx, rec); err != nil {
		metrics.NotificationsFailed.Inc()
		q.onError(err)
		return
	}
	metrics.NotificationsSent.Inc()
}

// drain makes a final best-effort pass over buffered records at shutdown.
func (q *Queue) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), q.config.SendTimeout)
	defer cancel()

	for {
		select {
		case rec := <-q.records:
			q.deliver(ctx, rec)
		default:
			return
		}
	}
}
