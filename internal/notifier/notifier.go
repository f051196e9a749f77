// Package notifier delivers alert notifications for classified records.
// Delivery is best effort and fully decoupled from the tailing loop: a slow
// or unreachable endpoint never delays a poll tick.
package notifier

import (
	"context"
	"errors"

	"github.com/good-yellow-bee/docklog/internal/models"
)

// Notifier is the interface for notification transports.
type Notifier interface {
	// Name returns the transport name (e.g. "ntfy").
	Name() string
	// Send delivers a notification for one record.
	Send(ctx context.Context, rec models.Record) error
	// Close releases any resources.
	Close() error
}

// ErrRateLimited is returned when a notification is dropped by rate limiting.
var ErrRateLimited = errors.New("notification rate limited")

// ErrQueueFull is returned when the async queue has no room for a record.
var ErrQueueFull = errors.New("notification queue full")
