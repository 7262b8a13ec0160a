package services

import (
	"context"

	"github.com/rentease/rentledger/src/models"
)

// Notifier is the fire-and-forget notification sink (activity log +
// dashboard push). Implementations must never block ledger writes on
// delivery; errors are handled inside the sink.
type Notifier interface {
	Publish(ctx context.Context, event models.NotificationEvent)
}

// NopNotifier discards all events. Useful in tests and batch jobs.
type NopNotifier struct{}

// Publish implements Notifier.
func (NopNotifier) Publish(ctx context.Context, event models.NotificationEvent) {}
