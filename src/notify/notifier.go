package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/rentease/rentledger/src/models"
)

// LogNotifier writes notification events to the structured log. It is the
// fallback sink when no broker is configured and doubles as the activity
// log.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-only notification sink
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Publish implements the services.Notifier contract.
func (n *LogNotifier) Publish(ctx context.Context, event models.NotificationEvent) {
	n.logger.Info("notification",
		zap.String("type", string(event.Type)),
		zap.String("tenant_id", event.TenantID.String()),
		zap.String("landlord_id", event.LandlordID.String()),
		zap.String("message", event.Message),
	)
}
