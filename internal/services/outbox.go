package services

import (
	"context"

	"github.com/ruralpay/orgledger/internal/events"
	"github.com/ruralpay/orgledger/internal/notify"
	"go.uber.org/zap"
)

// outbox delivers the side effects of a committed settlement. Failures are
// logged and swallowed: settlement state never depends on them.
type outbox struct {
	notifier  notify.Notifier
	publisher events.Publisher
	logger    *zap.Logger
}

func (o outbox) notify(ctx context.Context, n notify.Notification) {
	if err := o.notifier.Notify(ctx, n); err != nil {
		o.logger.Warn("failed to send notification",
			zap.String("recipient", n.Recipient), zap.String("subject", n.Subject), zap.Error(err))
	}
}

func (o outbox) publish(ctx context.Context, topic string, event events.SettlementEvent) {
	if err := o.publisher.Publish(ctx, topic, event); err != nil {
		o.logger.Warn("failed to publish settlement event",
			zap.String("topic", topic), zap.Int64("entity_id", event.EntityID), zap.Error(err))
	}
}
