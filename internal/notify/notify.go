// Package notify delivers fire-and-forget messages about settlement outcomes.
// Callers log delivery failures and never let them affect settlement state.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultQueueKey = "notification_queue"

type Notification struct {
	ID        string    `json:"id"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

func New(recipient, subject, body string) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
}

// UserRecipient addresses a platform user by id.
func UserRecipient(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Log writes notifications to the service log. Used when no queue is configured.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(ctx context.Context, n Notification) error {
	l.logger.Info("notification",
		zap.String("id", n.ID),
		zap.String("recipient", n.Recipient),
		zap.String("subject", n.Subject))
	return nil
}

// RedisQueue pushes notifications onto a list drained by the mail workers.
type RedisQueue struct {
	client *redis.Client
	key    string
}

func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = DefaultQueueKey
	}
	return &RedisQueue{client: client, key: key}
}

func (q *RedisQueue) Notify(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	if err := q.client.RPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("failed to queue notification %s: %w", n.ID, err)
	}
	return nil
}

// Multi fans a notification out to every notifier, attempting all of them.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
