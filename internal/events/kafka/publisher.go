package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/ruralpay/orgledger/internal/events"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes settlement events to Kafka, keyed by organization so one
// organization's events stay ordered within a partition.
type Publisher struct {
	writer messageWriter
	prefix string
}

func NewPublisher(brokers []string, topicPrefix string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
		prefix: topicPrefix,
	}
}

func (p *Publisher) Publish(ctx context.Context, topic string, event events.SettlementEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.prefix + topic,
		Key:   []byte(strconv.FormatInt(event.OrganizationID, 10)),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ events.Publisher = (*Publisher)(nil)
