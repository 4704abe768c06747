package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ruralpay/orgledger/internal/events"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w, prefix: "orgledger."}

	txnID := int64(77)
	event := events.NewSettlementEvent(5, 12, &txnID, decimal.NewFromInt(1200), "COMPLETED")

	require.NoError(t, p.Publish(context.Background(), events.TopicPayrollCompleted, event))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "orgledger.payroll.completed", msg.Topic)
	assert.Equal(t, []byte("5"), msg.Key)
	assert.Equal(t, event.EventID, string(msg.Headers[0].Value))

	var decoded events.SettlementEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, int64(12), decoded.EntityID)
	assert.True(t, decoded.Amount.Equal(decimal.NewFromInt(1200)))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublisher_PropagatesWriteErrors(t *testing.T) {
	boom := errors.New("leader not available")
	p := &Publisher{writer: &fakeWriter{err: boom}}

	err := p.Publish(context.Background(), events.TopicDepositRecorded,
		events.NewSettlementEvent(1, 2, nil, decimal.NewFromInt(500), "RECORDED"))
	assert.ErrorIs(t, err, boom)
}
