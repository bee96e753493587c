package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/outage-alert-etl/internal/domain"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
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

func testEvent() domain.LifecycleEvent {
	return domain.LifecycleEvent{
		ID:         "5b8f0f1e-0d3c-5a8e-9c1b-3e2f4a6b7c8d",
		Kind:       domain.EventEscalated,
		OutageID:   "INC123456",
		Utility:    domain.UtilityPSE,
		Snapshot:   domain.OutageRecord{OutageID: "INC123456", CustomersImpacted: 1500},
		Reasons:    []string{"customers (50=>1500)"},
		DetectedAt: time.Date(2025, 1, 15, 18, 5, 0, 0, time.UTC),
	}
}

func TestSerializeToMessage(t *testing.T) {
	event := testEvent()

	msg, err := serializeToMessage(event)
	require.NoError(t, err)

	assert.Equal(t, []byte(event.ID), msg.Key)
	assert.Contains(t, string(msg.Value), `"kind":"escalated"`)
	assert.Contains(t, string(msg.Value), `"reasons":["customers (50=>1500)"]`)
	assert.NotContains(t, string(msg.Value), `\u003e`)

	var decoded domain.LifecycleEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.Reasons, decoded.Reasons)
	assert.Equal(t, event.Snapshot.CustomersImpacted, decoded.Snapshot.CustomersImpacted)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "kind", msg.Headers[0].Key)
	assert.Equal(t, []byte("escalated"), msg.Headers[0].Value)
	assert.Equal(t, "utility", msg.Headers[1].Key)
	assert.Equal(t, []byte("pse"), msg.Headers[1].Value)
	assert.Equal(t, "detected_at", msg.Headers[2].Key)
	assert.Equal(t, []byte("2025-01-15T18:05:00Z"), msg.Headers[2].Value)
}

func TestPublisher_Deliver(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	require.NoError(t, p.Deliver(context.Background(), testEvent()))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "kafka", p.Name())

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublisher_DeliverError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := &Publisher{writer: w, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	err := p.Deliver(context.Background(), testEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
}
