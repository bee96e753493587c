//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/outage-alert-etl/internal/adapter/kafka"
	"github.com/couchcryptid/outage-alert-etl/internal/adapter/snapshotfs"
	"github.com/couchcryptid/outage-alert-etl/internal/config"
	"github.com/couchcryptid/outage-alert-etl/internal/domain"
	"github.com/couchcryptid/outage-alert-etl/internal/mockdata"
	"github.com/couchcryptid/outage-alert-etl/internal/observability"
	"github.com/couchcryptid/outage-alert-etl/internal/pipeline"
	"github.com/couchcryptid/outage-alert-etl/internal/utility"
)

const testEventsTopic = "test-outage-events"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("outage-alert-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

type publishedEvent struct {
	Event   domain.LifecycleEvent
	Key     string
	Headers map[string]string
}

func readEvent(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedEvent {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from events topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var event domain.LifecycleEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event), "unmarshal event")

	return publishedEvent{Event: event, Key: string(msg.Key), Headers: headers}
}

// TestPipelinePublishesToKafka runs the escalation scenario from snapshot
// files on disk through the pipeline with a real Kafka sink.
func TestPipelinePublishesToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testEventsTopic)

	scenario, ok := mockdata.Lookup("escalation")
	require.True(t, ok)
	dir := t.TempDir()
	_, err := mockdata.Write(dir, scenario, time.Date(2025, time.January, 15, 18, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	logger := discardLogger()
	metrics := observability.NewMetricsForTesting()
	normalizer, err := utility.For(domain.UtilityPSE, logger)
	require.NoError(t, err)

	publisher := kafka.NewPublisher([]string{broker}, testEventsTopic, logger)
	t.Cleanup(func() { _ = publisher.Close() })

	r := pipeline.New(map[domain.Utility]pipeline.SnapshotSource{
		domain.UtilityPSE: snapshotfs.NewSource(dir, normalizer, metrics, logger),
	}, []pipeline.Sink{publisher}, logger, metrics)

	thresholds, err := config.Thresholds(0, 100, 0, 1000)
	require.NoError(t, err)

	res, err := r.Run(ctx, domain.UtilityPSE, thresholds)
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	require.Zero(t, res.DeliveryFailures)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testEventsTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	got := readEvent(ctx, t, consumer)
	want := res.Events[0]

	assert.Equal(t, want.ID, got.Key)
	assert.Equal(t, "escalated", got.Headers["kind"])
	assert.Equal(t, "pse", got.Headers["utility"])
	_, err = time.Parse(time.RFC3339, got.Headers["detected_at"])
	assert.NoError(t, err, "detected_at should be valid RFC3339")

	assert.Equal(t, want.ID, got.Event.ID)
	assert.Equal(t, domain.EventEscalated, got.Event.Kind)
	assert.Equal(t, "INC0900001", got.Event.OutageID)
	assert.Equal(t, 1850, got.Event.Snapshot.CustomersImpacted)
	assert.NotEmpty(t, got.Event.Reasons)
	assert.Contains(t, got.Event.Location, "google.com/maps")
}
