package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func testProducerConfig() ProducerConfig {
	return ProducerConfig{
		Brokers: []string{"localhost:9092"},
		Breaker: BreakerConfig{Interval: time.Minute, Timeout: time.Minute, FailureRatio: 0.5, MinRequests: 2},
	}
}

func TestNewEvent(t *testing.T) {
	ev, err := NewEvent("review.submitted", "book-1", "book", "catalog", map[string]int{"rating": 4})
	require.NoError(t, err)

	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, 1, ev.Version)
	assert.JSONEq(t, `{"rating":4}`, string(ev.Data))

	var payload struct{ Rating int }
	require.NoError(t, ev.UnmarshalData(&payload))
	assert.Equal(t, 4, payload.Rating)
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, testProducerConfig(), testLogger())

	ev, err := NewEvent("change_request.approved", "req-1", "change_request", "catalog", struct{}{})
	require.NoError(t, err)
	ev.WithCorrelationID("corr-9")

	require.NoError(t, p.Publish(context.Background(), "catalog.change_request.approved", ev))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "req-1", string(msg.Key))
	assert.Contains(t, msg.Headers, kafka.Header{Key: "correlation_id", Value: []byte("corr-9")})

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, ev.EventID, decoded.EventID)
}

func TestProducer_BreakerOpensAfterFailures(t *testing.T) {
	w := &fakeWriter{err: errors.New("kafka: leader not available")}
	p := NewProducerWithWriter(w, testProducerConfig(), testLogger())
	ev, _ := NewEvent("review.submitted", "b", "book", "catalog", nil)

	for i := 0; i < 2; i++ {
		err := p.Publish(context.Background(), "t", ev)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrBreakerOpen)
	}

	w.err = nil
	err := p.Publish(context.Background(), "t", ev)
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.Empty(t, w.msgs)
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	assert.Error(t, PingBrokers(context.Background(), nil))
}
