package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type mockPublisher struct {
	mock.Mock
	name string
}

func (m *mockPublisher) Name() string {
	return m.name
}

func (m *mockPublisher) Publish(ctx context.Context, event Event) error {
	return m.Called(event.Type).Error(0)
}

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestBusEmitFansOut(t *testing.T) {
	ok := &mockPublisher{name: "ok"}
	ok.On("Publish", AlertFired).Return(nil)
	broken := &mockPublisher{name: "broken"}
	broken.On("Publish", AlertFired).Return(errors.New("down"))

	bus := NewBus(quietLogger(), ok, nil, broken)
	assert.Equal(t, []string{"ok", "broken"}, bus.Publishers())

	err := bus.Emit(context.Background(), AlertFired, map[string]string{"type": "drawdown"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken: down")

	ok.AssertExpectations(t)
	broken.AssertExpectations(t)
}

func TestNilBusIsNoop(t *testing.T) {
	var bus *Bus
	assert.NoError(t, bus.Emit(context.Background(), ModelTrained, nil))
}

func TestKafkaPublisher(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisherWithWriter(w)
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	err := p.Publish(context.Background(), Event{
		Type:      PredictionCreated,
		Timestamp: at,
		Payload:   map[string]float64{"predicted_price": 50600},
	})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "prediction.created", string(msg.Key))
	assert.Equal(t, at, msg.Time)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "prediction.created", decoded["type"])
	assert.Equal(t, 50600.0, decoded["payload"].(map[string]interface{})["predicted_price"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisherWriteError(t *testing.T) {
	p := NewKafkaPublisherWithWriter(&fakeWriter{err: errors.New("no brokers")})

	err := p.Publish(context.Background(), Event{Type: DriftChecked})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no brokers")
	assert.Equal(t, "kafka", p.Name())
}
