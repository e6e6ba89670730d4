// Package events publishes domain events to the websocket hub and Kafka.
package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/metrics"
)

// Type names a domain event.
type Type string

const (
	PredictionCreated   Type = "prediction.created"
	PredictionValidated Type = "prediction.validated"
	AlertFired          Type = "alert.fired"
	ModelTrained        Type = "model.trained"
	DriftChecked        Type = "drift.checked"
)

// Event is the JSON envelope shared by every transport.
type Event struct {
	Type      Type        `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Publisher delivers events to one transport.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, event Event) error
}

// Bus fans events out to every publisher. Delivery is best effort.
type Bus struct {
	publishers []Publisher
	now        func() time.Time
	logger     *logrus.Entry
}

// NewBus creates a bus over publishers. Nil publishers are ignored.
func NewBus(log *logrus.Logger, publishers ...Publisher) *Bus {
	b := &Bus{
		now:    time.Now,
		logger: log.WithField("component", "events"),
	}
	for _, p := range publishers {
		if p != nil {
			b.publishers = append(b.publishers, p)
		}
	}
	return b
}

// Emit wraps payload in an event and publishes it everywhere. Failures are
// logged and counted, and returned joined for callers that care.
func (b *Bus) Emit(ctx context.Context, t Type, payload interface{}) error {
	if b == nil {
		return nil
	}
	event := Event{Type: t, Timestamp: b.now().UTC(), Payload: payload}

	var errs []error
	for _, p := range b.publishers {
		err := p.Publish(ctx, event)
		metrics.RecordEventPublished(string(t), err == nil)
		if err != nil {
			b.logger.WithError(err).WithFields(logrus.Fields{
				"publisher":  p.Name(),
				"event_type": t,
			}).Warn("Failed to publish event")
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Publishers returns the names of the attached publishers.
func (b *Bus) Publishers() []string {
	names := make([]string, len(b.publishers))
	for i, p := range b.publishers {
		names[i] = p.Name()
	}
	return names
}
