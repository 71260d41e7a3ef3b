// Package logpub is the event publisher used when no broker is configured:
// events land in the structured log instead of a topic.
package logpub

import (
	"context"
	"encoding/json"
	"log/slog"

	interfaces "github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/interfaces"
)

// Publisher logs every event it is handed.
type Publisher struct {
	logger *slog.Logger
}

// NewPublisher creates a log-backed publisher.
func NewPublisher(logger *slog.Logger) *Publisher {
	return &Publisher{logger: logger.With("component", "events")}
}

func (p *Publisher) Publish(ctx context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	p.logger.Info("event published", "topic", topic, "event", json.RawMessage(data))
	return nil
}

var _ interfaces.EventPublisher = (*Publisher)(nil)
