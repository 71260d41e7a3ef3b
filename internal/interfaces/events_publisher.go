package interfaces

import "context"

// EventPublisher fans lifecycle and remediation events out to downstream
// consumers. Publishing is best-effort from the caller's point of view:
// a failed publish never changes a transaction's recorded outcome.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event any) error
}
