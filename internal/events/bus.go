package events

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Topics published by the portal.
const (
	TopicRegistrationCreated = "registration.created"
	TopicInvoiceCreated      = "invoice.created"
	TopicInvoicePaid         = "invoice.paid"
	TopicKidCreated          = "kid.created"
	TopicKidUpdated          = "kid.updated"
)

// EventStore appends events to the durable audit log.
type EventStore interface {
	InsertEvent(ctx context.Context, topic string, accountID uuid.UUID, payload any) error
}

// Notifier reacts to a published event. Notifier failures are logged and never
// surface to the request that triggered the event.
type Notifier interface {
	Notify(ctx context.Context, topic string, accountID uuid.UUID, payload any) error
}

// Bus stores and fans out domain events.
type Bus struct {
	Store     EventStore
	Notifiers []Notifier
	Logger    zerolog.Logger
}

// Publish records the event and invokes every notifier. Best effort: the
// caller's response never depends on the outcome.
func (b *Bus) Publish(ctx context.Context, topic string, accountID uuid.UUID, payload any) {
	if b == nil {
		return
	}
	if b.Store != nil {
		if err := b.Store.InsertEvent(ctx, topic, accountID, payload); err != nil {
			b.Logger.Error().Err(err).Str("topic", topic).Msg("event store append failed")
		}
	}
	for _, n := range b.Notifiers {
		if err := n.Notify(ctx, topic, accountID, payload); err != nil {
			b.Logger.Warn().Err(err).Str("topic", topic).Msg("event notifier failed")
		}
	}
}
