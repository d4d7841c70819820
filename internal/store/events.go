package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is an append-only audit record of something that happened.
type DomainEvent struct {
	ID        uuid.UUID
	Topic     string
	AccountID uuid.UUID
	Payload   json.RawMessage
	CreatedAt time.Time
}

// InsertEvent appends a domain event. Implements events.EventStore.
func (st *Store) InsertEvent(ctx context.Context, topic string, accountID uuid.UUID, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = st.Pool.Exec(ctx,
		`INSERT INTO domain_events (id, topic, account_id, payload) VALUES ($1, $2, $3, $4)`,
		uuid.New(), topic, accountID, body)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}
