package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-pos/internal/events"
)

// Events persists domain events in Postgres.
type Events struct {
	Pool *pgxpool.Pool
}

// InsertEvent appends one event to the domain event log.
func (r Events) InsertEvent(ctx context.Context, topic string, aggregateID uuid.UUID, payload []byte) (events.Event, error) {
	var (
		id         pgtype.UUID
		occurredAt pgtype.Timestamptz
	)
	err := r.Pool.QueryRow(ctx, `
		INSERT INTO domain_events (topic, aggregate_id, payload)
		VALUES ($1,$2,$3)
		RETURNING id, occurred_at`,
		topic, pgUUID(aggregateID), payload,
	).Scan(&id, &occurredAt)
	if err != nil {
		return events.Event{}, fmt.Errorf("insert event: %w", err)
	}
	return events.Event{
		ID:          fromPGUUID(id),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  occurredAt.Time,
	}, nil
}
