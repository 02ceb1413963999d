package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mayukhjana/ticket-stamp-scan-track/internal/domain"
)

type EventRepository struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

func (r *EventRepository) CreateEvent(ctx context.Context, event domain.Event) error {
	const stmt = `
INSERT INTO events (id, user_id, name, starts_at, ticket_count, template_url, qr_x, qr_y, qr_size, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, stmt,
		event.ID, event.UserID, event.Name, event.StartsAt, event.TicketCount,
		event.TemplateURL, event.QRX, event.QRY, event.QRSize, event.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (r *EventRepository) ListEvents(ctx context.Context, userID string) ([]domain.Event, error) {
	const query = `
SELECT id, user_id, name, starts_at, ticket_count, template_url, qr_x, qr_y, qr_size, created_at
FROM events
WHERE user_id = $1
ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, event)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate events: %w", rows.Err())
	}
	return events, nil
}

func (r *EventRepository) GetEvent(ctx context.Context, userID, eventID string) (domain.Event, error) {
	const query = `
SELECT id, user_id, name, starts_at, ticket_count, template_url, qr_x, qr_y, qr_size, created_at
FROM events
WHERE id = $1 AND user_id = $2`

	event, err := scanEvent(r.pool.QueryRow(ctx, query, eventID, userID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Event{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Event{}, domain.ErrEventNotFound
		}
		return domain.Event{}, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) UpdateEvent(ctx context.Context, event domain.Event) error {
	const stmt = `
UPDATE events
SET name = $3, starts_at = $4, ticket_count = $5, template_url = $6, qr_x = $7, qr_y = $8, qr_size = $9
WHERE id = $1 AND user_id = $2`

	tag, err := r.pool.Exec(ctx, stmt,
		event.ID, event.UserID, event.Name, event.StartsAt, event.TicketCount,
		event.TemplateURL, event.QRX, event.QRY, event.QRSize,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (r *EventRepository) DeleteEvent(ctx context.Context, userID, eventID string) error {
	const stmt = `DELETE FROM events WHERE id = $1 AND user_id = $2`

	tag, err := r.pool.Exec(ctx, stmt, eventID, userID)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func scanEvent(row pgx.Row) (domain.Event, error) {
	var e domain.Event
	err := row.Scan(
		&e.ID, &e.UserID, &e.Name, &e.StartsAt, &e.TicketCount,
		&e.TemplateURL, &e.QRX, &e.QRY, &e.QRSize, &e.CreatedAt,
	)
	return e, err
}
