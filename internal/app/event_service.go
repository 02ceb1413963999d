package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mayukhjana/ticket-stamp-scan-track/internal/clock"
	"github.com/mayukhjana/ticket-stamp-scan-track/internal/domain"
)

type EventRepository interface {
	CreateEvent(ctx context.Context, event domain.Event) error
	ListEvents(ctx context.Context, userID string) ([]domain.Event, error)
	GetEvent(ctx context.Context, userID, eventID string) (domain.Event, error)
	UpdateEvent(ctx context.Context, event domain.Event) error
	DeleteEvent(ctx context.Context, userID, eventID string) error
}

// EventService owns organizer-facing event CRUD. Scan classification only
// needs the event name, but generation needs the full record (ticket count
// plus template placement).
type EventService struct {
	repo  EventRepository
	clock clock.Clock
}

func NewEventService(repo EventRepository, clk clock.Clock) *EventService {
	return &EventService{
		repo:  repo,
		clock: clk,
	}
}

type CreateEventInput struct {
	Name        string
	StartsAt    *time.Time
	TicketCount int
	TemplateURL string
	QRX         int
	QRY         int
	QRSize      int
}

func (s *EventService) CreateEvent(ctx context.Context, userID string, in CreateEventInput) (domain.Event, error) {
	if in.Name == "" {
		return domain.Event{}, domain.ErrEventNameRequired
	}
	if in.TicketCount <= 0 {
		return domain.Event{}, domain.ErrInvalidTicketCount
	}

	now := s.clock.Now()
	startsAt := now
	if in.StartsAt != nil {
		startsAt = *in.StartsAt
	}

	event := domain.Event{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        in.Name,
		StartsAt:    startsAt,
		TicketCount: in.TicketCount,
		TemplateURL: in.TemplateURL,
		QRX:         in.QRX,
		QRY:         in.QRY,
		QRSize:      in.QRSize,
		CreatedAt:   now,
	}

	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return domain.Event{}, err
	}
	return event, nil
}

func (s *EventService) ListEvents(ctx context.Context, userID string) ([]domain.Event, error) {
	return s.repo.ListEvents(ctx, userID)
}

func (s *EventService) GetEvent(ctx context.Context, userID, eventID string) (domain.Event, error) {
	if eventID == "" {
		return domain.Event{}, domain.ErrInvalidID
	}
	return s.repo.GetEvent(ctx, userID, eventID)
}

// UpdateEventInput carries partial updates; nil fields are left unchanged.
type UpdateEventInput struct {
	Name        *string
	StartsAt    *time.Time
	TicketCount *int
	TemplateURL *string
	QRX         *int
	QRY         *int
	QRSize      *int
}

func (s *EventService) UpdateEvent(ctx context.Context, userID, eventID string, in UpdateEventInput) (domain.Event, error) {
	if eventID == "" {
		return domain.Event{}, domain.ErrInvalidID
	}

	event, err := s.repo.GetEvent(ctx, userID, eventID)
	if err != nil {
		return domain.Event{}, err
	}

	if in.Name != nil {
		if *in.Name == "" {
			return domain.Event{}, domain.ErrEventNameRequired
		}
		event.Name = *in.Name
	}
	if in.StartsAt != nil {
		event.StartsAt = *in.StartsAt
	}
	if in.TicketCount != nil {
		if *in.TicketCount <= 0 {
			return domain.Event{}, domain.ErrInvalidTicketCount
		}
		event.TicketCount = *in.TicketCount
	}
	if in.TemplateURL != nil {
		event.TemplateURL = *in.TemplateURL
	}
	if in.QRX != nil {
		event.QRX = *in.QRX
	}
	if in.QRY != nil {
		event.QRY = *in.QRY
	}
	if in.QRSize != nil {
		event.QRSize = *in.QRSize
	}

	if err := s.repo.UpdateEvent(ctx, event); err != nil {
		return domain.Event{}, err
	}
	return event, nil
}

func (s *EventService) DeleteEvent(ctx context.Context, userID, eventID string) error {
	if eventID == "" {
		return domain.ErrInvalidID
	}
	return s.repo.DeleteEvent(ctx, userID, eventID)
}
