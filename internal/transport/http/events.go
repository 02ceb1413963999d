package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/mayukhjana/ticket-stamp-scan-track/internal/app"
	"github.com/mayukhjana/ticket-stamp-scan-track/internal/domain"
	"github.com/mayukhjana/ticket-stamp-scan-track/internal/qr"
)

// EventService is the minimal interface needed by the event endpoints.
type EventService interface {
	CreateEvent(ctx context.Context, userID string, in app.CreateEventInput) (domain.Event, error)
	ListEvents(ctx context.Context, userID string) ([]domain.Event, error)
	GetEvent(ctx context.Context, userID, eventID string) (domain.Event, error)
	UpdateEvent(ctx context.Context, userID, eventID string, in app.UpdateEventInput) (domain.Event, error)
	DeleteEvent(ctx context.Context, userID, eventID string) error
}

type createEventRequest struct {
	Name        string `json:"name"`
	StartsAt    string `json:"starts_at"`
	TicketCount int    `json:"ticket_count"`
	TemplateURL string `json:"template_url"`
	QRX         int    `json:"qr_x"`
	QRY         int    `json:"qr_y"`
	QRSize      int    `json:"qr_size"`
}

type updateEventRequest struct {
	Name        *string `json:"name"`
	StartsAt    *string `json:"starts_at"`
	TicketCount *int    `json:"ticket_count"`
	TemplateURL *string `json:"template_url"`
	QRX         *int    `json:"qr_x"`
	QRY         *int    `json:"qr_y"`
	QRSize      *int    `json:"qr_size"`
}

type eventResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	StartsAt    time.Time `json:"starts_at"`
	TicketCount int       `json:"ticket_count"`
	TemplateURL string    `json:"template_url"`
	QRX         int       `json:"qr_x"`
	QRY         int       `json:"qr_y"`
	QRSize      int       `json:"qr_size"`
	CreatedAt   time.Time `json:"created_at"`
}

func toEventResponse(e domain.Event) eventResponse {
	return eventResponse{
		ID:          e.ID,
		Name:        e.Name,
		StartsAt:    e.StartsAt,
		TicketCount: e.TicketCount,
		TemplateURL: e.TemplateURL,
		QRX:         e.QRX,
		QRY:         e.QRY,
		QRSize:      e.QRSize,
		CreatedAt:   e.CreatedAt,
	}
}

// HandleEvents serves event listing and creation.
func HandleEvents(svc EventService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserID(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
			return
		}

		switch r.Method {
		case http.MethodGet:
			events, err := svc.ListEvents(r.Context(), userID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}
			resp := make([]eventResponse, 0, len(events))
			for _, event := range events {
				resp = append(resp, toEventResponse(event))
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
		case http.MethodPost:
			var req createEventRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			var startsAt *time.Time
			if req.StartsAt != "" {
				parsed, err := time.Parse(time.RFC3339, req.StartsAt)
				if err != nil {
					writeError(w, http.StatusBadRequest, codeInvalidStartsAt, "invalid starts_at format")
					return
				}
				startsAt = &parsed
			}

			event, err := svc.CreateEvent(r.Context(), userID, app.CreateEventInput{
				Name:        req.Name,
				StartsAt:    startsAt,
				TicketCount: req.TicketCount,
				TemplateURL: req.TemplateURL,
				QRX:         req.QRX,
				QRY:         req.QRY,
				QRSize:      req.QRSize,
			})
			if err != nil {
				writeEventError(w, err)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(toEventResponse(event))
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleEvent serves read, partial update and delete of a single event.
func HandleEvent(svc EventService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserID(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
			return
		}
		eventID := mux.Vars(r)["id"]

		switch r.Method {
		case http.MethodGet:
			event, err := svc.GetEvent(r.Context(), userID, eventID)
			if err != nil {
				writeEventError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(toEventResponse(event))
		case http.MethodPatch:
			var req updateEventRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			in := app.UpdateEventInput{
				Name:        req.Name,
				TicketCount: req.TicketCount,
				TemplateURL: req.TemplateURL,
				QRX:         req.QRX,
				QRY:         req.QRY,
				QRSize:      req.QRSize,
			}
			if req.StartsAt != nil {
				parsed, err := time.Parse(time.RFC3339, *req.StartsAt)
				if err != nil {
					writeError(w, http.StatusBadRequest, codeInvalidStartsAt, "invalid starts_at format")
					return
				}
				in.StartsAt = &parsed
			}

			event, err := svc.UpdateEvent(r.Context(), userID, eventID, in)
			if err != nil {
				writeEventError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(toEventResponse(event))
		case http.MethodDelete:
			if err := svc.DeleteEvent(r.Context(), userID, eventID); err != nil {
				writeEventError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleTicketQR renders the QR image for one ticket of an event.
func HandleTicketQR(svc EventService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserID(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
			return
		}
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		vars := mux.Vars(r)
		ticketNumber, err := strconv.Atoi(vars["num"])
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidTicketNumber, domain.ErrInvalidTicketNumber.Error())
			return
		}

		event, err := svc.GetEvent(r.Context(), userID, vars["id"])
		if err != nil {
			writeEventError(w, err)
			return
		}

		payload, err := qr.NewTicketPayload(event, ticketNumber)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidTicketNumber, err.Error())
			return
		}
		png, err := qr.EncodePNG(payload, qr.DefaultImageSize)
		if err != nil {
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

func writeEventError(w http.ResponseWriter, err error) {
	switch err {
	case domain.ErrEventNameRequired:
		writeError(w, http.StatusBadRequest, codeEventNameRequired, err.Error())
	case domain.ErrInvalidTicketCount:
		writeError(w, http.StatusBadRequest, codeInvalidTicketCount, err.Error())
	case domain.ErrInvalidID:
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case domain.ErrEventNotFound:
		writeError(w, http.StatusNotFound, codeEventNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
