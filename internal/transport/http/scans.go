package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/mayukhjana/ticket-stamp-scan-track/internal/domain"
)

// ScanSubmitter is the minimal interface needed to record a scan attempt.
type ScanSubmitter interface {
	Submit(ctx context.Context, userID, raw string) (domain.ScanResult, error)
}

// ScanLoader is the minimal interface needed to fetch recent scan history.
type ScanLoader interface {
	Load(ctx context.Context, userID string) ([]domain.ScanResult, error)
}

// ScanStreamer is the minimal interface needed for the live scan feed.
type ScanStreamer interface {
	Subscribe(ctx context.Context, userID string) <-chan domain.ScanResult
}

type submitScanRequest struct {
	Payload string `json:"payload"`
}

type scanResponse struct {
	ID           string    `json:"id"`
	EventName    string    `json:"event_name"`
	TicketNumber int       `json:"ticket_number"`
	Status       string    `json:"status"`
	Message      string    `json:"message"`
	ScanTime     time.Time `json:"scan_time"`
}

func toScanResponse(s domain.ScanResult) scanResponse {
	return scanResponse{
		ID:           s.ID,
		EventName:    s.EventName,
		TicketNumber: s.TicketNumber,
		Status:       string(s.Status),
		Message:      s.Message,
		ScanTime:     s.ScanTime,
	}
}

// HandleSubmitScan records one scan attempt (camera detection or manual
// entry). An unparseable payload is still a 201: invalid is a
// classification, not a request error. Only a persist failure is an error,
// since the operator must know the scan was not recorded.
func HandleSubmitScan(svc ScanSubmitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserID(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
			return
		}

		var req submitScanRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.Payload == "" {
			writeError(w, http.StatusBadRequest, codePayloadRequired, "payload required")
			return
		}

		result, err := svc.Submit(r.Context(), userID, req.Payload)
		if err != nil {
			writeError(w, http.StatusBadGateway, codeScanNotRecorded, "scan could not be recorded")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(toScanResponse(result))
	}
}

// HandleListScans returns the most recent scans for the current user. A
// load that exhausts its retries degrades to an empty list; the failure is
// logged rather than propagated, matching the fail-soft history contract.
func HandleListScans(svc ScanLoader, logger *log.Logger) http.HandlerFunc {
	if logger == nil {
		logger = log.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserID(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
			return
		}

		results, err := svc.Load(r.Context(), userID)
		if err != nil {
			logger.Printf("WARN: scan history load failed for user %s: %v", userID, err)
		}

		resp := make([]scanResponse, 0, len(results))
		for _, s := range results {
			resp = append(resp, toScanResponse(s))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// HandleScanStream pushes newly merged scan results to the client as
// server-sent events, keeping open scanner tabs consistent with each other.
func HandleScanStream(svc ScanStreamer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserID(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, codeInternalError, "streaming unsupported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		updates := svc.Subscribe(r.Context(), userID)
		for {
			select {
			case <-r.Context().Done():
				return
			case scan, open := <-updates:
				if !open {
					return
				}
				body, err := json.Marshal(toScanResponse(scan))
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: scan\ndata: %s\n\n", body)
				flusher.Flush()
			}
		}
	}
}
