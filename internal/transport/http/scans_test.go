package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mayukhjana/ticket-stamp-scan-track/internal/domain"
)

type fakeScanService struct {
	submitResult domain.ScanResult
	submitErr    error
	submittedRaw string

	loadResults []domain.ScanResult
	loadErr     error

	updates chan domain.ScanResult
}

func (f *fakeScanService) Submit(_ context.Context, _, raw string) (domain.ScanResult, error) {
	f.submittedRaw = raw
	if f.submitErr != nil {
		return domain.ScanResult{}, f.submitErr
	}
	return f.submitResult, nil
}

func (f *fakeScanService) Load(_ context.Context, _ string) ([]domain.ScanResult, error) {
	return f.loadResults, f.loadErr
}

func (f *fakeScanService) Subscribe(_ context.Context, _ string) <-chan domain.ScanResult {
	return f.updates
}

func authedRequest(method, target string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	return req.WithContext(context.WithValue(req.Context(), userIDKey, "user-1"))
}

func TestHandleSubmitScan(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("records scan and returns classification", func(t *testing.T) {
		svc := &fakeScanService{
			submitResult: domain.ScanResult{
				ID:           "scan-1",
				EventName:    "Summer Gala",
				TicketNumber: 7,
				Status:       domain.ScanStatusValid,
				Message:      domain.MessageValid,
				ScanTime:     now,
			},
		}

		rec := httptest.NewRecorder()
		HandleSubmitScan(svc).ServeHTTP(rec, authedRequest(http.MethodPost, "/scans", []byte(`{"payload":"{\"eventName\":\"Summer Gala\",\"ticketNumber\":7}"}`)))

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}
		var resp scanResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.ID != "scan-1" || resp.Status != "valid" {
			t.Fatalf("unexpected response %+v", resp)
		}
		if !strings.Contains(svc.submittedRaw, "Summer Gala") {
			t.Fatalf("expected raw payload forwarded, got %q", svc.submittedRaw)
		}
	})

	t.Run("invalid classification is still a 201", func(t *testing.T) {
		svc := &fakeScanService{
			submitResult: domain.ScanResult{
				ID:        "scan-2",
				EventName: domain.InvalidEventName,
				Status:    domain.ScanStatusInvalid,
				Message:   domain.MessageInvalidFormat,
				ScanTime:  now,
			},
		}

		rec := httptest.NewRecorder()
		HandleSubmitScan(svc).ServeHTTP(rec, authedRequest(http.MethodPost, "/scans", []byte(`{"payload":"not json"}`)))

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201 for invalid classification, got %d", rec.Code)
		}
	})

	t.Run("persist failure maps to bad gateway", func(t *testing.T) {
		svc := &fakeScanService{submitErr: errors.New("db down")}

		rec := httptest.NewRecorder()
		HandleSubmitScan(svc).ServeHTTP(rec, authedRequest(http.MethodPost, "/scans", []byte(`{"payload":"x"}`)))

		if rec.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", rec.Code)
		}
		var resp errorResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Code != codeScanNotRecorded {
			t.Fatalf("expected code %s, got %s", codeScanNotRecorded, resp.Code)
		}
	})

	t.Run("rejects empty payload", func(t *testing.T) {
		rec := httptest.NewRecorder()
		HandleSubmitScan(&fakeScanService{}).ServeHTTP(rec, authedRequest(http.MethodPost, "/scans", []byte(`{"payload":""}`)))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("rejects unauthenticated requests", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/scans", strings.NewReader(`{"payload":"x"}`))
		HandleSubmitScan(&fakeScanService{}).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestHandleListScans(t *testing.T) {
	t.Parallel()

	t.Run("returns recent scans", func(t *testing.T) {
		svc := &fakeScanService{
			loadResults: []domain.ScanResult{
				{ID: "scan-2", EventName: "E", TicketNumber: 2, Status: domain.ScanStatusValid},
				{ID: "scan-1", EventName: "E", TicketNumber: 1, Status: domain.ScanStatusValid},
			},
		}

		rec := httptest.NewRecorder()
		HandleListScans(svc, nil).ServeHTTP(rec, authedRequest(http.MethodGet, "/scans", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var resp []scanResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(resp) != 2 || resp[0].ID != "scan-2" {
			t.Fatalf("unexpected response %+v", resp)
		}
	})

	t.Run("exhausted load degrades to empty list", func(t *testing.T) {
		buf := &bytes.Buffer{}
		svc := &fakeScanService{loadErr: errors.New("timeout")}

		rec := httptest.NewRecorder()
		HandleListScans(svc, log.New(buf, "", 0)).ServeHTTP(rec, authedRequest(http.MethodGet, "/scans", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected fail-soft 200, got %d", rec.Code)
		}
		if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
			t.Fatalf("expected empty list, got %q", body)
		}
		if !strings.Contains(buf.String(), "WARN") {
			t.Fatalf("expected load failure logged, got %q", buf.String())
		}
	})
}

func TestHandleScanStream(t *testing.T) {
	t.Parallel()

	updates := make(chan domain.ScanResult, 1)
	updates <- domain.ScanResult{ID: "scan-1", EventName: "E", TicketNumber: 1, Status: domain.ScanStatusValid}
	close(updates)
	svc := &fakeScanService{updates: updates}

	rec := httptest.NewRecorder()
	HandleScanStream(svc).ServeHTTP(rec, authedRequest(http.MethodGet, "/scans/stream", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event stream content type, got %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "event: scan") || !strings.Contains(body, `"id":"scan-1"`) {
		t.Fatalf("unexpected stream body %q", body)
	}
}
