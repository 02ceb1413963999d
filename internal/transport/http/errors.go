package http

import (
	"encoding/json"
	"net/http"
)

const (
	codeMethodNotAllowed    = "method_not_allowed"
	codeNotFound            = "not_found"
	codeInvalidRequestBody  = "invalid_request_body"
	codeInvalidStartsAt     = "invalid_starts_at"
	codeInvalidID           = "invalid_id"
	codeEventNameRequired   = "event_name_required"
	codeInvalidTicketCount  = "invalid_ticket_count"
	codeInvalidTicketNumber = "invalid_ticket_number"
	codeEventNotFound       = "event_not_found"
	codePayloadRequired     = "payload_required"
	codeScanNotRecorded     = "scan_not_recorded"
	codeUnauthorized        = "unauthorized"
	codeForbidden           = "forbidden"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}
