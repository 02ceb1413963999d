package domain

import "errors"

var (
	ErrMalformedPayload    = errors.New("malformed ticket payload")
	ErrEventNotFound       = errors.New("event not found")
	ErrEventNameRequired   = errors.New("event name required")
	ErrInvalidTicketCount  = errors.New("invalid ticket count")
	ErrInvalidTicketNumber = errors.New("invalid ticket number")
	ErrInvalidID           = errors.New("invalid id")
)
