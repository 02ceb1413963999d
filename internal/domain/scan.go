package domain

import "time"

type ScanStatus string

const (
	ScanStatusValid     ScanStatus = "valid"
	ScanStatusInvalid   ScanStatus = "invalid"
	ScanStatusDuplicate ScanStatus = "duplicate"
)

// Fallback values used when a scanned payload is malformed or incomplete.
const (
	UnknownEventName = "Unknown Event"
	InvalidEventName = "Invalid"
)

// Messages fixed at classification time, shown to the operator as-is.
const (
	MessageValid         = "Valid ticket - Access granted"
	MessageDuplicate     = "Ticket already scanned!"
	MessageInvalidFormat = "Invalid QR code format"
)

// ScanResult records one scan attempt. Rows are append-only: status and
// message are fixed at creation and never updated afterwards.
type ScanResult struct {
	ID           string
	UserID       string
	EventName    string
	TicketNumber int
	Status       ScanStatus
	Message      string
	ScanTime     time.Time
}

// Key returns the identity used for duplicate detection. Tickets collide
// only within the same event name, never on ticket number alone.
func (s ScanResult) Key() ScanKey {
	return ScanKey{EventName: s.EventName, TicketNumber: s.TicketNumber}
}

type ScanKey struct {
	EventName    string
	TicketNumber int
}
