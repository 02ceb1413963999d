package domain

import "time"

// Event is a ticketed event owned by an organizer. Template fields describe
// where the per-ticket QR code is placed on the uploaded ticket artwork.
type Event struct {
	ID          string
	UserID      string
	Name        string
	StartsAt    time.Time
	TicketCount int
	TemplateURL string
	QRX         int
	QRY         int
	QRSize      int
	CreatedAt   time.Time
}
