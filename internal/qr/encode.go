package qr

import (
	"fmt"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/mayukhjana/ticket-stamp-scan-track/internal/domain"
)

// DefaultImageSize is the side length in pixels of generated QR images;
// large enough to survive template downscaling.
const DefaultImageSize = 256

// NewTicketPayload builds the payload for one ticket of an event. The seed
// makes two tickets with the same number (after a count change) produce
// distinct codes.
func NewTicketPayload(event domain.Event, ticketNumber int) (domain.TicketPayload, error) {
	if ticketNumber < 1 || ticketNumber > event.TicketCount {
		return domain.TicketPayload{}, domain.ErrInvalidTicketNumber
	}
	return domain.TicketPayload{
		EventID:      event.ID,
		EventName:    event.Name,
		TicketNumber: ticketNumber,
		Seed:         uuid.NewString(),
	}, nil
}

// EncodePNG renders the payload as a PNG QR image with medium error
// correction.
func EncodePNG(p domain.TicketPayload, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultImageSize
	}
	raw, err := p.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	png, err := qrcode.Encode(raw, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
