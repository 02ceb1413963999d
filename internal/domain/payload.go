package domain

import "encoding/json"

// TicketPayload is the JSON document encoded into each ticket's QR code.
// Seed makes otherwise identical tickets produce distinct images.
type TicketPayload struct {
	EventID      string `json:"eventId,omitempty"`
	EventName    string `json:"eventName,omitempty"`
	TicketNumber int    `json:"ticketNumber,omitempty"`
	Seed         string `json:"seed,omitempty"`
}

// ParseTicketPayload decodes a raw scanned string. Any string can arrive
// here (hand-typed input, foreign QR codes), so a decode failure is a
// normal outcome, not an exception path.
func ParseTicketPayload(raw string) (TicketPayload, error) {
	var p TicketPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return TicketPayload{}, ErrMalformedPayload
	}
	return p, nil
}

// Encode serializes the payload for QR encoding.
func (p TicketPayload) Encode() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
