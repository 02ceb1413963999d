package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mayukhjana/ticket-stamp-scan-track/internal/domain"
)

// scanChannel matches the pg_notify channel used by the insert trigger in
// migrations/002_scan_notify.sql.
const scanChannel = "scan_results"

const defaultReconnectDelay = time.Second

// ScanListener is the live-update feed: it holds one pooled connection on
// LISTEN and hands every inserted scan row to the handler, so concurrently
// running stations converge on the same history. A broken connection is
// retried with a delay until the context ends.
type ScanListener struct {
	pool           *pgxpool.Pool
	logger         *log.Logger
	reconnectDelay time.Duration
}

func NewScanListener(pool *pgxpool.Pool, logger *log.Logger) *ScanListener {
	if logger == nil {
		logger = log.Default()
	}
	return &ScanListener{
		pool:           pool,
		logger:         logger,
		reconnectDelay: defaultReconnectDelay,
	}
}

// Listen blocks until the context is canceled, invoking handler for each
// notification. The handler runs on the listener goroutine and must not
// block.
func (l *ScanListener) Listen(ctx context.Context, handler func(domain.ScanResult)) error {
	for {
		if err := l.listenOnce(ctx, handler); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.Printf("WARN: scan listener disconnected: %v", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.reconnectDelay):
		}
	}
}

func (l *ScanListener) listenOnce(ctx context.Context, handler func(domain.ScanResult)) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen conn: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `LISTEN `+scanChannel); err != nil {
		return fmt.Errorf("listen %s: %w", scanChannel, err)
	}

	for {
		note, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		scan, err := decodeScanNotification(note.Payload)
		if err != nil {
			l.logger.Printf("WARN: dropping malformed scan notification: %v", err)
			continue
		}
		handler(scan)
	}
}

// scanRow mirrors row_to_json(NEW) from the notify trigger.
type scanRow struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	EventName    string    `json:"event_name"`
	TicketNumber int       `json:"ticket_number"`
	Status       string    `json:"status"`
	Message      string    `json:"message"`
	ScanTime     time.Time `json:"scan_time"`
}

func decodeScanNotification(payload string) (domain.ScanResult, error) {
	var row scanRow
	if err := json.Unmarshal([]byte(payload), &row); err != nil {
		return domain.ScanResult{}, fmt.Errorf("decode notification: %w", err)
	}
	return domain.ScanResult{
		ID:           row.ID,
		UserID:       row.UserID,
		EventName:    row.EventName,
		TicketNumber: row.TicketNumber,
		Status:       domain.ScanStatus(row.Status),
		Message:      row.Message,
		ScanTime:     row.ScanTime,
	}, nil
}
