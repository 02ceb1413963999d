package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mayukhjana/ticket-stamp-scan-track/internal/domain"
)

// ScanRepository is the append-only scan result store. Rows are never
// updated or deleted here; recency ordering comes from the store-assigned
// scan_time.
type ScanRepository struct {
	pool *pgxpool.Pool
}

func NewScanRepository(pool *pgxpool.Pool) *ScanRepository {
	return &ScanRepository{pool: pool}
}

func (r *ScanRepository) InsertScan(ctx context.Context, scan domain.ScanResult) (domain.ScanResult, error) {
	const stmt = `
INSERT INTO scan_results (id, user_id, event_name, ticket_number, status, message)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING scan_time`

	scan.ID = uuid.NewString()
	err := r.pool.QueryRow(ctx, stmt,
		scan.ID, scan.UserID, scan.EventName, scan.TicketNumber, string(scan.Status), scan.Message,
	).Scan(&scan.ScanTime)
	if err != nil {
		return domain.ScanResult{}, fmt.Errorf("insert scan: %w", err)
	}
	return scan, nil
}

func (r *ScanRepository) ListRecentScans(ctx context.Context, userID string, limit int) ([]domain.ScanResult, error) {
	const query = `
SELECT id, user_id, event_name, ticket_number, status, message, scan_time
FROM scan_results
WHERE user_id = $1
ORDER BY scan_time DESC, id DESC
LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	defer rows.Close()

	var scans []domain.ScanResult
	for rows.Next() {
		var s domain.ScanResult
		var status string
		if err := rows.Scan(&s.ID, &s.UserID, &s.EventName, &s.TicketNumber, &status, &s.Message, &s.ScanTime); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		s.Status = domain.ScanStatus(status)
		scans = append(scans, s)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate scans: %w", rows.Err())
	}
	return scans, nil
}
