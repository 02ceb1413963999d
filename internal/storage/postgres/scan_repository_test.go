package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/mayukhjana/ticket-stamp-scan-track/internal/domain"
	"github.com/mayukhjana/ticket-stamp-scan-track/internal/storage/postgres"
	"github.com/mayukhjana/ticket-stamp-scan-track/internal/testutil"
)

func TestScanRepository_InsertAndList(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	repo := postgres.NewScanRepository(pool)
	const user = "user-1"

	first, err := repo.InsertScan(ctx, domain.ScanResult{
		UserID:       user,
		EventName:    "Summer Gala",
		TicketNumber: 1,
		Status:       domain.ScanStatusValid,
		Message:      domain.MessageValid,
	})
	if err != nil {
		t.Fatalf("insert scan: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected store-assigned id")
	}
	if first.ScanTime.IsZero() {
		t.Fatal("expected store-assigned scan time")
	}

	second, err := repo.InsertScan(ctx, domain.ScanResult{
		UserID:       user,
		EventName:    "Summer Gala",
		TicketNumber: 2,
		Status:       domain.ScanStatusValid,
		Message:      domain.MessageValid,
	})
	if err != nil {
		t.Fatalf("insert scan: %v", err)
	}

	// Another user's scans must not leak into the list.
	if _, err := repo.InsertScan(ctx, domain.ScanResult{
		UserID:    "user-2",
		EventName: "Other",
		Status:    domain.ScanStatusValid,
	}); err != nil {
		t.Fatalf("insert scan: %v", err)
	}

	scans, err := repo.ListRecentScans(ctx, user, 25)
	if err != nil {
		t.Fatalf("list scans: %v", err)
	}
	if len(scans) != 2 {
		t.Fatalf("expected 2 scans, got %d", len(scans))
	}
	if scans[0].ID != second.ID {
		t.Fatalf("expected newest first, got %s", scans[0].ID)
	}
	if scans[1].ID != first.ID {
		t.Fatalf("expected older scan second, got %s", scans[1].ID)
	}
	if scans[0].Status != domain.ScanStatusValid || scans[0].Message != domain.MessageValid {
		t.Fatalf("unexpected round-trip %+v", scans[0])
	}

	bounded, err := repo.ListRecentScans(ctx, user, 1)
	if err != nil {
		t.Fatalf("list scans: %v", err)
	}
	if len(bounded) != 1 || bounded[0].ID != second.ID {
		t.Fatalf("expected bounded list with newest scan, got %+v", bounded)
	}
}

func TestScanListener_DeliversInserts(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	received := make(chan domain.ScanResult, 4)
	listener := postgres.NewScanListener(pool, nil)
	go func() {
		_ = listener.Listen(ctx, func(scan domain.ScanResult) {
			received <- scan
		})
	}()

	// Give the listener a moment to attach before inserting.
	time.Sleep(500 * time.Millisecond)

	// Insert the row directly: the notification comes from the database
	// trigger, not the repository.
	insertedID := testutil.InsertScan(t, ctx, pool, domain.ScanResult{
		UserID:       "user-1",
		EventName:    "Summer Gala",
		TicketNumber: 7,
		Status:       domain.ScanStatusValid,
		Message:      domain.MessageValid,
	})

	select {
	case scan := <-received:
		if scan.ID != insertedID {
			t.Fatalf("expected notification for %s, got %s", insertedID, scan.ID)
		}
		if scan.EventName != "Summer Gala" || scan.TicketNumber != 7 || scan.Status != domain.ScanStatusValid {
			t.Fatalf("unexpected notification payload %+v", scan)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for scan notification")
	}
}
