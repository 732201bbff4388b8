package history_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ibralyousef/polaroid-batch-scanner/internal/history"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "logs", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendAndRecent(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		_, err := store.Append(ctx, history.Record{
			SessionID:  "session-1",
			Cartridge:  "P#003",
			Filename:   "P#003_20260823_000" + string(rune('0'+i)) + ".tiff",
			Path:       "/tmp/out",
			Position:   i,
			Resolution: 1200,
			Mode:       "Color",
			Format:     "tiff",
			Bytes:      int64(1000 * i),
		})
		if err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	records, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Position != 3 || records[1].Position != 2 {
		t.Fatalf("records not newest-first: %+v", records)
	}
	if records[0].ScannedAt.IsZero() {
		t.Fatal("scanned_at not round-tripped")
	}
}

func TestByCartridgeFiltersAndOrders(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	seed := []history.Record{
		{SessionID: "s1", Cartridge: "P#001", Filename: "a", Path: "/x", Position: 1, Resolution: 300, Mode: "Color", Format: "tiff"},
		{SessionID: "s1", Cartridge: "F#002", Filename: "b", Path: "/x", Position: 2, Resolution: 300, Mode: "Color", Format: "tiff"},
		{SessionID: "s2", Cartridge: "P#001", Filename: "c", Path: "/x", Position: 3, Resolution: 300, Mode: "Color", Format: "tiff"},
	}
	for _, rec := range seed {
		if _, err := store.Append(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	records, err := store.ByCartridge(ctx, "P#001")
	if err != nil {
		t.Fatalf("ByCartridge: %v", err)
	}
	if len(records) != 2 || records[0].Filename != "a" || records[1].Filename != "c" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestSessionCount(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if _, err := store.Append(ctx, history.Record{
		SessionID: "s1", Cartridge: "P#001", Filename: "a", Path: "/x",
		Position: 1, Resolution: 300, Mode: "Color", Format: "tiff",
		ScannedAt: time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatal(err)
	}

	count, err := store.SessionCount(ctx, "s1")
	if err != nil {
		t.Fatalf("SessionCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1, got %d", count)
	}
	if count, _ := store.SessionCount(ctx, "other"); count != 0 {
		t.Fatalf("expected 0 for unknown session, got %d", count)
	}
}

func TestReopenKeepsRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")

	store, err := history.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Append(context.Background(), history.Record{
		SessionID: "s1", Cartridge: "P#001", Filename: "a", Path: "/x",
		Position: 1, Resolution: 300, Mode: "Color", Format: "tiff",
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := history.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	records, err := reopened.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record after reopen, got %d", len(records))
	}
}
