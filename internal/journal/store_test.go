package journal

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndQuery(t *testing.T) {
	s := openTemp(t)

	// one at a time so ids follow call order
	for _, f := range []struct{ action, raw string }{
		{"open", `{"action":"open","playerId":1}`},
		{"refresh", `{"action":"refresh","listings":[{"item":"bread"}]}`},
		{"refresh", `{"action":"refresh","buyOrders":[{"item":"water"}]}`},
		{"", `garbage`},
	} {
		s.Record(f.action, []byte(f.raw))
		s.Flush()
	}

	ctx := context.Background()
	all, err := s.Query(ctx, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 || all[0].Action != "open" || all[3].Action != "unknown" {
		t.Fatalf("all = %+v", all)
	}
	if all[0].Received.IsZero() {
		t.Errorf("received not parsed")
	}

	refreshes, _ := s.Query(ctx, Filter{Action: "refresh"})
	if len(refreshes) != 2 || refreshes[0].ID >= refreshes[1].ID {
		t.Errorf("refreshes = %+v", refreshes)
	}

	water, _ := s.Query(ctx, Filter{Contains: "water"})
	if len(water) != 1 || water[0].Action != "refresh" {
		t.Errorf("contains = %+v", water)
	}

	last, _ := s.Query(ctx, Filter{Limit: 2})
	if len(last) != 2 || last[0].Action != "refresh" || last[1].Action != "unknown" {
		t.Errorf("limit = %+v", last)
	}
}

func TestEvictionKeepsBudget(t *testing.T) {
	s := openTemp(t)
	s.maxBytes = 1000

	raw := make([]byte, 100)
	for i := range raw {
		raw[i] = 'x'
	}
	for i := 0; i < 30; i++ {
		s.Record("refresh", raw)
	}
	s.Flush()

	if s.cachedSize > s.maxBytes {
		t.Errorf("cachedSize = %d, want <= %d", s.cachedSize, s.maxBytes)
	}
	rows, _ := s.Query(context.Background(), Filter{})
	if len(rows) == 0 || len(rows) > 10 {
		t.Errorf("rows after eviction = %d", len(rows))
	}
}

func TestEvictionDropsOldestFirst(t *testing.T) {
	s := openTemp(t)
	s.maxBytes = 1000

	raw := []byte(strings.Repeat("x", 100))
	for i := 0; i < 30; i++ {
		s.Record("refresh", raw)
		s.Flush()
	}

	rows, err := s.Query(context.Background(), Filter{})
	if err != nil {
		t.Fatal(err)
	}
	// 11th row trips the budget and the whole batch goes; same at row 22
	if len(rows) != 8 {
		t.Fatalf("rows = %d, want 8", len(rows))
	}
	if rows[0].ID != 23 || rows[7].ID != 30 {
		t.Errorf("kept ids %d..%d, want 23..30", rows[0].ID, rows[7].ID)
	}

	var onDisk int64
	if err := s.db.QueryRow(`SELECT COALESCE(SUM(byte_size), 0) FROM inbound_frames`).Scan(&onDisk); err != nil {
		t.Fatal(err)
	}
	if onDisk != s.cachedSize {
		t.Errorf("on disk = %d, cachedSize = %d", onDisk, s.cachedSize)
	}
}

func TestNilStoreIsNoop(t *testing.T) {
	var s *Store
	s.Record("open", []byte("{}"))
	s.Flush()
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}
