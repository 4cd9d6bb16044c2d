package derive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/hazyhaar/storefeed/internal/store"
)

func seedProducts(t *testing.T, s *store.Store, prices ...float64) {
	t.Helper()
	rows := make([][]any, 0, len(prices))
	for i, p := range prices {
		rows = append(rows, []any{
			int64(i + 1), fmt.Sprintf("Item %d", i+1), "img.png", p, "desc",
			"brand", "model", nil, "cat", nil, false, false,
		})
	}
	if _, err := s.Upsert(context.Background(), store.ProductsRelation, rows, store.UpsertOptions{}); err != nil {
		t.Fatalf("seed products: %v", err)
	}
}

func rankedPrices(t *testing.T, s *store.Store) []float64 {
	t.Helper()
	rows, err := s.DB.Query(`SELECT price FROM most_expensive ORDER BY id`)
	if err != nil {
		t.Fatalf("query most_expensive: %v", err)
	}
	defer rows.Close()
	var prices []float64
	for rows.Next() {
		var p float64
		if err := rows.Scan(&p); err != nil {
			t.Fatalf("scan: %v", err)
		}
		prices = append(prices, p)
	}
	return prices
}

func TestMostExpensiveTopTen(t *testing.T) {
	// WHAT: With 15 distinct prices the rebuild keeps exactly the 10 largest,
	// descending.
	s := store.OpenMemory(t)
	var prices []float64
	for i := 1; i <= 15; i++ {
		prices = append(prices, float64(i*10))
	}
	seedProducts(t, s, prices...)

	n, err := NewMostExpensive(s, nil).Rebuild(context.Background())
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if n != 10 {
		t.Errorf("count: got %d, want 10", n)
	}

	got := rankedPrices(t, s)
	if len(got) != 10 {
		t.Fatalf("rows: got %d, want 10", len(got))
	}
	for i, p := range got {
		want := float64((15 - i) * 10)
		if p != want {
			t.Errorf("rank %d: got %v, want %v", i, p, want)
		}
	}
}

func TestMostExpensiveFewerThanTen(t *testing.T) {
	// WHAT: With N <= 10 products the projection holds exactly N rows.
	s := store.OpenMemory(t)
	seedProducts(t, s, 5, 3, 8)

	n, err := NewMostExpensive(s, nil).Rebuild(context.Background())
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if n != 3 {
		t.Errorf("count: got %d, want 3", n)
	}
	got := rankedPrices(t, s)
	if len(got) != 3 || got[0] != 8 || got[2] != 3 {
		t.Errorf("prices: got %v, want [8 5 3]", got)
	}
}

func TestMostExpensiveEmptySource(t *testing.T) {
	// WHAT: An empty products relation yields 0 and an empty projection, no
	// error.
	s := store.OpenMemory(t)

	n, err := NewMostExpensive(s, nil).Rebuild(context.Background())
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if n != 0 {
		t.Errorf("count: got %d, want 0", n)
	}
	if got := rankedPrices(t, s); len(got) != 0 {
		t.Errorf("rows: got %d, want 0", len(got))
	}
}

func TestMostExpensiveLogsOutcome(t *testing.T) {
	// WHAT: A successful rebuild reports its row count through the builder's
	// logger at debug level.
	s := store.OpenMemory(t)
	seedProducts(t, s, 5, 3)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if _, err := NewMostExpensive(s, logger).Rebuild(context.Background()); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "most_expensive rebuilt") || !strings.Contains(out, "rows=2") {
		t.Errorf("log output missing rebuild record: %q", out)
	}
}

func TestMostExpensiveClearsStaleRows(t *testing.T) {
	// WHAT: A rebuild fully replaces the previous snapshot.
	// WHY: The projection is recomputed, never incrementally updated.
	s := store.OpenMemory(t)
	if _, err := s.DB.Exec(
		`INSERT INTO most_expensive (product_name, price, category) VALUES ('stale', 1, 'old')`); err != nil {
		t.Fatalf("seed stale: %v", err)
	}
	seedProducts(t, s, 42)

	n, err := NewMostExpensive(s, nil).Rebuild(context.Background())
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if n != 1 {
		t.Errorf("count: got %d, want 1", n)
	}
	got := rankedPrices(t, s)
	if len(got) != 1 || got[0] != 42 {
		t.Errorf("prices: got %v, want [42]", got)
	}
}

func TestMostExpensivePhaseError(t *testing.T) {
	// WHAT: A failure in the clear phase surfaces as a RebuildError tagged
	// with that phase.
	s := store.OpenMemory(t)
	if _, err := s.DB.Exec(`DROP TABLE most_expensive`); err != nil {
		t.Fatalf("drop: %v", err)
	}

	_, err := NewMostExpensive(s, nil).Rebuild(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	var rerr *RebuildError
	if !errors.As(err, &rerr) {
		t.Fatalf("error type: got %T, want *RebuildError", err)
	}
	if rerr.Phase != PhaseClear {
		t.Errorf("phase: got %q, want %q", rerr.Phase, PhaseClear)
	}
	if rerr.Projection != "most_expensive" {
		t.Errorf("projection: got %q", rerr.Projection)
	}
}
