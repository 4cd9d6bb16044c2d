package derive

import (
	"context"
	"testing"

	"github.com/hazyhaar/storefeed/internal/store"
)

func TestRunAll(t *testing.T) {
	// WHAT: A full derive run reports one count per projection.
	s := store.OpenMemory(t)
	seedProducts(t, s, 10, 20, 30)
	seedUser(t, s, 1, `{"firstname":"Ada","lastname":"Lovelace"}`, goodAddress)

	results := NewRunner(s, nil).RunAll(context.Background())
	if results["most_expensive"] != 3 {
		t.Errorf("most_expensive: got %d, want 3", results["most_expensive"])
	}
	if results["ods_users"] != 1 {
		t.Errorf("ods_users: got %d, want 1", results["ods_users"])
	}
}

func TestRunAllPartialFailure(t *testing.T) {
	// WHAT: A failing projection is reported as 0 while the other still runs
	// and keeps its count.
	// WHY: The summary is complete and never-throwing even under partial
	// subsystem failure.
	s := store.OpenMemory(t)
	seedUser(t, s, 1, `{"firstname":"Ada","lastname":"Lovelace"}`, goodAddress)
	if _, err := s.DB.Exec(`DROP TABLE most_expensive`); err != nil {
		t.Fatalf("drop: %v", err)
	}

	results := NewRunner(s, nil).RunAll(context.Background())
	if results["most_expensive"] != 0 {
		t.Errorf("most_expensive: got %d, want 0", results["most_expensive"])
	}
	if results["ods_users"] != 1 {
		t.Errorf("ods_users: got %d, want 1", results["ods_users"])
	}
}
