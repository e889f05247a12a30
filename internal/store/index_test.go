package store

import (
	"path/filepath"
	"testing"
	"time"

	"tourneyforge.dev/internal/domain"
)

func TestIndexRecordRoundAndStatus(t *testing.T) {
	dir := t.TempDir()
	idx, err := OpenIndex(filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	idx.RecordRound("demo-cup", 1, 4)
	idx.RecordStatus(domain.TournamentStatus{
		ID:      "demo-cup",
		State:   domain.StateRunning,
		Ratings: map[string]float64{"p1": 28.4},
	})

	// Close drains the writer goroutine, giving the queued writes a chance
	// to land before we'd otherwise need to poll.
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	idx2, err := OpenIndex(filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer idx2.Close()

	var games int
	row := idx2.db.QueryRow(`SELECT games FROM rounds WHERE tournament=? AND round=?`, "demo-cup", 1)
	if err := row.Scan(&games); err != nil {
		t.Fatalf("round not indexed: %v", err)
	}
	if games != 4 {
		t.Fatalf("games = %d, want 4", games)
	}

	var display float64
	row = idx2.db.QueryRow(`SELECT display FROM ratings WHERE tournament=? AND player_id=?`, "demo-cup", "p1")
	if err := row.Scan(&display); err != nil {
		t.Fatalf("rating not indexed: %v", err)
	}
	if display != 28.4 {
		t.Fatalf("display = %v, want 28.4", display)
	}
}

func TestRecordOnNilIndexIsNoop(t *testing.T) {
	var idx *Index
	idx.RecordRound("x", 1, 1)
	idx.RecordStatus(domain.TournamentStatus{ID: "x"})
	_ = time.Now()
}
