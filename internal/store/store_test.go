package store

import (
	"path/filepath"
	"testing"

	"tourneyforge.dev/internal/domain"
	"tourneyforge.dev/internal/rating"
)

func sampleConfig() domain.TournamentConfig {
	return domain.TournamentConfig{
		Name:           "demo-cup",
		Rounds:         1,
		GamesPerPlayer: 1,
		MaxTurns:       100,
		Players: []domain.PlayerConfig{
			{ID: "p1", Name: "p1", Endpoint: "random"},
			{ID: "p2", Name: "p2", Endpoint: "random"},
			{ID: "p3", Name: "p3", Endpoint: "random"},
			{ID: "p4", Name: "p4", Endpoint: "random"},
		},
	}
}

func TestWriteMetadataAndReadBack(t *testing.T) {
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "demo-cup"))
	if err != nil {
		t.Fatal(err)
	}
	cfg := sampleConfig()
	if err := s.WriteMetadata(cfg); err != nil {
		t.Fatal(err)
	}
	got, err := s.ReadMetadata()
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != cfg.Name || len(got.Players) != len(cfg.Players) {
		t.Fatalf("roundtrip mismatch: got %+v", got)
	}
}

func TestRoundExistsAndWriteRound(t *testing.T) {
	dir := t.TempDir()
	s, _ := New(dir)
	if s.RoundExists(1) {
		t.Fatal("round should not exist yet")
	}
	round := domain.RoundResult{
		RoundNumber:  1,
		KingdomCards: []string{"village", "smithy"},
		Matches: []domain.Match{{
			TableNumber: 1,
			PlayerIDs:   []string{"p1", "p2", "p3", "p4"},
			Outcomes: []domain.GameOutcome{{
				IndexWithinRound: 0,
				TableNumber:      1,
				Placements: []domain.Placement{
					{PlayerID: "p1", Score: 10},
					{PlayerID: "p2", Score: 5},
					{PlayerID: "p3", Score: 3},
					{PlayerID: "p4", Score: 1},
				},
			}},
		}},
	}
	if err := s.WriteRound(round); err != nil {
		t.Fatal(err)
	}
	if !s.RoundExists(1) {
		t.Fatal("round should exist after write")
	}
	got, err := s.ReadRound(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Matches) != 1 || len(got.Matches[0].Outcomes) != 1 {
		t.Fatalf("unexpected round content: %+v", got)
	}
}

func TestBuildTapeEventOrderingAndSeq(t *testing.T) {
	dir := t.TempDir()
	s, _ := New(dir)
	cfg := sampleConfig()
	cfg.Rounds = 1
	if err := s.WriteMetadata(cfg); err != nil {
		t.Fatal(err)
	}
	round := domain.RoundResult{
		RoundNumber:  1,
		KingdomCards: []string{"village"},
		Matches: []domain.Match{
			{TableNumber: 2, PlayerIDs: []string{"p1", "p2", "p3", "p4"}, Outcomes: []domain.GameOutcome{{IndexWithinRound: 1, TableNumber: 2, Placements: samplePlacements()}}},
			{TableNumber: 1, PlayerIDs: []string{"p1", "p2", "p3", "p4"}, Outcomes: []domain.GameOutcome{{IndexWithinRound: 0, TableNumber: 1, Placements: samplePlacements()}}},
		},
	}
	if err := s.WriteRound(round); err != nil {
		t.Fatal(err)
	}

	tape, err := s.BuildTape(rating.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if len(tape.Events) != 2 {
		t.Fatalf("got %d events, want 2", len(tape.Events))
	}
	if tape.Events[0].Seq != 1 || tape.Events[1].Seq != 2 {
		t.Fatalf("seq not sequential: %+v", tape.Events)
	}
	if tape.Events[0].Game != 0 || tape.Events[1].Game != 1 {
		t.Fatalf("events not ordered by game index: %+v", tape.Events)
	}
}

func samplePlacements() []domain.Placement {
	return []domain.Placement{
		{PlayerID: "p1", Score: 10, Deck: []string{"village", "village"}},
		{PlayerID: "p2", Score: 5},
		{PlayerID: "p3", Score: 3},
		{PlayerID: "p4", Score: 1},
	}
}
