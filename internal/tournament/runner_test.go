package tournament

import (
	"context"
	"testing"

	"tourneyforge.dev/internal/broadcast"
	"tourneyforge.dev/internal/domain"
	"tourneyforge.dev/internal/engine"
	"tourneyforge.dev/internal/player"
	"tourneyforge.dev/internal/rating"
	"tourneyforge.dev/internal/store"
	"tourneyforge.dev/internal/table"
)

func fakeLoader() engine.Loader {
	return engine.LoaderFunc(func(players []player.Player, kingdom []string) (engine.Engine, error) {
		return fakeEngine{players: players}, nil
	})
}

type fakeEngine struct{ players []player.Player }

func (f fakeEngine) Play(ctx context.Context) (engine.Result, error) {
	results := make([]engine.PlayerResult, len(f.players))
	for i, p := range f.players {
		results[i] = engine.PlayerResult{Name: p.Name(), Score: len(f.players) - i}
	}
	return engine.Result{PlayerResults: results}, nil
}

func eightPlayerConfig() domain.TournamentConfig {
	var players []domain.PlayerConfig
	for i := 0; i < 8; i++ {
		id := string(rune('a' + i))
		players = append(players, domain.PlayerConfig{ID: id, Name: id, Endpoint: "random"})
	}
	return domain.TournamentConfig{
		Name:           "league-cup",
		Rounds:         2,
		GamesPerPlayer: 1,
		MaxTurns:       50,
		Players:        players,
	}
}

func TestRunCompletesAndWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	st, err := store.New(dir)
	if err != nil {
		t.Fatal(err)
	}
	exec := table.NewExecutor(player.NewFactory(player.NewRegistry(), nil), fakeLoader())
	bcast := broadcast.New()

	r := New(exec, st, bcast, rating.DefaultParams(), 4, nil)
	cfg := eightPlayerConfig()

	if err := r.Run(context.Background(), cfg); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	status, ok := bcast.Status(cfg.Name)
	if !ok || status.State != domain.StateCompleted {
		t.Fatalf("expected completed status, got %+v ok=%v", status, ok)
	}
	if !st.RoundExists(1) || !st.RoundExists(2) {
		t.Fatal("expected both rounds written")
	}
}

type panickingEngine struct{}

func (panickingEngine) Play(ctx context.Context) (engine.Result, error) {
	panic("engine exploded")
}

// TestRunSurvivesPanickingEngine exercises the full worker-pool path
// against an Engine that always panics: the run must still reach
// COMPLETED with every placement zeroed, never crash the pool.
func TestRunSurvivesPanickingEngine(t *testing.T) {
	dir := t.TempDir()
	st, err := store.New(dir)
	if err != nil {
		t.Fatal(err)
	}
	loader := engine.LoaderFunc(func(players []player.Player, kingdom []string) (engine.Engine, error) {
		return panickingEngine{}, nil
	})
	exec := table.NewExecutor(player.NewFactory(player.NewRegistry(), nil), loader)
	bcast := broadcast.New()

	r := New(exec, st, bcast, rating.DefaultParams(), 4, nil)
	cfg := eightPlayerConfig()
	cfg.Rounds = 1

	if err := r.Run(context.Background(), cfg); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	status, ok := bcast.Status(cfg.Name)
	if !ok || status.State != domain.StateCompleted {
		t.Fatalf("expected completed status despite panicking engine, got %+v ok=%v", status, ok)
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	st, _ := store.New(dir)
	exec := table.NewExecutor(player.NewFactory(player.NewRegistry(), nil), fakeLoader())
	bcast := broadcast.New()
	r := New(exec, st, bcast, rating.DefaultParams(), 4, nil)

	cfg := domain.TournamentConfig{Name: "x"}
	if err := r.Run(context.Background(), cfg); err == nil {
		t.Fatal("expected validation error")
	}
	status, ok := bcast.Status("x")
	if !ok || status.State != domain.StateFailed {
		t.Fatalf("expected failed status, got %+v", status)
	}
}

func TestRunSkipsAlreadyResumedRounds(t *testing.T) {
	dir := t.TempDir()
	st, _ := store.New(dir)
	cfg := eightPlayerConfig()
	cfg.Rounds = 1
	if err := st.WriteMetadata(cfg); err != nil {
		t.Fatal(err)
	}
	if err := st.WriteRound(domain.RoundResult{RoundNumber: 1, KingdomCards: []string{"village"}}); err != nil {
		t.Fatal(err)
	}

	exec := table.NewExecutor(player.NewFactory(player.NewRegistry(), nil), fakeLoader())
	bcast := broadcast.New()
	r := New(exec, st, bcast, rating.DefaultParams(), 4, nil)

	if err := r.Run(context.Background(), cfg); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	status, _ := bcast.Status(cfg.Name)
	if status.CompletedGames != 0 {
		t.Fatalf("expected no new games run for a fully resumed tournament, got %d", status.CompletedGames)
	}
}
