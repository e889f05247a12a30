package table

import (
	"context"
	"errors"
	"testing"

	"tourneyforge.dev/internal/domain"
	"tourneyforge.dev/internal/engine"
	"tourneyforge.dev/internal/player"
)

func fourPlayerAssignment() domain.GameAssignment {
	var a domain.GameAssignment
	for i, id := range []string{"p1", "p2", "p3", "p4"} {
		a.Seats[i] = domain.PlayerConfig{ID: id, Name: id, Endpoint: "random"}
	}
	return a
}

func TestExecuteHappyPath(t *testing.T) {
	factory := player.NewFactory(player.NewRegistry(), nil)
	loader := engine.LoaderFunc(func(players []player.Player, kingdom []string) (engine.Engine, error) {
		return fakeEngine{players: players}, nil
	})
	exec := NewExecutor(factory, loader)

	outcome := exec.Execute(context.Background(), 0, 1, fourPlayerAssignment(), []string{"village"}, 100)
	if len(outcome.Placements) != 4 {
		t.Fatalf("got %d placements, want 4", len(outcome.Placements))
	}
	for i, pl := range outcome.Placements {
		if pl.Score != i+1 {
			t.Errorf("placement %d score = %d, want %d", i, pl.Score, i+1)
		}
	}
}

func TestExecuteEngineFailureYieldsZeroOutcome(t *testing.T) {
	factory := player.NewFactory(player.NewRegistry(), nil)
	loader := engine.LoaderFunc(func(players []player.Player, kingdom []string) (engine.Engine, error) {
		return nil, errors.New("boom")
	})
	exec := NewExecutor(factory, loader)

	outcome := exec.Execute(context.Background(), 0, 1, fourPlayerAssignment(), []string{"village"}, 100)
	if len(outcome.Placements) != 4 {
		t.Fatalf("got %d placements, want 4", len(outcome.Placements))
	}
	for _, pl := range outcome.Placements {
		if pl.Score != 0 || pl.Deck != nil {
			t.Errorf("expected zero score/empty deck, got %+v", pl)
		}
	}
}

func TestExecuteUnknownStrategyYieldsZeroOutcome(t *testing.T) {
	factory := player.NewFactory(player.NewRegistry(), nil)
	loader := engine.LoaderFunc(func(players []player.Player, kingdom []string) (engine.Engine, error) {
		return fakeEngine{players: players}, nil
	})
	exec := NewExecutor(factory, loader)

	a := fourPlayerAssignment()
	a.Seats[2].Endpoint = "not-a-real-strategy"
	outcome := exec.Execute(context.Background(), 0, 1, a, []string{"village"}, 100)
	if len(outcome.Placements) != 4 {
		t.Fatalf("got %d placements, want 4", len(outcome.Placements))
	}
}

func TestExecutePanickingEngineYieldsZeroOutcome(t *testing.T) {
	factory := player.NewFactory(player.NewRegistry(), nil)
	loader := engine.LoaderFunc(func(players []player.Player, kingdom []string) (engine.Engine, error) {
		return panickingEngine{}, nil
	})
	exec := NewExecutor(factory, loader)

	outcome := exec.Execute(context.Background(), 0, 1, fourPlayerAssignment(), []string{"village"}, 100)
	if len(outcome.Placements) != 4 {
		t.Fatalf("got %d placements, want 4", len(outcome.Placements))
	}
	for _, pl := range outcome.Placements {
		if pl.Score != 0 || pl.Deck != nil {
			t.Errorf("expected zero score/empty deck, got %+v", pl)
		}
	}
}

func TestExecutePanickingPlayerFactoryYieldsZeroOutcome(t *testing.T) {
	registry := player.NewRegistry()
	registry.Register("panics", "always panics", func(name string) player.Player {
		panic("strategy exploded")
	})
	factory := player.NewFactory(registry, nil)
	loader := engine.LoaderFunc(func(players []player.Player, kingdom []string) (engine.Engine, error) {
		return fakeEngine{players: players}, nil
	})
	exec := NewExecutor(factory, loader)

	a := fourPlayerAssignment()
	a.Seats[1].Endpoint = "panics"
	outcome := exec.Execute(context.Background(), 0, 1, a, []string{"village"}, 100)
	if len(outcome.Placements) != 4 {
		t.Fatalf("got %d placements, want 4", len(outcome.Placements))
	}
	for _, pl := range outcome.Placements {
		if pl.Score != 0 || pl.Deck != nil {
			t.Errorf("expected zero score/empty deck, got %+v", pl)
		}
	}
}

type fakeEngine struct{ players []player.Player }

func (f fakeEngine) Play(ctx context.Context) (engine.Result, error) {
	results := make([]engine.PlayerResult, len(f.players))
	for i, p := range f.players {
		results[i] = engine.PlayerResult{Name: p.Name(), Score: i + 1}
	}
	return engine.Result{PlayerResults: results}, nil
}

type panickingEngine struct{}

func (panickingEngine) Play(ctx context.Context) (engine.Result, error) {
	panic("engine exploded")
}
