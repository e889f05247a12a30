package engine

import (
	"context"
	"testing"

	"tourneyforge.dev/internal/player"
)

func TestDemoEnginePlaysAndScores(t *testing.T) {
	players := []player.Player{
		player.NewRandomPlayer("alice"),
		player.NewNaiveMoneyPlayer("bob"),
		player.NewActionHeavyPlayer("carol"),
		player.NewPassivePlayer("dave"),
	}
	loader := NewDemoLoader()
	eng, err := loader.Create(players, []string{"village", "smithy"})
	if err != nil {
		t.Fatal(err)
	}
	result, err := eng.Play(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.PlayerResults) != 4 {
		t.Fatalf("got %d results, want 4", len(result.PlayerResults))
	}
	for _, pr := range result.PlayerResults {
		if pr.Score < 0 {
			t.Errorf("%s got negative score %d", pr.Name, pr.Score)
		}
	}
}
