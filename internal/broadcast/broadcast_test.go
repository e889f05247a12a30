package broadcast

import (
	"testing"
	"time"

	"tourneyforge.dev/internal/domain"
)

func TestSubscribeReceivesCurrentStatusImmediately(t *testing.T) {
	b := New()
	b.Publish(domain.TournamentStatus{ID: "t1", State: domain.StateRunning, CurrentRound: 2})

	updates, cancel := b.Subscribe("t1")
	defer cancel()

	select {
	case s := <-updates:
		if s.CurrentRound != 2 {
			t.Fatalf("got round %d, want 2", s.CurrentRound)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for initial status")
	}
}

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	b := New()
	u1, c1 := b.Subscribe("t1")
	u2, c2 := b.Subscribe("t1")
	defer c1()
	defer c2()

	b.Publish(domain.TournamentStatus{ID: "t1", State: domain.StateCompleted})

	for _, ch := range []<-chan domain.TournamentStatus{u1, u2} {
		select {
		case s := <-ch:
			if s.State != domain.StateCompleted {
				t.Fatalf("got state %q, want completed", s.State)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for fan-out")
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	updates, cancel := b.Subscribe("t1")
	cancel()

	b.Publish(domain.TournamentStatus{ID: "t1", State: domain.StateRunning})

	select {
	case _, ok := <-updates:
		if ok {
			t.Fatal("expected no further delivery after unsubscribe")
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStatusReturnsLastPublished(t *testing.T) {
	b := New()
	if _, ok := b.Status("missing"); ok {
		t.Fatal("expected no status for unknown tournament")
	}
	b.Publish(domain.TournamentStatus{ID: "t1", CompletedGames: 5})
	s, ok := b.Status("t1")
	if !ok || s.CompletedGames != 5 {
		t.Fatalf("got %+v, %v", s, ok)
	}
}
