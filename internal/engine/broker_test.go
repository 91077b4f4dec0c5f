package engine_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/seantiz/skinnypoem/internal/engine"
	"github.com/seantiz/skinnypoem/internal/model"
)

func TestBrokerMultipleSubscribers(t *testing.T) {
	b := engine.NewBroker()
	ch1, unsub1 := b.Subscribe()
	defer unsub1()
	ch2, unsub2 := b.Subscribe()
	defer unsub2()

	b.Publish(engine.Event{Type: engine.EventState, State: &model.PoemState{Phase: model.PhaseMood}})
	b.Close()

	for i, ch := range []<-chan engine.Event{ch1, ch2} {
		var got []engine.Event
		for ev := range ch {
			got = append(got, ev)
		}
		if len(got) != 1 || got[0].State.Phase != model.PhaseMood {
			t.Errorf("subscriber %d got %+v, want one mood state", i, got)
		}
	}
}

func TestBrokerUnsubscribeStopsDelivery(t *testing.T) {
	b := engine.NewBroker()
	ch, unsub := b.Subscribe()
	unsub()

	b.Publish(engine.Event{Type: engine.EventState})
	select {
	case ev := <-ch:
		t.Errorf("received %+v after unsubscribe", ev)
	default:
	}
	// Unsubscribing twice is harmless.
	unsub()
}

func TestBrokerDropsForSlowSubscriber(t *testing.T) {
	b := engine.NewBroker()
	ch, unsub := b.Subscribe()
	defer unsub()

	for i := 0; i < 100; i++ {
		b.Publish(engine.Event{Type: engine.EventState})
	}
	b.Close()

	n := 0
	for range ch {
		n++
	}
	if n == 0 || n >= 100 {
		t.Errorf("received %d events, want a buffered subset", n)
	}
}

func TestBrokerSubscribeAfterClose(t *testing.T) {
	b := engine.NewBroker()
	b.Close()
	b.Close()

	ch, unsub := b.Subscribe()
	defer unsub()
	if _, ok := <-ch; ok {
		t.Error("late subscriber channel should be closed")
	}
}

func TestVotePublishesState(t *testing.T) {
	eng, _, _ := newTestEngine(t, at(9, 0))
	mustState(t, eng)

	ch, unsub := eng.Broker().Subscribe()
	defer unsub()

	mustVote(t, eng, "u1", model.VoteRequest{Type: model.VoteKeyLine, OptionID: "keyline_0"})

	select {
	case ev := <-ch:
		if ev.Type != engine.EventState || ev.State.KeyLineOptions[0].Votes != 1 {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event after vote")
	}
}

func TestClockPublishEmitsPoem(t *testing.T) {
	eng, clock, _ := newTestEngine(t, at(20, 0))
	mustState(t, eng)

	ch, unsub := eng.Broker().Subscribe()
	defer unsub()

	clock.Set(at(21, 0))
	if err := eng.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	var sawPoem bool
	for len(ch) > 0 {
		ev := <-ch
		if ev.Type == engine.EventPoem && ev.Poem != nil && ev.Poem.Date == "2026-03-14" {
			sawPoem = true
		}
	}
	if !sawPoem {
		t.Error("no poem event after the clock reached published")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	eng, _, _ := newTestEngine(t, at(9, 0))
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx, 10*time.Millisecond) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
