package app_test

import (
	"fmt"
	"testing"
	"time"

	"journey-quiz-service/internal/app"
	"journey-quiz-service/internal/domain"
)

func snapshot(sessionID string, version int) domain.Standings {
	return domain.Standings{
		ScopeID: sessionID,
		Version: uint64(version),
		Entries: []domain.StandingsEntry{
			{OwnerID: fmt.Sprintf("v%d", version), Score: version, Position: 1},
		},
		UpdatedAt: time.Now(),
	}
}

func receive(t *testing.T, ch <-chan domain.Standings) domain.Standings {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a snapshot")
		return domain.Standings{}
	}
}

func TestSubscribeDeliversImmediateSnapshot(t *testing.T) {
	b := app.NewLiveBroadcaster()

	// Before any publish the subscriber still gets an (empty) snapshot.
	ch, cancel := b.Subscribe("s1")
	defer cancel()
	initial := receive(t, ch)
	if initial.ScopeID != "s1" || len(initial.Entries) != 0 {
		t.Fatalf("expected empty initial snapshot for s1, got %+v", initial)
	}

	b.Publish("s1", snapshot("s1", 1))
	ch2, cancel2 := b.Subscribe("s1")
	defer cancel2()
	got := receive(t, ch2)
	if len(got.Entries) != 1 || got.Entries[0].OwnerID != "v1" {
		t.Fatalf("late subscriber must see the latest snapshot, got %+v", got)
	}
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	b := app.NewLiveBroadcaster()

	ch1, cancel1 := b.Subscribe("s1")
	defer cancel1()
	ch2, cancel2 := b.Subscribe("s1")
	defer cancel2()
	receive(t, ch1)
	receive(t, ch2)

	b.Publish("s1", snapshot("s1", 7))
	for _, ch := range []<-chan domain.Standings{ch1, ch2} {
		got := receive(t, ch)
		if got.Entries[0].OwnerID != "v7" {
			t.Fatalf("expected v7, got %+v", got)
		}
	}
}

func TestSlowSubscriberSeesLatestSnapshot(t *testing.T) {
	b := app.NewLiveBroadcaster()

	ch, cancel := b.Subscribe("s1")
	defer cancel()

	// Never read while publishing far past the buffer capacity.
	for i := 1; i <= 50; i++ {
		b.Publish("s1", snapshot("s1", i))
	}

	var last domain.Standings
	for {
		select {
		case s := <-ch:
			last = s
			continue
		default:
		}
		break
	}
	if len(last.Entries) != 1 || last.Entries[0].OwnerID != "v50" {
		t.Fatalf("slow reader must end on the newest snapshot, got %+v", last)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	b := app.NewLiveBroadcaster()

	ch, cancel := b.Subscribe("s1")
	defer cancel()
	receive(t, ch)

	b.Publish("s2", snapshot("s2", 1))
	select {
	case s := <-ch:
		t.Fatalf("s1 subscriber must not see s2 traffic, got %+v", s)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCancelClosesChannelOnce(t *testing.T) {
	b := app.NewLiveBroadcaster()

	ch, cancel := b.Subscribe("s1")
	receive(t, ch)
	cancel()
	cancel() // second call is a no-op

	if _, open := <-ch; open {
		t.Fatal("channel must be closed after cancel")
	}
	// Publishing after cancel must not panic.
	b.Publish("s1", snapshot("s1", 1))
}

func TestPublishDiscardsOutOfOrderSnapshot(t *testing.T) {
	b := app.NewLiveBroadcaster()

	ch, cancel := b.Subscribe("s1")
	defer cancel()
	receive(t, ch)

	b.Publish("s1", snapshot("s1", 2))
	got := receive(t, ch)
	if got.Version != 2 {
		t.Fatalf("expected version 2, got %+v", got)
	}

	// A snapshot overtaken on the way to the broadcaster must not regress
	// the recorded latest or reach subscribers.
	b.Publish("s1", snapshot("s1", 1))
	latest, ok := b.Latest("s1")
	if !ok || latest.Version != 2 {
		t.Fatalf("latest must stay at version 2, got %+v ok=%v", latest, ok)
	}
	select {
	case s := <-ch:
		t.Fatalf("stale snapshot delivered: %+v", s)
	case <-time.After(50 * time.Millisecond):
	}

	// A late subscriber sees the newest state, not the stale publish.
	ch2, cancel2 := b.Subscribe("s1")
	defer cancel2()
	if got := receive(t, ch2); got.Version != 2 {
		t.Fatalf("late subscriber must see version 2, got %+v", got)
	}
}

func TestLatest(t *testing.T) {
	b := app.NewLiveBroadcaster()

	if _, ok := b.Latest("s1"); ok {
		t.Fatal("no snapshot should exist before publish")
	}
	b.Publish("s1", snapshot("s1", 3))
	got, ok := b.Latest("s1")
	if !ok || got.Entries[0].OwnerID != "v3" {
		t.Fatalf("expected v3, got %+v ok=%v", got, ok)
	}
}
