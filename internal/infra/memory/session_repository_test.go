package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"journey-quiz-service/internal/domain"
)

func TestCreateSessionCodeUniqueAmongActive(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()

	first := domain.Session{ID: "s1", QuizID: "quiz-1", Code: "ABC234", Status: domain.SessionWaiting, CreatedAt: time.Now()}
	if err := repo.CreateSession(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}

	clash := domain.Session{ID: "s2", QuizID: "quiz-1", Code: "ABC234", Status: domain.SessionWaiting, CreatedAt: time.Now()}
	if err := repo.CreateSession(ctx, clash); !errors.Is(err, domain.ErrCodeInUse) {
		t.Fatalf("expected code in use, got %v", err)
	}

	// Finishing the holder frees the code for reuse.
	if err := repo.UpdateSessionStatus(ctx, "s1", domain.SessionFinished, time.Now()); err != nil {
		t.Fatalf("finish: %v", err)
	}
	clash.CreatedAt = time.Now().Add(time.Second)
	if err := repo.CreateSession(ctx, clash); err != nil {
		t.Fatalf("code must be reusable after finish: %v", err)
	}
}

func TestGetSessionByCodePrefersNewest(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()

	base := time.Now()
	old := domain.Session{ID: "s1", Code: "ABC234", Status: domain.SessionFinished, CreatedAt: base}
	if err := repo.CreateSession(ctx, old); err != nil {
		t.Fatalf("create old: %v", err)
	}
	current := domain.Session{ID: "s2", Code: "ABC234", Status: domain.SessionWaiting, CreatedAt: base.Add(time.Minute)}
	if err := repo.CreateSession(ctx, current); err != nil {
		t.Fatalf("create current: %v", err)
	}

	got, err := repo.GetSessionByCode(ctx, "ABC234")
	if err != nil {
		t.Fatalf("by code: %v", err)
	}
	if got.ID != "s2" {
		t.Fatalf("expected the newest session for the code, got %s", got.ID)
	}

	if _, err := repo.GetSessionByCode(ctx, "NOPE"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
}

func TestUpdateSessionStatusStampsTimes(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()
	if err := repo.CreateSession(ctx, domain.Session{ID: "s1", Code: "ABC234", Status: domain.SessionWaiting, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("create: %v", err)
	}

	startAt := time.Now()
	if err := repo.UpdateSessionStatus(ctx, "s1", domain.SessionRunning, startAt); err != nil {
		t.Fatalf("start: %v", err)
	}
	finishAt := startAt.Add(time.Minute)
	if err := repo.UpdateSessionStatus(ctx, "s1", domain.SessionFinished, finishAt); err != nil {
		t.Fatalf("finish: %v", err)
	}

	got, _ := repo.GetSession(ctx, "s1")
	if got.StartedAt == nil || !got.StartedAt.Equal(startAt) {
		t.Fatalf("started_at not stamped: %+v", got)
	}
	if got.FinishedAt == nil || !got.FinishedAt.Equal(finishAt) {
		t.Fatalf("finished_at not stamped: %+v", got)
	}
}

func TestParticipantsListInJoinOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()
	if err := repo.CreateSession(ctx, domain.Session{ID: "s1", Code: "ABC234", Status: domain.SessionRunning, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, id := range []string{"p3", "p1", "p2"} {
		if err := repo.CreateParticipant(ctx, domain.Participant{ID: id, SessionID: "s1", JoinedAt: time.Now()}); err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
	}

	list, err := repo.ListParticipants(ctx, "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"p3", "p1", "p2"}
	for i, id := range want {
		if list[i].ID != id {
			t.Fatalf("expected join order %v, got %+v", want, list)
		}
	}
}

func TestParticipantTotalsAndPosition(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()
	if err := repo.CreateSession(ctx, domain.Session{ID: "s1", Code: "ABC234", Status: domain.SessionRunning, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.CreateParticipant(ctx, domain.Participant{ID: "p1", SessionID: "s1", JoinedAt: time.Now()}); err != nil {
		t.Fatalf("join: %v", err)
	}

	score, elapsed, err := repo.AddParticipantTotals(ctx, "p1", 150, 7.5)
	if err != nil {
		t.Fatalf("add totals: %v", err)
	}
	if score != 150 || elapsed != 7.5 {
		t.Fatalf("expected running totals back, got %d/%.1f", score, elapsed)
	}
	score, elapsed, _ = repo.AddParticipantTotals(ctx, "p1", 100, 2.5)
	if score != 250 || elapsed != 10 {
		t.Fatalf("totals must accumulate, got %d/%.1f", score, elapsed)
	}

	if err := repo.SetParticipantPosition(ctx, "p1", 1); err != nil {
		t.Fatalf("set position: %v", err)
	}
	if err := repo.SetParticipantTotals(ctx, "p1", 300, 12); err != nil {
		t.Fatalf("set totals: %v", err)
	}
	got, _ := repo.GetParticipant(ctx, "p1")
	if got.Position != 1 || got.Score != 300 || got.ElapsedSeconds != 12 {
		t.Fatalf("unexpected participant state: %+v", got)
	}
}

func TestParticipantRequiresSession(t *testing.T) {
	repo := NewSessionRepository()
	err := repo.CreateParticipant(context.Background(), domain.Participant{ID: "p1", SessionID: "ghost"})
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
}
