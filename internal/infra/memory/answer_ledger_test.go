package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"journey-quiz-service/internal/domain"
)

func ledgerQuestion() domain.Question {
	return domain.Question{
		ID: "q1",
		Alternatives: []domain.Alternative{
			{ID: "a1", Correct: false},
			{ID: "a2", Correct: true},
		},
		Points:           100,
		TimeLimitSeconds: 30,
	}
}

func TestRecordRejectsSecondAnswer(t *testing.T) {
	ctx := context.Background()
	ledger := NewAnswerLedger()
	owner := domain.ParticipantOwner("p1")
	question := ledgerQuestion()

	first, err := ledger.Record(ctx, owner, question, question.Alternatives[1], 5, 150)
	if err != nil {
		t.Fatalf("first record: %v", err)
	}
	if !first.Correct || first.Awarded != 150 {
		t.Fatalf("unexpected answer row: %+v", first)
	}

	if _, err := ledger.Record(ctx, owner, question, question.Alternatives[0], 8, 0); !errors.Is(err, domain.ErrDuplicateAnswer) {
		t.Fatalf("expected duplicate answer, got %v", err)
	}

	answers, err := ledger.ListByOwner(ctx, owner)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(answers) != 1 || answers[0].ID != first.ID {
		t.Fatalf("exactly the winning answer must remain, got %+v", answers)
	}
}

func TestRecordSameQuestionDifferentOwners(t *testing.T) {
	ctx := context.Background()
	ledger := NewAnswerLedger()
	question := ledgerQuestion()

	if _, err := ledger.Record(ctx, domain.ParticipantOwner("p1"), question, question.Alternatives[1], 5, 150); err != nil {
		t.Fatalf("p1: %v", err)
	}
	if _, err := ledger.Record(ctx, domain.AttemptOwner("p1"), question, question.Alternatives[1], 5, 150); err != nil {
		t.Fatalf("owners of different kinds must not collide: %v", err)
	}
	if _, err := ledger.Record(ctx, domain.ParticipantOwner("p2"), question, question.Alternatives[0], 9, 0); err != nil {
		t.Fatalf("p2: %v", err)
	}
}

func TestConcurrentRecordsHaveOneWinner(t *testing.T) {
	ctx := context.Background()
	ledger := NewAnswerLedger()
	owner := domain.ParticipantOwner("p1")
	question := ledgerQuestion()

	const racers = 32
	var wg sync.WaitGroup
	results := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Record(ctx, owner, question, question.Alternatives[1], 3, 175)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, duplicates int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, domain.ErrDuplicateAnswer):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || duplicates != racers-1 {
		t.Fatalf("expected 1 winner and %d duplicates, got %d/%d", racers-1, wins, duplicates)
	}

	answers, _ := ledger.ListByOwner(ctx, owner)
	if len(answers) != 1 {
		t.Fatalf("ledger must hold a single row, got %d", len(answers))
	}
}

func TestListByOwnerPreservesOrder(t *testing.T) {
	ctx := context.Background()
	ledger := NewAnswerLedger()
	owner := domain.AttemptOwner("a1")

	questions := []string{"q1", "q2", "q3"}
	for _, id := range questions {
		q := ledgerQuestion()
		q.ID = id
		if _, err := ledger.Record(ctx, owner, q, q.Alternatives[1], 1, 100); err != nil {
			t.Fatalf("record %s: %v", id, err)
		}
	}

	answers, _ := ledger.ListByOwner(ctx, owner)
	for i, id := range questions {
		if answers[i].QuestionID != id {
			t.Fatalf("expected insertion order, got %+v", answers)
		}
	}
}
