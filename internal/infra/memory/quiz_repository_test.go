package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"journey-quiz-service/internal/domain"
)

type countingLoader struct {
	loads int64
	quiz  domain.Quiz
}

func (l *countingLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	atomic.AddInt64(&l.loads, 1)
	if quizID != l.quiz.ID {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return l.quiz, nil
}

func TestGetQuizCachesUntilTTL(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{quiz: domain.Quiz{ID: "quiz-1", Title: "Cached"}}
	repo := NewQuizRepository(loader, time.Minute)

	for i := 0; i < 5; i++ {
		quiz, err := repo.GetQuiz(ctx, "quiz-1")
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		if quiz.Title != "Cached" {
			t.Fatalf("unexpected quiz: %+v", quiz)
		}
	}
	if got := atomic.LoadInt64(&loader.loads); got != 1 {
		t.Fatalf("expected a single backing load, got %d", got)
	}
}

func TestGetQuizReloadsAfterExpiry(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{quiz: domain.Quiz{ID: "quiz-1"}}
	repo := NewQuizRepository(loader, time.Minute)

	now := time.Now()
	repo.clock = func() time.Time { return now }
	if _, err := repo.GetQuiz(ctx, "quiz-1"); err != nil {
		t.Fatalf("get: %v", err)
	}

	// Jitter tops out at 10% of the TTL, so two minutes is past expiry.
	repo.clock = func() time.Time { return now.Add(2 * time.Minute) }
	if _, err := repo.GetQuiz(ctx, "quiz-1"); err != nil {
		t.Fatalf("get after expiry: %v", err)
	}
	if got := atomic.LoadInt64(&loader.loads); got != 2 {
		t.Fatalf("expected reload after expiry, got %d loads", got)
	}
}

func TestGetQuizCollapsesConcurrentLoads(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{quiz: domain.Quiz{ID: "quiz-1"}}
	repo := NewQuizRepository(loader, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.GetQuiz(ctx, "quiz-1"); err != nil {
				t.Errorf("get: %v", err)
			}
		}()
	}
	wg.Wait()
	if got := atomic.LoadInt64(&loader.loads); got != 1 {
		t.Fatalf("concurrent gets must collapse to one load, got %d", got)
	}
}

func TestGetQuizNotFound(t *testing.T) {
	repo := NewQuizRepository(&countingLoader{quiz: domain.Quiz{ID: "quiz-1"}}, time.Minute)
	if _, err := repo.GetQuiz(context.Background(), "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

func TestStaticQuizLoader(t *testing.T) {
	loader := NewStaticQuizLoader(map[string]domain.Quiz{"quiz-1": {ID: "quiz-1"}})
	if _, err := loader.LoadQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := loader.LoadQuiz(context.Background(), "other"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}
