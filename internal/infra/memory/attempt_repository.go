package memory

import (
	"context"
	"sync"
	"time"

	"journey-quiz-service/internal/domain"
)

// AttemptRepository is an in-memory implementation of app.AttemptRepository.
// The (quiz, user) uniqueness is guarded by the same mutex that inserts, so
// a creation race has exactly one winner.
type AttemptRepository struct {
	mu       sync.RWMutex
	attempts map[string]domain.Attempt
	byPair   map[string]string // quizID|userRef -> attempt ID
	byQuiz   map[string][]string
}

func NewAttemptRepository() *AttemptRepository {
	return &AttemptRepository{
		attempts: make(map[string]domain.Attempt),
		byPair:   make(map[string]string),
		byQuiz:   make(map[string][]string),
	}
}

func pairKey(quizID, userRef string) string {
	return quizID + "|" + userRef
}

func (r *AttemptRepository) CreateAttempt(_ context.Context, attempt domain.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pairKey(attempt.QuizID, attempt.UserRef)
	if _, exists := r.byPair[key]; exists {
		return domain.ErrAttemptExists
	}
	r.attempts[attempt.ID] = attempt
	r.byPair[key] = attempt.ID
	r.byQuiz[attempt.QuizID] = append(r.byQuiz[attempt.QuizID], attempt.ID)
	return nil
}

func (r *AttemptRepository) GetAttempt(_ context.Context, id string) (domain.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	attempt, ok := r.attempts[id]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return attempt, nil
}

func (r *AttemptRepository) GetAttemptByQuizUser(_ context.Context, quizID, userRef string) (domain.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPair[pairKey(quizID, userRef)]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return r.attempts[id], nil
}

func (r *AttemptRepository) ListAttemptsByQuiz(_ context.Context, quizID string) ([]domain.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byQuiz[quizID]
	attempts := make([]domain.Attempt, 0, len(ids))
	for _, id := range ids {
		attempts = append(attempts, r.attempts[id])
	}
	return attempts, nil
}

func (r *AttemptRepository) AddAttemptTotals(_ context.Context, id string, deltaScore int, deltaElapsed float64) (int, float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	attempt, ok := r.attempts[id]
	if !ok {
		return 0, 0, domain.ErrAttemptNotFound
	}
	attempt.Score += deltaScore
	attempt.ElapsedSeconds += deltaElapsed
	r.attempts[id] = attempt
	return attempt.Score, attempt.ElapsedSeconds, nil
}

func (r *AttemptRepository) SetAttemptTotals(_ context.Context, id string, score int, elapsed float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	attempt, ok := r.attempts[id]
	if !ok {
		return domain.ErrAttemptNotFound
	}
	attempt.Score = score
	attempt.ElapsedSeconds = elapsed
	r.attempts[id] = attempt
	return nil
}

func (r *AttemptRepository) FinishAttempt(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	attempt, ok := r.attempts[id]
	if !ok {
		return domain.ErrAttemptNotFound
	}
	attempt.Status = domain.AttemptFinished
	attempt.FinishedAt = &at
	r.attempts[id] = attempt
	return nil
}

func (r *AttemptRepository) SetAttemptPosition(_ context.Context, id string, position int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	attempt, ok := r.attempts[id]
	if !ok {
		return domain.ErrAttemptNotFound
	}
	attempt.Position = position
	r.attempts[id] = attempt
	return nil
}
