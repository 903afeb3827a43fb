package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"journey-quiz-service/internal/domain"
)

// AnswerLedger is an in-memory implementation of app.AnswerLedger. A single
// mutex around the check-and-insert makes concurrent records for the same
// (owner, question) resolve to exactly one winner.
type AnswerLedger struct {
	mu      sync.Mutex
	taken   map[string]struct{}
	byOwner map[string][]domain.Answer
	clock   func() time.Time
}

func NewAnswerLedger() *AnswerLedger {
	return &AnswerLedger{
		taken:   make(map[string]struct{}),
		byOwner: make(map[string][]domain.Answer),
		clock:   time.Now,
	}
}

func slotKey(owner domain.OwnerRef, questionID string) string {
	return string(owner.Kind) + ":" + owner.ID + ":" + questionID
}

func ownerKey(owner domain.OwnerRef) string {
	return string(owner.Kind) + ":" + owner.ID
}

func (l *AnswerLedger) Record(_ context.Context, owner domain.OwnerRef, question domain.Question, chosen domain.Alternative, elapsedSeconds float64, awarded int) (domain.Answer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot := slotKey(owner, question.ID)
	if _, exists := l.taken[slot]; exists {
		return domain.Answer{}, domain.ErrDuplicateAnswer
	}

	answer := domain.Answer{
		ID:             uuid.NewString(),
		Owner:          owner,
		QuestionID:     question.ID,
		AlternativeID:  chosen.ID,
		ElapsedSeconds: elapsedSeconds,
		Awarded:        awarded,
		Correct:        chosen.Correct,
		CreatedAt:      l.clock(),
	}
	l.taken[slot] = struct{}{}
	key := ownerKey(owner)
	l.byOwner[key] = append(l.byOwner[key], answer)
	return answer, nil
}

func (l *AnswerLedger) ListByOwner(_ context.Context, owner domain.OwnerRef) ([]domain.Answer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	stored := l.byOwner[ownerKey(owner)]
	answers := make([]domain.Answer, len(stored))
	copy(answers, stored)
	return answers, nil
}
