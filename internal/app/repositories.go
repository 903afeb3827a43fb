package app

import (
	"context"
	"time"

	"journey-quiz-service/internal/domain"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// SessionRepository persists sessions and their participant roster.
type SessionRepository interface {
	// CreateSession fails with domain.ErrCodeInUse when the join code
	// collides with another waiting or running session.
	CreateSession(ctx context.Context, session domain.Session) error
	GetSession(ctx context.Context, id string) (domain.Session, error)
	// GetSessionByCode resolves the most recent session carrying the code,
	// finished or not; callers decide whether a finished one is joinable.
	GetSessionByCode(ctx context.Context, code string) (domain.Session, error)
	UpdateSessionStatus(ctx context.Context, id string, status domain.SessionStatus, at time.Time) error

	CreateParticipant(ctx context.Context, participant domain.Participant) error
	GetParticipant(ctx context.Context, id string) (domain.Participant, error)
	// ListParticipants returns the roster in join order.
	ListParticipants(ctx context.Context, sessionID string) ([]domain.Participant, error)
	// AddParticipantTotals atomically increments the cached aggregates and
	// returns the new values.
	AddParticipantTotals(ctx context.Context, id string, deltaScore int, deltaElapsed float64) (int, float64, error)
	SetParticipantTotals(ctx context.Context, id string, score int, elapsed float64) error
	SetParticipantPosition(ctx context.Context, id string, position int) error
}

// AttemptRepository persists solo attempts.
type AttemptRepository interface {
	// CreateAttempt fails with domain.ErrAttemptExists when an attempt for
	// the same (quiz, user) already exists.
	CreateAttempt(ctx context.Context, attempt domain.Attempt) error
	GetAttempt(ctx context.Context, id string) (domain.Attempt, error)
	GetAttemptByQuizUser(ctx context.Context, quizID, userRef string) (domain.Attempt, error)
	// ListAttemptsByQuiz returns attempts in creation order.
	ListAttemptsByQuiz(ctx context.Context, quizID string) ([]domain.Attempt, error)
	AddAttemptTotals(ctx context.Context, id string, deltaScore int, deltaElapsed float64) (int, float64, error)
	SetAttemptTotals(ctx context.Context, id string, score int, elapsed float64) error
	FinishAttempt(ctx context.Context, id string, at time.Time) error
	SetAttemptPosition(ctx context.Context, id string, position int) error
}

// AnswerLedger is the write-once fact store for answers. It enforces the
// at-most-one-answer-per-(owner, question) invariant: under concurrent
// records exactly one caller succeeds and the rest observe
// domain.ErrDuplicateAnswer. It never computes scores or touches aggregates.
type AnswerLedger interface {
	Record(ctx context.Context, owner domain.OwnerRef, question domain.Question, chosen domain.Alternative, elapsedSeconds float64, awarded int) (domain.Answer, error)
	ListByOwner(ctx context.Context, owner domain.OwnerRef) ([]domain.Answer, error)
}

// AccessChecker gates attempt creation. The entitlement rules (assignments,
// groups, phase unlocks) live upstream; this is a boolean oracle.
type AccessChecker interface {
	IsEntitled(ctx context.Context, userRef, quizID string) (bool, error)
}

// IdentityResolver maps a user reference to a display name for standings.
// Lookup failure degrades to whatever name the caller already has.
type IdentityResolver interface {
	DisplayName(ctx context.Context, userRef string) (string, error)
}
