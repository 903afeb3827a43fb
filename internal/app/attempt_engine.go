package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"journey-quiz-service/internal/domain"
	"journey-quiz-service/internal/scoring"
)

// AttemptEngine owns the solo-attempt lifecycle: start, answer, finalize.
// An attempt is unique per (quiz, user) forever; a finished one can never
// be restarted. Answer and Finish for one attempt are serialized on a
// per-attempt lock, so a finish's recompute from the ledger can never
// interleave with an answer's pending aggregate increment.
type AttemptEngine struct {
	attempts AttemptRepository
	quizzes  QuizRepository
	ledger   AnswerLedger
	ranking  *RankingCoordinator
	access   AccessChecker
	strategy scoring.Strategy
	clock    func() time.Time
	locks    *keyedMutex
}

func NewAttemptEngine(attempts AttemptRepository, quizzes QuizRepository, ledger AnswerLedger, ranking *RankingCoordinator, access AccessChecker, strategy scoring.Strategy) *AttemptEngine {
	return &AttemptEngine{
		attempts: attempts,
		quizzes:  quizzes,
		ledger:   ledger,
		ranking:  ranking,
		access:   access,
		strategy: strategy,
		clock:    time.Now,
		locks:    newKeyedMutex(),
	}
}

// Start returns the user's attempt for the quiz, creating it when absent.
// An in-progress attempt is returned as-is; a finished one rejects with
// ErrAlreadyCompleted. The entitlement gate runs before creation.
func (e *AttemptEngine) Start(ctx context.Context, quizID, userRef string) (domain.Attempt, error) {
	entitled, err := e.access.IsEntitled(ctx, userRef, quizID)
	if err != nil {
		return domain.Attempt{}, err
	}
	if !entitled {
		return domain.Attempt{}, domain.ErrAccessDenied
	}

	if _, err := e.quizzes.GetQuiz(ctx, quizID); err != nil {
		return domain.Attempt{}, err
	}

	existing, err := e.attempts.GetAttemptByQuizUser(ctx, quizID, userRef)
	switch {
	case err == nil:
		return resumeOrReject(existing)
	case !errors.Is(err, domain.ErrAttemptNotFound):
		return domain.Attempt{}, err
	}

	attempt := domain.Attempt{
		ID:        uuid.NewString(),
		QuizID:    quizID,
		UserRef:   userRef,
		Status:    domain.AttemptInProgress,
		StartedAt: e.clock(),
	}
	err = e.attempts.CreateAttempt(ctx, attempt)
	if errors.Is(err, domain.ErrAttemptExists) {
		// Lost a creation race; the winner's attempt is authoritative.
		existing, err := e.attempts.GetAttemptByQuizUser(ctx, quizID, userRef)
		if err != nil {
			return domain.Attempt{}, err
		}
		return resumeOrReject(existing)
	}
	if err != nil {
		return domain.Attempt{}, err
	}
	return attempt, nil
}

func resumeOrReject(attempt domain.Attempt) (domain.Attempt, error) {
	if attempt.Status == domain.AttemptFinished {
		return domain.Attempt{}, domain.ErrAlreadyCompleted
	}
	return attempt, nil
}

// Answer records one answer on an in-progress attempt. Resubmitting the
// same question rejects with ErrAlreadyAnswered and never double-scores.
// An over-limit submission is accepted and simply earns no time bonus; the
// request layer owns the authoritative clock and may refuse it earlier.
func (e *AttemptEngine) Answer(ctx context.Context, attemptID, questionID, alternativeID string, elapsedSeconds float64) (AnswerResult, error) {
	lock := e.locks.get(attemptID)
	lock.Lock()
	defer lock.Unlock()

	attempt, err := e.attempts.GetAttempt(ctx, attemptID)
	if err != nil {
		return AnswerResult{}, err
	}
	if attempt.Status == domain.AttemptFinished {
		return AnswerResult{}, domain.ErrInvalidState
	}

	quiz, err := e.quizzes.GetQuiz(ctx, attempt.QuizID)
	if err != nil {
		return AnswerResult{}, err
	}
	question, ok := quiz.Question(questionID)
	if !ok {
		return AnswerResult{}, domain.ErrQuestionNotFound
	}
	chosen, ok := question.Alternative(alternativeID)
	if !ok {
		return AnswerResult{}, domain.ErrAlternativeNotFound
	}

	awarded := e.strategy.Score(question.BasePoints(), question.TimeLimitSeconds, elapsedSeconds, chosen.Correct)
	answer, err := e.ledger.Record(ctx, domain.AttemptOwner(attemptID), question, chosen, elapsedSeconds, awarded)
	if errors.Is(err, domain.ErrDuplicateAnswer) {
		return AnswerResult{}, domain.ErrAlreadyAnswered
	}
	if err != nil {
		return AnswerResult{}, err
	}

	totalScore, totalElapsed, err := e.attempts.AddAttemptTotals(ctx, attemptID, awarded, elapsedSeconds)
	if err != nil {
		return AnswerResult{}, err
	}
	standings, err := e.ranking.RecomputeQuiz(ctx, attempt.QuizID)
	if err != nil {
		return AnswerResult{}, err
	}
	return AnswerResult{
		Answer:              answer,
		TotalScore:          totalScore,
		TotalElapsedSeconds: totalElapsed,
		Standings:           standings,
	}, nil
}

// Finish seals an attempt after recomputing its totals from the stored
// answers. Finishing a finished attempt returns the current state with no
// error, so retrying after a timeout is always safe.
func (e *AttemptEngine) Finish(ctx context.Context, attemptID string) (domain.Attempt, error) {
	lock := e.locks.get(attemptID)
	lock.Lock()
	defer lock.Unlock()

	attempt, err := e.attempts.GetAttempt(ctx, attemptID)
	if err != nil {
		return domain.Attempt{}, err
	}
	if attempt.Status == domain.AttemptFinished {
		return attempt, nil
	}

	answers, err := e.ledger.ListByOwner(ctx, domain.AttemptOwner(attemptID))
	if err != nil {
		return domain.Attempt{}, err
	}
	score := 0
	elapsed := 0.0
	for _, a := range answers {
		score += a.Awarded
		elapsed += a.ElapsedSeconds
	}
	if err := e.attempts.SetAttemptTotals(ctx, attemptID, score, elapsed); err != nil {
		return domain.Attempt{}, err
	}

	now := e.clock()
	if err := e.attempts.FinishAttempt(ctx, attemptID, now); err != nil {
		return domain.Attempt{}, err
	}
	if _, err := e.ranking.RecomputeQuiz(ctx, attempt.QuizID); err != nil {
		return domain.Attempt{}, err
	}

	attempt.Status = domain.AttemptFinished
	attempt.Score = score
	attempt.ElapsedSeconds = elapsed
	attempt.FinishedAt = &now
	return attempt, nil
}
