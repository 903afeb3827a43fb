package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"journey-quiz-service/internal/domain"
	"journey-quiz-service/internal/scoring"
)

const (
	joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	joinCodeLength   = 6
	joinCodeRetries  = 10
)

// AnswerResult summarizes an accepted answer for a single owner.
type AnswerResult struct {
	Answer              domain.Answer
	TotalScore          int
	TotalElapsedSeconds float64
	Standings           domain.Standings
}

// SessionEngine owns the live-session lifecycle: create, join, start,
// answer, finish. All state lives in the injected repositories; the engine
// composes the ledger, the score strategy, and the ranking coordinator.
// Start, Answer, and Finish for one session are serialized on a per-session
// lock, so a finish's recompute from the ledger can never interleave with
// an answer's pending aggregate increment.
type SessionEngine struct {
	sessions SessionRepository
	quizzes  QuizRepository
	ledger   AnswerLedger
	ranking  *RankingCoordinator
	identity IdentityResolver
	strategy scoring.Strategy
	clock    func() time.Time
	locks    *keyedMutex

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// NewSessionEngine wires a session engine. identity may be nil.
func NewSessionEngine(sessions SessionRepository, quizzes QuizRepository, ledger AnswerLedger, ranking *RankingCoordinator, identity IdentityResolver, strategy scoring.Strategy) *SessionEngine {
	return &SessionEngine{
		sessions: sessions,
		quizzes:  quizzes,
		ledger:   ledger,
		ranking:  ranking,
		identity: identity,
		strategy: strategy,
		clock:    time.Now,
		locks:    newKeyedMutex(),
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Create builds a new waiting session for a quiz with a join code unique
// among active sessions, retrying on collisions.
func (e *SessionEngine) Create(ctx context.Context, quizID string) (domain.Session, error) {
	if _, err := e.quizzes.GetQuiz(ctx, quizID); err != nil {
		return domain.Session{}, err
	}

	for i := 0; i < joinCodeRetries; i++ {
		session := domain.Session{
			ID:        uuid.NewString(),
			QuizID:    quizID,
			Code:      e.newJoinCode(),
			Status:    domain.SessionWaiting,
			CreatedAt: e.clock(),
		}
		err := e.sessions.CreateSession(ctx, session)
		if errors.Is(err, domain.ErrCodeInUse) {
			continue
		}
		if err != nil {
			return domain.Session{}, err
		}
		return session, nil
	}
	return domain.Session{}, fmt.Errorf("could not allocate a unique join code after %d tries", joinCodeRetries)
}

func (e *SessionEngine) newJoinCode() string {
	e.rndMu.Lock()
	defer e.rndMu.Unlock()
	code := make([]byte, joinCodeLength)
	for i := range code {
		code[i] = joinCodeAlphabet[e.rnd.Intn(len(joinCodeAlphabet))]
	}
	return string(code)
}

// Join registers a participant in a waiting or running session found by its
// join code. Late joiners are allowed; a finished session rejects with
// ErrSessionClosed. The ranking snapshot is pushed so the joiner sees the
// current standings immediately.
func (e *SessionEngine) Join(ctx context.Context, code, displayName, userRef string) (domain.Participant, error) {
	session, err := e.sessions.GetSessionByCode(ctx, code)
	if err != nil {
		return domain.Participant{}, err
	}
	if session.Status == domain.SessionFinished {
		return domain.Participant{}, domain.ErrSessionClosed
	}

	if displayName == "" && userRef != "" && e.identity != nil {
		if name, err := e.identity.DisplayName(ctx, userRef); err == nil && name != "" {
			displayName = name
		}
	}

	participant := domain.Participant{
		ID:          uuid.NewString(),
		SessionID:   session.ID,
		UserRef:     userRef,
		DisplayName: displayName,
		JoinedAt:    e.clock(),
	}
	if err := e.sessions.CreateParticipant(ctx, participant); err != nil {
		return domain.Participant{}, err
	}
	if _, err := e.ranking.RecomputeSession(ctx, session.ID); err != nil {
		return domain.Participant{}, err
	}
	return participant, nil
}

// Start moves a waiting session to running.
func (e *SessionEngine) Start(ctx context.Context, sessionID string) (domain.Session, error) {
	lock := e.locks.get(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := e.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if session.Status != domain.SessionWaiting {
		return domain.Session{}, domain.ErrInvalidState
	}
	now := e.clock()
	if err := e.sessions.UpdateSessionStatus(ctx, sessionID, domain.SessionRunning, now); err != nil {
		return domain.Session{}, err
	}
	session.Status = domain.SessionRunning
	session.StartedAt = &now
	return session, nil
}

// Answer records a participant's answer in a running session: the ledger
// rejects duplicates, the strategy scores the rest, the participant's
// aggregates grow, and the session standings are recomputed and pushed.
func (e *SessionEngine) Answer(ctx context.Context, sessionID, participantID, questionID, alternativeID string, elapsedSeconds float64) (AnswerResult, error) {
	lock := e.locks.get(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := e.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return AnswerResult{}, err
	}
	switch session.Status {
	case domain.SessionFinished:
		return AnswerResult{}, domain.ErrSessionClosed
	case domain.SessionWaiting:
		return AnswerResult{}, domain.ErrInvalidState
	}

	participant, err := e.sessions.GetParticipant(ctx, participantID)
	if err != nil {
		return AnswerResult{}, err
	}
	if participant.SessionID != sessionID {
		return AnswerResult{}, domain.ErrParticipantNotFound
	}

	quiz, err := e.quizzes.GetQuiz(ctx, session.QuizID)
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
	answer, err := e.ledger.Record(ctx, domain.ParticipantOwner(participantID), question, chosen, elapsedSeconds, awarded)
	if errors.Is(err, domain.ErrDuplicateAnswer) {
		return AnswerResult{}, domain.ErrAlreadyAnswered
	}
	if err != nil {
		return AnswerResult{}, err
	}

	totalScore, totalElapsed, err := e.sessions.AddParticipantTotals(ctx, participantID, awarded, elapsedSeconds)
	if err != nil {
		return AnswerResult{}, err
	}
	standings, err := e.ranking.RecomputeSession(ctx, sessionID)
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

// Finish seals a running session. Every participant's aggregates are
// recomputed from the stored answers before sealing, so counter drift from
// any missed increment cannot survive into the final standings. Finishing a
// finished session is a no-op returning the current state.
func (e *SessionEngine) Finish(ctx context.Context, sessionID string) (domain.Session, error) {
	lock := e.locks.get(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := e.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if session.Status == domain.SessionFinished {
		return session, nil
	}
	if session.Status != domain.SessionRunning {
		return domain.Session{}, domain.ErrInvalidState
	}

	participants, err := e.sessions.ListParticipants(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	for _, p := range participants {
		score, elapsed, err := e.totalsFromLedger(ctx, domain.ParticipantOwner(p.ID))
		if err != nil {
			return domain.Session{}, err
		}
		if err := e.sessions.SetParticipantTotals(ctx, p.ID, score, elapsed); err != nil {
			return domain.Session{}, err
		}
	}

	now := e.clock()
	if err := e.sessions.UpdateSessionStatus(ctx, sessionID, domain.SessionFinished, now); err != nil {
		return domain.Session{}, err
	}
	if _, err := e.ranking.RecomputeSession(ctx, sessionID); err != nil {
		return domain.Session{}, err
	}
	session.Status = domain.SessionFinished
	session.FinishedAt = &now
	return session, nil
}

func (e *SessionEngine) totalsFromLedger(ctx context.Context, owner domain.OwnerRef) (int, float64, error) {
	answers, err := e.ledger.ListByOwner(ctx, owner)
	if err != nil {
		return 0, 0, err
	}
	score := 0
	elapsed := 0.0
	for _, a := range answers {
		score += a.Awarded
		elapsed += a.ElapsedSeconds
	}
	return score, elapsed, nil
}
