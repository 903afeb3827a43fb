package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"journey-quiz-service/internal/domain"
)

// AnswerLedger is the Postgres implementation of app.AnswerLedger. The
// partial unique indexes on (participant_id, question_id) and (attempt_id,
// question_id) settle concurrent records inside a single INSERT: the loser
// affects zero rows and observes ErrDuplicateAnswer, never a second row or
// a silent overwrite.
type AnswerLedger struct {
	pool  *pgxpool.Pool
	clock func() time.Time
}

func NewAnswerLedger(pool *pgxpool.Pool) *AnswerLedger {
	return &AnswerLedger{pool: pool, clock: time.Now}
}

func (l *AnswerLedger) Record(ctx context.Context, owner domain.OwnerRef, question domain.Question, chosen domain.Alternative, elapsedSeconds float64, awarded int) (domain.Answer, error) {
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

	var participantID, attemptID *string
	switch owner.Kind {
	case domain.OwnerParticipant:
		participantID = &owner.ID
	case domain.OwnerAttempt:
		attemptID = &owner.ID
	default:
		return domain.Answer{}, fmt.Errorf("unknown owner kind %q", owner.Kind)
	}

	tag, err := l.pool.Exec(ctx, `
INSERT INTO answers (id, participant_id, attempt_id, question_id, alternative_id, elapsed_seconds, awarded, correct, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT DO NOTHING`,
		answer.ID, participantID, attemptID, answer.QuestionID, answer.AlternativeID,
		answer.ElapsedSeconds, answer.Awarded, answer.Correct, answer.CreatedAt)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("record answer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Answer{}, domain.ErrDuplicateAnswer
	}
	return answer, nil
}

func (l *AnswerLedger) ListByOwner(ctx context.Context, owner domain.OwnerRef) ([]domain.Answer, error) {
	var column string
	switch owner.Kind {
	case domain.OwnerParticipant:
		column = "participant_id"
	case domain.OwnerAttempt:
		column = "attempt_id"
	default:
		return nil, fmt.Errorf("unknown owner kind %q", owner.Kind)
	}

	rows, err := l.pool.Query(ctx, fmt.Sprintf(`
SELECT id, question_id, alternative_id, elapsed_seconds, awarded, correct, created_at
FROM answers WHERE %s=$1 ORDER BY created_at ASC`, column), owner.ID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	var answers []domain.Answer
	for rows.Next() {
		a := domain.Answer{Owner: owner}
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.AlternativeID, &a.ElapsedSeconds, &a.Awarded, &a.Correct, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}
