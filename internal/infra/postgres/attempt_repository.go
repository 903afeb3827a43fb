package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"journey-quiz-service/internal/domain"
)

// AttemptRepository persists solo attempts in Postgres. The (quiz_id,
// user_ref) unique constraint settles creation races in one INSERT.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

func (r *AttemptRepository) CreateAttempt(ctx context.Context, a domain.Attempt) error {
	tag, err := r.pool.Exec(ctx, `
INSERT INTO attempts (id, quiz_id, user_ref, status, score, elapsed_seconds, rank_position, started_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (quiz_id, user_ref) DO NOTHING`,
		a.ID, a.QuizID, a.UserRef, string(a.Status), a.Score, a.ElapsedSeconds, a.Position, a.StartedAt)
	if err != nil {
		return fmt.Errorf("create attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAttemptExists
	}
	return nil
}

func (r *AttemptRepository) GetAttempt(ctx context.Context, id string) (domain.Attempt, error) {
	return r.scanAttempt(r.pool.QueryRow(ctx, `
SELECT id, quiz_id, user_ref, status, score, elapsed_seconds, rank_position, started_at, finished_at
FROM attempts WHERE id=$1`, id))
}

func (r *AttemptRepository) GetAttemptByQuizUser(ctx context.Context, quizID, userRef string) (domain.Attempt, error) {
	return r.scanAttempt(r.pool.QueryRow(ctx, `
SELECT id, quiz_id, user_ref, status, score, elapsed_seconds, rank_position, started_at, finished_at
FROM attempts WHERE quiz_id=$1 AND user_ref=$2`, quizID, userRef))
}

func (r *AttemptRepository) scanAttempt(row pgx.Row) (domain.Attempt, error) {
	var a domain.Attempt
	var status string
	err := row.Scan(&a.ID, &a.QuizID, &a.UserRef, &status, &a.Score, &a.ElapsedSeconds, &a.Position, &a.StartedAt, &a.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("scan attempt: %w", err)
	}
	a.Status = domain.AttemptStatus(status)
	return a, nil
}

func (r *AttemptRepository) ListAttemptsByQuiz(ctx context.Context, quizID string) ([]domain.Attempt, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, quiz_id, user_ref, status, score, elapsed_seconds, rank_position, started_at, finished_at
FROM attempts WHERE quiz_id=$1 ORDER BY started_at ASC, id ASC`, quizID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.Attempt
	for rows.Next() {
		var a domain.Attempt
		var status string
		if err := rows.Scan(&a.ID, &a.QuizID, &a.UserRef, &status, &a.Score, &a.ElapsedSeconds, &a.Position, &a.StartedAt, &a.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.Status = domain.AttemptStatus(status)
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func (r *AttemptRepository) AddAttemptTotals(ctx context.Context, id string, deltaScore int, deltaElapsed float64) (int, float64, error) {
	var score int
	var elapsed float64
	err := r.pool.QueryRow(ctx, `
UPDATE attempts SET score=score+$2, elapsed_seconds=elapsed_seconds+$3
WHERE id=$1 RETURNING score, elapsed_seconds`, id, deltaScore, deltaElapsed).
		Scan(&score, &elapsed)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, domain.ErrAttemptNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("add attempt totals: %w", err)
	}
	return score, elapsed, nil
}

func (r *AttemptRepository) SetAttemptTotals(ctx context.Context, id string, score int, elapsed float64) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE attempts SET score=$2, elapsed_seconds=$3 WHERE id=$1`, id, score, elapsed)
	if err != nil {
		return fmt.Errorf("set attempt totals: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAttemptNotFound
	}
	return nil
}

func (r *AttemptRepository) FinishAttempt(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE attempts SET status=$2, finished_at=$3 WHERE id=$1`, id, string(domain.AttemptFinished), at)
	if err != nil {
		return fmt.Errorf("finish attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAttemptNotFound
	}
	return nil
}

func (r *AttemptRepository) SetAttemptPosition(ctx context.Context, id string, position int) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE attempts SET rank_position=$2 WHERE id=$1`, id, position)
	if err != nil {
		return fmt.Errorf("set attempt position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAttemptNotFound
	}
	return nil
}
