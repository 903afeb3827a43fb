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

// SessionRepository persists sessions and participants in Postgres. Join
// code uniqueness among active sessions rides on a partial unique index, so
// two concurrent creates with the same code resolve inside one INSERT.
type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) CreateSession(ctx context.Context, s domain.Session) error {
	tag, err := r.pool.Exec(ctx, `
INSERT INTO sessions (id, quiz_id, code, status, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (code) WHERE status <> 'finished' DO NOTHING`,
		s.ID, s.QuizID, s.Code, string(s.Status), s.CreatedAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCodeInUse
	}
	return nil
}

func (r *SessionRepository) GetSession(ctx context.Context, id string) (domain.Session, error) {
	return r.scanSession(r.pool.QueryRow(ctx, `
SELECT id, quiz_id, code, status, created_at, started_at, finished_at
FROM sessions WHERE id=$1`, id))
}

func (r *SessionRepository) GetSessionByCode(ctx context.Context, code string) (domain.Session, error) {
	return r.scanSession(r.pool.QueryRow(ctx, `
SELECT id, quiz_id, code, status, created_at, started_at, finished_at
FROM sessions WHERE code=$1 ORDER BY created_at DESC LIMIT 1`, code))
}

func (r *SessionRepository) scanSession(row pgx.Row) (domain.Session, error) {
	var s domain.Session
	var status string
	err := row.Scan(&s.ID, &s.QuizID, &s.Code, &status, &s.CreatedAt, &s.StartedAt, &s.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("scan session: %w", err)
	}
	s.Status = domain.SessionStatus(status)
	return s, nil
}

func (r *SessionRepository) UpdateSessionStatus(ctx context.Context, id string, status domain.SessionStatus, at time.Time) error {
	var query string
	switch status {
	case domain.SessionRunning:
		query = `UPDATE sessions SET status=$2, started_at=$3 WHERE id=$1`
	case domain.SessionFinished:
		query = `UPDATE sessions SET status=$2, finished_at=$3 WHERE id=$1`
	default:
		query = `UPDATE sessions SET status=$2 WHERE id=$1`
		tag, err := r.pool.Exec(ctx, query, id, string(status))
		if err != nil {
			return fmt.Errorf("update session status: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrSessionNotFound
		}
		return nil
	}
	tag, err := r.pool.Exec(ctx, query, id, string(status), at)
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepository) CreateParticipant(ctx context.Context, p domain.Participant) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO participants (id, session_id, user_ref, display_name, score, elapsed_seconds, rank_position, joined_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.SessionID, nullable(p.UserRef), p.DisplayName, p.Score, p.ElapsedSeconds, p.Position, p.JoinedAt)
	if err != nil {
		return fmt.Errorf("create participant: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetParticipant(ctx context.Context, id string) (domain.Participant, error) {
	var p domain.Participant
	var userRef *string
	err := r.pool.QueryRow(ctx, `
SELECT id, session_id, user_ref, display_name, score, elapsed_seconds, rank_position, joined_at
FROM participants WHERE id=$1`, id).
		Scan(&p.ID, &p.SessionID, &userRef, &p.DisplayName, &p.Score, &p.ElapsedSeconds, &p.Position, &p.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("get participant: %w", err)
	}
	if userRef != nil {
		p.UserRef = *userRef
	}
	return p, nil
}

func (r *SessionRepository) ListParticipants(ctx context.Context, sessionID string) ([]domain.Participant, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, session_id, user_ref, display_name, score, elapsed_seconds, rank_position, joined_at
FROM participants WHERE session_id=$1 ORDER BY joined_seq ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var participants []domain.Participant
	for rows.Next() {
		var p domain.Participant
		var userRef *string
		if err := rows.Scan(&p.ID, &p.SessionID, &userRef, &p.DisplayName, &p.Score, &p.ElapsedSeconds, &p.Position, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		if userRef != nil {
			p.UserRef = *userRef
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (r *SessionRepository) AddParticipantTotals(ctx context.Context, id string, deltaScore int, deltaElapsed float64) (int, float64, error) {
	var score int
	var elapsed float64
	err := r.pool.QueryRow(ctx, `
UPDATE participants SET score=score+$2, elapsed_seconds=elapsed_seconds+$3
WHERE id=$1 RETURNING score, elapsed_seconds`, id, deltaScore, deltaElapsed).
		Scan(&score, &elapsed)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, domain.ErrParticipantNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("add participant totals: %w", err)
	}
	return score, elapsed, nil
}

func (r *SessionRepository) SetParticipantTotals(ctx context.Context, id string, score int, elapsed float64) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE participants SET score=$2, elapsed_seconds=$3 WHERE id=$1`, id, score, elapsed)
	if err != nil {
		return fmt.Errorf("set participant totals: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrParticipantNotFound
	}
	return nil
}

func (r *SessionRepository) SetParticipantPosition(ctx context.Context, id string, position int) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE participants SET rank_position=$2 WHERE id=$1`, id, position)
	if err != nil {
		return fmt.Errorf("set participant position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrParticipantNotFound
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
