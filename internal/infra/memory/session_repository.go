package memory

import (
	"context"
	"sync"
	"time"

	"journey-quiz-service/internal/domain"
)

// SessionRepository is an in-memory implementation of app.SessionRepository.
type SessionRepository struct {
	mu           sync.RWMutex
	sessions     map[string]domain.Session
	participants map[string]domain.Participant
	roster       map[string][]string // sessionID -> participant IDs in join order
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions:     make(map[string]domain.Session),
		participants: make(map[string]domain.Participant),
		roster:       make(map[string][]string),
	}
}

func (r *SessionRepository) CreateSession(_ context.Context, session domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.sessions {
		if existing.Code == session.Code && existing.Status != domain.SessionFinished {
			return domain.ErrCodeInUse
		}
	}
	r.sessions[session.ID] = session
	return nil
}

func (r *SessionRepository) GetSession(_ context.Context, id string) (domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (r *SessionRepository) GetSessionByCode(_ context.Context, code string) (domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found domain.Session
	var ok bool
	for _, session := range r.sessions {
		if session.Code != code {
			continue
		}
		if !ok || session.CreatedAt.After(found.CreatedAt) {
			found = session
			ok = true
		}
	}
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return found, nil
}

func (r *SessionRepository) UpdateSessionStatus(_ context.Context, id string, status domain.SessionStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.Status = status
	switch status {
	case domain.SessionRunning:
		session.StartedAt = &at
	case domain.SessionFinished:
		session.FinishedAt = &at
	}
	r.sessions[id] = session
	return nil
}

func (r *SessionRepository) CreateParticipant(_ context.Context, participant domain.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[participant.SessionID]; !ok {
		return domain.ErrSessionNotFound
	}
	r.participants[participant.ID] = participant
	r.roster[participant.SessionID] = append(r.roster[participant.SessionID], participant.ID)
	return nil
}

func (r *SessionRepository) GetParticipant(_ context.Context, id string) (domain.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	participant, ok := r.participants[id]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return participant, nil
}

func (r *SessionRepository) ListParticipants(_ context.Context, sessionID string) ([]domain.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.roster[sessionID]
	participants := make([]domain.Participant, 0, len(ids))
	for _, id := range ids {
		participants = append(participants, r.participants[id])
	}
	return participants, nil
}

func (r *SessionRepository) AddParticipantTotals(_ context.Context, id string, deltaScore int, deltaElapsed float64) (int, float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	participant, ok := r.participants[id]
	if !ok {
		return 0, 0, domain.ErrParticipantNotFound
	}
	participant.Score += deltaScore
	participant.ElapsedSeconds += deltaElapsed
	r.participants[id] = participant
	return participant.Score, participant.ElapsedSeconds, nil
}

func (r *SessionRepository) SetParticipantTotals(_ context.Context, id string, score int, elapsed float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	participant, ok := r.participants[id]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	participant.Score = score
	participant.ElapsedSeconds = elapsed
	r.participants[id] = participant
	return nil
}

func (r *SessionRepository) SetParticipantPosition(_ context.Context, id string, position int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	participant, ok := r.participants[id]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	participant.Position = position
	r.participants[id] = participant
	return nil
}
