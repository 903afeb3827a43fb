package domain

import "time"

// SessionStatus is the live-session lifecycle phase. Transitions are
// forward-only: waiting -> running -> finished.
type SessionStatus string

const (
	SessionWaiting  SessionStatus = "waiting"
	SessionRunning  SessionStatus = "running"
	SessionFinished SessionStatus = "finished"
)

// AttemptStatus is the solo-attempt lifecycle phase.
type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptFinished   AttemptStatus = "finished"
)

// Alternative is one possible answer for a question.
type Alternative struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question models an MCQ question with exactly one correct alternative.
type Question struct {
	ID               string        `json:"id"`
	Prompt           string        `json:"prompt"`
	Alternatives     []Alternative `json:"alternatives"`
	Points           int           `json:"points"` // defaults to 1 if zero
	TimeLimitSeconds float64       `json:"timeLimitSeconds"`
}

// Alternative returns the alternative with the given ID, if present.
func (q Question) Alternative(id string) (Alternative, bool) {
	for _, alt := range q.Alternatives {
		if alt.ID == id {
			return alt, true
		}
	}
	return Alternative{}, false
}

// BasePoints returns the question's point value with the default applied.
func (q Question) BasePoints() int {
	if q.Points > 0 {
		return q.Points
	}
	return 1
}

// Quiz is an ordered collection of questions, immutable during play.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Question returns the question with the given ID, if present.
func (z Quiz) Question(id string) (Question, bool) {
	for i := range z.Questions {
		if z.Questions[i].ID == id {
			return z.Questions[i], true
		}
	}
	return Question{}, false
}

// Session is a live, joinable quiz instance identified by a short code.
type Session struct {
	ID         string        `json:"id"`
	QuizID     string        `json:"quizId"`
	Code       string        `json:"code"`
	Status     SessionStatus `json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`
	StartedAt  *time.Time    `json:"startedAt,omitempty"`
	FinishedAt *time.Time    `json:"finishedAt,omitempty"`
}

// Participant is a session member's scoring identity. UserRef is empty for
// anonymous players.
type Participant struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"sessionId"`
	UserRef        string    `json:"userRef,omitempty"`
	DisplayName    string    `json:"displayName"`
	Score          int       `json:"score"`
	ElapsedSeconds float64   `json:"elapsedSeconds"`
	Position       int       `json:"position"`
	JoinedAt       time.Time `json:"joinedAt"`
}

// Attempt is a solo quiz instance, unique per (quiz, user) pair.
type Attempt struct {
	ID             string        `json:"id"`
	QuizID         string        `json:"quizId"`
	UserRef        string        `json:"userRef"`
	Status         AttemptStatus `json:"status"`
	Score          int           `json:"score"`
	ElapsedSeconds float64       `json:"elapsedSeconds"`
	Position       int           `json:"position"`
	StartedAt      time.Time     `json:"startedAt"`
	FinishedAt     *time.Time    `json:"finishedAt,omitempty"`
}

// OwnerKind distinguishes the two kinds of answer owners.
type OwnerKind string

const (
	OwnerParticipant OwnerKind = "participant"
	OwnerAttempt     OwnerKind = "attempt"
)

// OwnerRef identifies the owner of an answer: a participant or an attempt,
// never both.
type OwnerRef struct {
	Kind OwnerKind `json:"kind"`
	ID   string    `json:"id"`
}

func ParticipantOwner(id string) OwnerRef {
	return OwnerRef{Kind: OwnerParticipant, ID: id}
}

func AttemptOwner(id string) OwnerRef {
	return OwnerRef{Kind: OwnerAttempt, ID: id}
}

// Answer is the immutable record of one owner's response to one question.
// At most one answer may ever exist per (owner, question).
type Answer struct {
	ID             string    `json:"id"`
	Owner          OwnerRef  `json:"owner"`
	QuestionID     string    `json:"questionId"`
	AlternativeID  string    `json:"alternativeId"`
	ElapsedSeconds float64   `json:"elapsedSeconds"`
	Awarded        int       `json:"awarded"`
	Correct        bool      `json:"correct"`
	CreatedAt      time.Time `json:"createdAt"`
}

// StandingsEntry is one ranked row of a standings snapshot.
type StandingsEntry struct {
	OwnerID        string  `json:"ownerId"`
	DisplayName    string  `json:"displayName"`
	Score          int     `json:"score"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
	Position       int     `json:"position"`
}

// Standings captures the ordered scoreboard for a ranking scope (a session
// or, for solo attempts, a quiz). Version grows by one per recompute of the
// scope, so consumers can discard a snapshot that arrives after a newer one.
type Standings struct {
	ScopeID   string           `json:"scopeId"`
	Version   uint64           `json:"version"`
	Entries   []StandingsEntry `json:"entries"`
	UpdatedAt time.Time        `json:"updatedAt"`
}
