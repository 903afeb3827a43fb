package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrSessionNotFound is returned for an unknown session ID or join code.
	ErrSessionNotFound = errors.New("session not found")
	// ErrParticipantNotFound is returned when a participant is absent from a session.
	ErrParticipantNotFound = errors.New("participant not found in session")
	// ErrAttemptNotFound is returned for an unknown attempt ID.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrAlternativeNotFound indicates a submitted alternative ID is invalid.
	ErrAlternativeNotFound = errors.New("alternative not found")

	// ErrInvalidState is returned when an operation does not match the
	// owner's lifecycle phase (e.g. starting an already running session).
	ErrInvalidState = errors.New("invalid lifecycle state")
	// ErrSessionClosed is returned when joining or answering a finished session.
	ErrSessionClosed = errors.New("session closed")
	// ErrAlreadyCompleted is returned when starting an attempt for a quiz the
	// user already finished.
	ErrAlreadyCompleted = errors.New("attempt already completed")

	// ErrDuplicateAnswer is the ledger-level rejection of a second answer for
	// the same (owner, question). Expected under races, never a crash.
	ErrDuplicateAnswer = errors.New("duplicate answer")
	// ErrAlreadyAnswered is the engine-level form of ErrDuplicateAnswer
	// surfaced to callers.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrAttemptExists signals a concurrent create for the same (quiz, user).
	ErrAttemptExists = errors.New("attempt already exists")
	// ErrCodeInUse signals a join-code collision with an active session.
	ErrCodeInUse = errors.New("join code already in use")

	// ErrAccessDenied is returned when the entitlement gate rejects a user.
	ErrAccessDenied = errors.New("access denied")
)
