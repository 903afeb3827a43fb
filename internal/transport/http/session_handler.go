package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"journey-quiz-service/internal/app"
	"journey-quiz-service/internal/domain"
)

// SessionHandler exposes session administration as JSON endpoints; playing
// happens over the websocket.
//
//	POST /sessions               {quizId}  -> session with join code
//	POST /sessions/{id}/start
//	POST /sessions/{id}/finish
type SessionHandler struct {
	sessions *app.SessionEngine
}

func NewSessionHandler(sessions *app.SessionEngine) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

type createSessionRequest struct {
	QuizID string `json:"quizId"`
}

func (h *SessionHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/sessions", h.handleCreate)
	mux.HandleFunc("/sessions/", h.handleSession)
}

func (h *SessionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuizID == "" {
		http.Error(w, "invalid create payload", http.StatusBadRequest)
		return
	}
	session, err := h.sessions.Create(r.Context(), req.QuizID)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, session)
}

func (h *SessionHandler) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/sessions/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	sessionID, action := parts[0], parts[1]

	var session domain.Session
	var err error
	switch action {
	case "start":
		session, err = h.sessions.Start(r.Context(), sessionID)
	case "finish":
		session, err = h.sessions.Finish(r.Context(), sessionID)
	default:
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, session)
}

func writeSessionError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrSessionClosed):
		status = http.StatusGone
	}
	http.Error(w, err.Error(), status)
}
