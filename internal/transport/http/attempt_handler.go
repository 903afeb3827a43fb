package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"journey-quiz-service/internal/app"
	"journey-quiz-service/internal/domain"
)

// AttemptHandler exposes the solo-attempt lifecycle as a small JSON API:
//
//	POST /attempts              {quizId, userRef}            -> attempt
//	POST /attempts/{id}/answer  {questionId, alternativeId, elapsedSeconds}
//	POST /attempts/{id}/finish
type AttemptHandler struct {
	attempts *app.AttemptEngine
}

func NewAttemptHandler(attempts *app.AttemptEngine) *AttemptHandler {
	return &AttemptHandler{attempts: attempts}
}

type startAttemptRequest struct {
	QuizID  string `json:"quizId"`
	UserRef string `json:"userRef"`
}

type attemptAnswerRequest struct {
	QuestionID     string  `json:"questionId"`
	AlternativeID  string  `json:"alternativeId"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
}

func (h *AttemptHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/attempts", h.handleStart)
	mux.HandleFunc("/attempts/", h.handleAttempt)
}

func (h *AttemptHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req startAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuizID == "" || req.UserRef == "" {
		http.Error(w, "invalid start payload", http.StatusBadRequest)
		return
	}
	attempt, err := h.attempts.Start(r.Context(), req.QuizID, req.UserRef)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, attempt)
}

func (h *AttemptHandler) handleAttempt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/attempts/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	attemptID, action := parts[0], parts[1]

	switch action {
	case "answer":
		var req attemptAnswerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuestionID == "" || req.AlternativeID == "" {
			http.Error(w, "invalid answer payload", http.StatusBadRequest)
			return
		}
		result, err := h.attempts.Answer(r.Context(), attemptID, req.QuestionID, req.AlternativeID, req.ElapsedSeconds)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]any{
			"questionId": req.QuestionID,
			"correct":    result.Answer.Correct,
			"awarded":    result.Answer.Awarded,
			"totalScore": result.TotalScore,
			"standings":  result.Standings,
		})
	case "finish":
		attempt, err := h.attempts.Finish(r.Context(), attemptID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, attempt)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps engine error kinds to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrAttemptNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrAlternativeNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyAnswered),
		errors.Is(err, domain.ErrAlreadyCompleted),
		errors.Is(err, domain.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrAccessDenied):
		status = http.StatusForbidden
	}
	http.Error(w, err.Error(), status)
}
