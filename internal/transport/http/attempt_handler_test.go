package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"journey-quiz-service/internal/app"
	"journey-quiz-service/internal/domain"
	"journey-quiz-service/internal/infra/memory"
	"journey-quiz-service/internal/scoring"
)

func newAttemptServer(t *testing.T) *httptest.Server {
	t.Helper()
	sessions := memory.NewSessionRepository()
	attempts := memory.NewAttemptRepository()
	ledger := memory.NewAnswerLedger()
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{
		"quiz-1": {
			ID: "quiz-1",
			Questions: []domain.Question{
				{
					ID: "q1",
					Alternatives: []domain.Alternative{
						{ID: "a1", Correct: false},
						{ID: "a2", Correct: true},
					},
					Points:           100,
					TimeLimitSeconds: 20,
				},
			},
		},
	}), 5*time.Minute)

	access := memory.NewEntitlementList()
	access.Grant("u1", "quiz-1")

	ranking := app.NewRankingCoordinator(sessions, attempts, nil, nil)
	engine := app.NewAttemptEngine(attempts, quizzes, ledger, ranking, access, scoring.TimeBonus)

	mux := http.NewServeMux()
	NewAttemptHandler(engine).Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAttemptAPILifecycle(t *testing.T) {
	server := newAttemptServer(t)

	resp := postJSON(t, server.URL+"/attempts", map[string]string{"quizId": "quiz-1", "userRef": "u1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start: status %d", resp.StatusCode)
	}
	var attempt domain.Attempt
	if err := json.NewDecoder(resp.Body).Decode(&attempt); err != nil {
		t.Fatalf("decode attempt: %v", err)
	}
	if attempt.Status != domain.AttemptInProgress {
		t.Fatalf("expected in-progress attempt, got %+v", attempt)
	}

	resp = postJSON(t, server.URL+"/attempts/"+attempt.ID+"/answer", map[string]any{
		"questionId": "q1", "alternativeId": "a2", "elapsedSeconds": 10.0,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("answer: status %d", resp.StatusCode)
	}
	var result struct {
		Correct    bool `json:"correct"`
		Awarded    int  `json:"awarded"`
		TotalScore int  `json:"totalScore"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !result.Correct || result.Awarded != 150 {
		t.Fatalf("expected 150 awarded, got %+v", result)
	}

	resp = postJSON(t, server.URL+"/attempts/"+attempt.ID+"/finish", struct{}{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("finish: status %d", resp.StatusCode)
	}
	var finished domain.Attempt
	if err := json.NewDecoder(resp.Body).Decode(&finished); err != nil {
		t.Fatalf("decode finished: %v", err)
	}
	if finished.Status != domain.AttemptFinished || finished.Score != 150 {
		t.Fatalf("expected finished with 150, got %+v", finished)
	}
}

func TestAttemptAPIErrorStatuses(t *testing.T) {
	server := newAttemptServer(t)

	resp := postJSON(t, server.URL+"/attempts", map[string]string{"quizId": "quiz-1", "userRef": "stranger"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 without entitlement, got %d", resp.StatusCode)
	}

	resp = postJSON(t, server.URL+"/attempts", map[string]string{"quizId": "missing", "userRef": "u1"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown quiz, got %d", resp.StatusCode)
	}

	resp = postJSON(t, server.URL+"/attempts", map[string]string{"quizId": "quiz-1"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without user ref, got %d", resp.StatusCode)
	}

	resp = postJSON(t, server.URL+"/attempts/ghost/answer", map[string]any{
		"questionId": "q1", "alternativeId": "a2", "elapsedSeconds": 1.0,
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown attempt, got %d", resp.StatusCode)
	}
}

func TestAttemptAPIDuplicateAnswerConflicts(t *testing.T) {
	server := newAttemptServer(t)

	resp := postJSON(t, server.URL+"/attempts", map[string]string{"quizId": "quiz-1", "userRef": "u1"})
	var attempt domain.Attempt
	if err := json.NewDecoder(resp.Body).Decode(&attempt); err != nil {
		t.Fatalf("decode attempt: %v", err)
	}

	answer := map[string]any{"questionId": "q1", "alternativeId": "a2", "elapsedSeconds": 5.0}
	if resp := postJSON(t, server.URL+"/attempts/"+attempt.ID+"/answer", answer); resp.StatusCode != http.StatusOK {
		t.Fatalf("first answer: status %d", resp.StatusCode)
	}
	if resp := postJSON(t, server.URL+"/attempts/"+attempt.ID+"/answer", answer); resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate, got %d", resp.StatusCode)
	}
}
