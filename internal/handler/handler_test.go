package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quizify/quizify/internal/llm"
	"github.com/quizify/quizify/internal/model"
)

const upstreamPaperJSON = `{
  "sections": [
    {
      "id": "sec_1",
      "title": "Multiple Choice",
      "questions": [
        {"id": "q1", "question": "2+2?", "options": ["3", "4", "5", "6"], "answer": "4", "marks": 2}
      ]
    }
  ]
}`

// newTestServer wires the handler against a stubbed generative API.
func newTestServer(t *testing.T, upstream http.HandlerFunc) *httptest.Server {
	t.Helper()
	api := httptest.NewServer(upstream)
	t.Cleanup(api.Close)

	client := llm.New(api.URL, "test-key", "test-model", llm.WithRetry(2, time.Millisecond))
	r := chi.NewRouter()
	New(client).Routes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func candidate(text string) string {
	data, _ := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	})
	return string(data)
}

func TestHandleGenerate(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(candidate(upstreamPaperJSON)))
	})

	body := `{
		"content": "Arithmetic",
		"mode": "topic",
		"config": {"sections": [{"id": "sec_1", "title": "Multiple Choice", "type": "mcq", "count": 1, "marks": 2}]}
	}`

	resp, err := http.Post(srv.URL+"/api/generate", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var paper model.GeneratedPaper
	if err := json.NewDecoder(resp.Body).Decode(&paper); err != nil {
		t.Fatal(err)
	}
	if paper.TotalQuestions != 1 || paper.TotalMarks != 2 || paper.DurationSeconds != 180 {
		t.Errorf("paper = %+v", paper)
	}
}

func TestHandleGenerateEmptyContent(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream should not be called")
	})

	body := `{"content": " ", "config": {"sections": [{"id": "s", "type": "mcq", "count": 1, "marks": 1}]}}`
	resp, err := http.Post(srv.URL+"/api/generate", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHandleGenerateNoSections(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream should not be called")
	})

	resp, err := http.Post(srv.URL+"/api/generate", "application/json",
		strings.NewReader(`{"content": "Physics", "config": {}}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHandleGenerateUpstreamFailure(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": {"message": "API key not valid"}}`))
	})

	body := `{"content": "Physics", "config": {"sections": [{"id": "s", "type": "mcq", "count": 1, "marks": 1}]}}`
	resp, err := http.Post(srv.URL+"/api/generate", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

func TestHandleGrade(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(candidate(`{"summary": "ok", "results": {"q1": {"score": 0, "feedback": "Wrong.", "correction": "4"}}}`)))
	})

	body := `{
		"paper": ` + upstreamPaperJSON + `,
		"answers": {"mcq": {"q1": "4"}},
		"vibeMode": false
	}`

	resp, err := http.Post(srv.URL+"/api/grade", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var graded gradeResponse
	if err := json.NewDecoder(resp.Body).Decode(&graded); err != nil {
		t.Fatal(err)
	}
	// Correct MCQ answer scores full marks no matter what the model said.
	if graded.Score.McqScore != 2 || graded.Score.TotalScore != 2 {
		t.Errorf("score = %+v", graded.Score)
	}
	if graded.Report.Summary != "ok" {
		t.Errorf("report = %+v", graded.Report)
	}
}

func TestHandleModels(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models": [{"name": "models/gemini-2.0-flash"}]}`))
	})

	resp, err := http.Get(srv.URL + "/api/models")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var out struct {
		Models []model.ModelInfo `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Models) != 1 {
		t.Errorf("models = %+v", out.Models)
	}
}
