// Package handler exposes the generation and grading pipeline over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quizify/quizify/internal/exam"
	"github.com/quizify/quizify/internal/llm"
	"github.com/quizify/quizify/internal/model"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	llm *llm.Client
}

// New creates a new Handler.
func New(client *llm.Client) *Handler {
	return &Handler{llm: client}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/generate", h.handleGenerate)
		r.Post("/grade", h.handleGrade)
		r.Get("/models", h.handleModels)
	})
}

type generateRequest struct {
	Content string           `json:"content"`
	Mode    model.SourceMode `json:"mode"`
	Config  model.ExamConfig `json:"config"`
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Mode == "" {
		req.Mode = model.ModeTopic
	}
	if err := exam.ValidateConfig(req.Config); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	paper, err := h.llm.Generate(r.Context(), req.Content, req.Config, req.Mode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paper)
}

type gradeRequest struct {
	Paper    model.GeneratedPaper `json:"paper"`
	Answers  model.AnswerSet      `json:"answers"`
	VibeMode bool                 `json:"vibeMode"`
}

type gradeResponse struct {
	Report *model.GradingReport `json:"report"`
	Score  model.ScoreSummary   `json:"score"`
}

func (h *Handler) handleGrade(w http.ResponseWriter, r *http.Request) {
	var req gradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	report, err := h.llm.Grade(r.Context(), &req.Paper, req.Answers, req.VibeMode)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, gradeResponse{
		Report: report,
		Score:  exam.Aggregate(&req.Paper, report, req.Answers),
	})
}

func (h *Handler) handleModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.llm.ListModels(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

// writeError maps pipeline failures to HTTP statuses: caller mistakes are
// 400s, everything the upstream model got wrong is a 502.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		// Client went away; nothing useful to write.
		slog.Debug("request cancelled", "path", r.URL.Path)
		return
	}

	var (
		mismatch   *exam.SchemaMismatchError
		extraction *llm.ExtractionError
		transport  *llm.TransportError
	)
	switch {
	case errors.Is(err, llm.ErrEmptyInput):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &mismatch), errors.As(err, &extraction), errors.As(err, &transport):
		slog.Error("upstream pipeline failure", "path", r.URL.Path, "error", err)
		writeJSONError(w, http.StatusBadGateway, err.Error())
	default:
		slog.Error("internal error", "path", r.URL.Path, "error", err)
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
