// Package llm drives the generative-language API: it compiles prompts,
// issues the network exchange with retry, and recovers typed exam documents
// from loosely valid model output.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quizify/quizify/internal/exam"
	"github.com/quizify/quizify/internal/jsonrepair"
	"github.com/quizify/quizify/internal/llm/prompts"
	"github.com/quizify/quizify/internal/model"
)

const (
	// DefaultBaseURL is the production generative-language endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	// DefaultModel is used when the caller does not name a model.
	DefaultModel = "gemini-2.0-flash"
)

// Client is a stateless handle on the generative API for one credential and
// model. It holds no mutable state between calls; callers with different
// credentials each create their own Client.
type Client struct {
	hc             *http.Client
	baseURL        string
	apiKey         string
	model          string
	maxRetries     int
	baseDelay      time.Duration
	attemptTimeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithRetry overrides the maximum attempt count and initial backoff delay.
func WithRetry(maxRetries int, baseDelay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.baseDelay = baseDelay
	}
}

// WithAttemptTimeout bounds each individual HTTP attempt.
func WithAttemptTimeout(d time.Duration) Option {
	return func(c *Client) { c.attemptTimeout = d }
}

// New creates a new API client. An empty baseURL or modelName selects the
// defaults.
func New(baseURL, apiKey, modelName string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	c := &Client{
		hc:             &http.Client{},
		baseURL:        strings.TrimRight(baseURL, "/"),
		apiKey:         apiKey,
		model:          modelName,
		maxRetries:     defaultMaxRetries,
		baseDelay:      defaultBaseDelay,
		attemptTimeout: defaultAttemptTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	// Always make at least one attempt.
	if c.maxRetries < 1 {
		c.maxRetries = 1
	}
	return c
}

// Wire types for the generateContent exchange.

type part struct {
	Text string `json:"text"`
}

type promptContent struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMIMEType string `json:"responseMimeType"`
}

type generateRequest struct {
	Contents          []promptContent  `json:"contents"`
	SystemInstruction *promptContent   `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content promptContent `json:"content"`
	} `json:"candidates"`
}

type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate produces an exam paper from source material or a topic string.
// The returned paper is validated against the configuration and carries the
// derived totals and duration.
func (c *Client) Generate(ctx context.Context, source string, cfg model.ExamConfig, mode model.SourceMode) (*model.GeneratedPaper, error) {
	if err := exam.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	p, err := prompts.BuildGenerationPrompt(source, cfg, mode)
	if err != nil {
		return nil, err
	}

	payload := generateRequest{
		Contents:          []promptContent{{Parts: []part{{Text: p.Content}}}},
		SystemInstruction: &promptContent{Parts: []part{{Text: p.System}}},
		GenerationConfig:  generationConfig{ResponseMIMEType: "application/json"},
	}

	text, err := c.generateContent(ctx, payload)
	if err != nil {
		return nil, err
	}

	raw, err := jsonrepair.Extract(text)
	if err != nil {
		return nil, &ExtractionError{Raw: text, Err: err}
	}

	var paper model.GeneratedPaper
	if err := json.Unmarshal(raw, &paper); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &exam.SchemaMismatchError{Field: typeErr.Field, Reason: "unexpected " + typeErr.Value}
		}
		return nil, &ExtractionError{Raw: text, Err: err}
	}

	if err := exam.ValidatePaper(&paper, cfg); err != nil {
		return nil, err
	}
	exam.Normalize(&paper, cfg)
	return &paper, nil
}

// Grade submits the paper and collected answers for model assessment and
// returns the report with missing subjective entries defaulted. Scores are
// clamped to each question's marks; objective correctness is not decided
// here (see exam.Aggregate).
func (c *Client) Grade(ctx context.Context, paper *model.GeneratedPaper, answers model.AnswerSet, vibeMode bool) (*model.GradingReport, error) {
	records := prompts.FlattenQuestions(paper, answers)

	prompt, err := prompts.BuildGradingPrompt(records, vibeMode)
	if err != nil {
		return nil, err
	}

	payload := generateRequest{
		Contents:         []promptContent{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{ResponseMIMEType: "application/json"},
	}

	text, err := c.generateContent(ctx, payload)
	if err != nil {
		return nil, err
	}

	raw, err := jsonrepair.Extract(text)
	if err != nil {
		return nil, &ExtractionError{Raw: text, Err: err}
	}

	var report model.GradingReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, &ExtractionError{Raw: text, Err: err}
	}

	exam.NormalizeReport(&report, paper)
	return &report, nil
}

// ListModels fetches the models advertised for the configured credential.
// It doubles as a cheap credential check.
func (c *Client) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	endpoint := fmt.Sprintf("%s/v1beta/models?key=%s", c.baseURL, url.QueryEscape(c.apiKey))

	status, body, err := c.send(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &TransportError{StatusCode: status, Message: apiErrorMessage(body, status)}
	}

	var out struct {
		Models []model.ModelInfo `json:"models"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &ExtractionError{Raw: string(body), Err: err}
	}
	return out.Models, nil
}

// Ping verifies the credential and endpoint are usable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ListModels(ctx)
	return err
}

// generateContent runs one generateContent exchange and returns the model
// output text.
func (c *Client) generateContent(ctx context.Context, payload generateRequest) (string, error) {
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))

	status, body, err := c.send(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", &TransportError{StatusCode: status, Message: apiErrorMessage(body, status)}
	}

	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &ExtractionError{Raw: string(body), Err: err}
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", &ExtractionError{Raw: string(body), Err: errors.New("response contains no candidates")}
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

func apiErrorMessage(body []byte, status int) string {
	var parsed apiErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return http.StatusText(status)
}
