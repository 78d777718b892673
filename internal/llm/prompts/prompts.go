// Package prompts renders the instruction text sent to the generative API.
// Templates are embedded and loaded once; rendering is a pure function of
// the exam configuration and collected answers.
package prompts

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/quizify/quizify/internal/model"
)

//go:embed templates/*.txt
var templateFS embed.FS

// ErrEmptyInput is returned when there is no content or no questions to
// build a prompt from. It is checked before any network call is made.
var ErrEmptyInput = errors.New("no input to build a prompt from")

// NotAnswered is the sentinel substituted for a missing student answer.
const NotAnswered = "(Not Answered)"

// maxContextChars caps how much source material is embedded in a
// document-mode prompt.
const maxContextChars = 300000

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[string]*template.Template
)

func load() error {
	loadOnce.Do(func() {
		templates = make(map[string]*template.Template)
		names := []string{"generate_topic", "generate_document", "grade_standard", "grade_vibe"}
		for _, name := range names {
			content, err := templateFS.ReadFile("templates/" + name + ".txt")
			if err != nil {
				loadErr = fmt.Errorf("read prompt template %s: %w", name, err)
				return
			}
			tmpl, err := template.New(name).Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", name, err)
				return
			}
			templates[name] = tmpl
		}
	})
	return loadErr
}

// Prompt is a compiled instruction pair: the system instruction and the
// content text for the request body.
type Prompt struct {
	System  string
	Content string
}

type sectionLine struct {
	Index     int
	ID        string
	Title     string
	Count     int
	Marks     int
	TypeLabel string
}

type generationData struct {
	Difficulty     string
	Sections       []sectionLine
	FirstSectionID string
}

type gradingData struct {
	Records string
}

// BuildGenerationPrompt compiles the generation instruction for the given
// source content, configuration and mode. Content must be non-blank; in
// document mode it is capped at maxContextChars and the model is told to
// stay within it.
func BuildGenerationPrompt(content string, cfg model.ExamConfig, mode model.SourceMode) (Prompt, error) {
	if err := load(); err != nil {
		return Prompt{}, err
	}
	if strings.TrimSpace(content) == "" {
		return Prompt{}, ErrEmptyInput
	}

	difficulty := cfg.Difficulty
	if difficulty == "" {
		difficulty = model.DifficultyMedium
	}

	data := generationData{
		Difficulty: strings.ToUpper(string(difficulty)),
	}
	for i, s := range cfg.Sections {
		label := "Subjective/Text based"
		if s.Type.IsMCQ() {
			label = "Multiple Choice (4 plausible options)"
		}
		data.Sections = append(data.Sections, sectionLine{
			Index:     i + 1,
			ID:        s.ID,
			Title:     s.Title,
			Count:     s.Count,
			Marks:     s.Marks,
			TypeLabel: label,
		})
	}
	if len(cfg.Sections) > 0 {
		data.FirstSectionID = cfg.Sections[0].ID
	}

	name := "generate_topic"
	if mode == model.ModeDocument {
		name = "generate_document"
	}

	var buf bytes.Buffer
	if err := templates[name].Execute(&buf, data); err != nil {
		return Prompt{}, err
	}

	focus := cfg.FocusTopic
	if focus == "" {
		focus = "None"
	}

	var contentText string
	if mode == model.ModeDocument {
		contentText = "CONTEXT TEXT:\n" + truncate(content, maxContextChars) + "\nFocus Areas: " + focus
	} else {
		contentText = "TOPIC: \"" + content + "\"\nAdditional Focus Areas: " + focus
	}

	return Prompt{System: buf.String(), Content: contentText}, nil
}

// QuestionRecord is the uniform per-question view handed to the grading
// prompt: one record per question regardless of type.
type QuestionRecord struct {
	ID              string   `json:"id"`
	Type            string   `json:"type"`
	Question        string   `json:"question"`
	Options         []string `json:"options,omitempty"`
	CorrectAnswer   string   `json:"correctAnswer,omitempty"`
	StudentAnswer   string   `json:"studentAnswer"`
	MaxMarks        int      `json:"maxMarks"`
	ReferenceAnswer string   `json:"referenceAnswer,omitempty"`
}

// FlattenQuestions turns every question in the paper into a QuestionRecord,
// pairing it with the student's answer for its modality or the NotAnswered
// sentinel. Sketch answers are display-only and are never included.
func FlattenQuestions(paper *model.GeneratedPaper, answers model.AnswerSet) []QuestionRecord {
	var records []QuestionRecord
	if paper == nil {
		return records
	}
	for _, section := range paper.Sections {
		for _, q := range section.Questions {
			rec := QuestionRecord{
				ID:              q.ID,
				Type:            "Written",
				Question:        q.Question,
				CorrectAnswer:   q.Answer,
				MaxMarks:        q.Marks,
				ReferenceAnswer: q.AnswerKey,
			}
			var answer string
			if q.IsMCQ() {
				rec.Type = "MCQ"
				rec.Options = q.Options
				answer = answers.MCQ[q.ID]
			} else {
				answer = answers.Text[q.ID]
			}
			if strings.TrimSpace(answer) == "" {
				answer = NotAnswered
			}
			rec.StudentAnswer = answer
			records = append(records, rec)
		}
	}
	return records
}

// BuildGradingPrompt compiles the grading instruction for the flattened
// question records. vibeMode switches the tone of the feedback without
// changing the scoring rubric.
func BuildGradingPrompt(records []QuestionRecord, vibeMode bool) (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", ErrEmptyInput
	}

	encoded, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("encode question records: %w", err)
	}

	name := "grade_standard"
	if vibeMode {
		name = "grade_vibe"
	}

	var buf bytes.Buffer
	if err := templates[name].Execute(&buf, gradingData{Records: string(encoded)}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
