// Package exam validates generated papers against their configuration,
// computes derived paper values and aggregates grading results into a
// final score report.
package exam

import (
	"errors"
	"fmt"
	"strings"

	"github.com/quizify/quizify/internal/model"
)

// secondsPerQuestion is the auto-timer allowance per question.
const secondsPerQuestion = 180

// pendingReview is the placeholder feedback for a question the model did
// not grade.
const pendingReview = "Pending review..."

// SchemaMismatchError reports the first missing or invalid field found
// while validating a generation result. It is never retried.
type SchemaMismatchError struct {
	Field  string
	Reason string
}

func (e *SchemaMismatchError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("schema mismatch at %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("schema mismatch: missing or invalid field %s", e.Field)
}

// ValidateConfig checks the caller-supplied exam configuration before any
// network call is attempted.
func ValidateConfig(cfg model.ExamConfig) error {
	if len(cfg.Sections) == 0 {
		return errors.New("exam config has no sections")
	}
	seen := make(map[string]bool, len(cfg.Sections))
	for i, s := range cfg.Sections {
		if strings.TrimSpace(s.ID) == "" {
			return fmt.Errorf("section %d has an empty id", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate section id %q", s.ID)
		}
		seen[s.ID] = true
		if s.Count < 0 {
			return fmt.Errorf("section %q has a negative question count", s.ID)
		}
	}
	return nil
}

// ValidatePaper confirms a parsed generation result matches the shape the
// configuration requested. It fails with a SchemaMismatchError naming the
// first offending field.
func ValidatePaper(p *model.GeneratedPaper, cfg model.ExamConfig) error {
	if len(p.Sections) == 0 {
		return &SchemaMismatchError{Field: "sections"}
	}

	seenSec := make(map[string]bool, len(cfg.Sections))
	seenQ := make(map[string]bool)
	for i, s := range p.Sections {
		field := fmt.Sprintf("sections[%d]", i)
		if s.ID == "" {
			return &SchemaMismatchError{Field: field + ".id"}
		}
		if seenSec[s.ID] {
			return &SchemaMismatchError{Field: field + ".id", Reason: fmt.Sprintf("duplicate section id %q", s.ID)}
		}
		seenSec[s.ID] = true
		spec := cfg.SectionByID(s.ID)
		if spec == nil {
			return &SchemaMismatchError{Field: field + ".id", Reason: fmt.Sprintf("%q is not a requested section", s.ID)}
		}
		if len(s.Questions) != spec.Count {
			return &SchemaMismatchError{
				Field:  field + ".questions",
				Reason: fmt.Sprintf("expected %d questions, got %d", spec.Count, len(s.Questions)),
			}
		}

		for j, q := range s.Questions {
			qf := fmt.Sprintf("%s.questions[%d]", field, j)
			if q.ID == "" {
				return &SchemaMismatchError{Field: qf + ".id"}
			}
			if seenQ[q.ID] {
				return &SchemaMismatchError{Field: qf + ".id", Reason: fmt.Sprintf("duplicate question id %q", q.ID)}
			}
			seenQ[q.ID] = true
			if strings.TrimSpace(q.Question) == "" {
				return &SchemaMismatchError{Field: qf + ".question"}
			}
			if q.Marks <= 0 {
				return &SchemaMismatchError{Field: qf + ".marks", Reason: "must be positive"}
			}
			if spec.Type.IsMCQ() {
				if len(q.Options) != 4 {
					return &SchemaMismatchError{Field: qf + ".options", Reason: "MCQ requires exactly 4 options"}
				}
				if !contains(q.Options, q.Answer) {
					return &SchemaMismatchError{Field: qf + ".answer", Reason: "must equal one of the options"}
				}
			}
		}
	}

	// Every requested section with questions must actually be present.
	for _, spec := range cfg.Sections {
		if spec.Count > 0 && !seenSec[spec.ID] {
			return &SchemaMismatchError{Field: "sections", Reason: fmt.Sprintf("requested section %q is missing", spec.ID)}
		}
	}
	return nil
}

// Normalize computes the paper's derived fields: question and mark totals
// and the duration used when the timer is in auto mode.
func Normalize(p *model.GeneratedPaper, cfg model.ExamConfig) {
	total := 0
	marks := 0
	for _, s := range p.Sections {
		total += len(s.Questions)
		for _, q := range s.Questions {
			marks += q.Marks
		}
	}
	p.TotalQuestions = total
	p.TotalMarks = marks

	if cfg.TimerMode == model.TimerManual && cfg.ManualMinutes > 0 {
		p.DurationSeconds = cfg.ManualMinutes * 60
	} else {
		p.DurationSeconds = total * secondsPerQuestion
	}
}

// NormalizeReport fills placeholder entries for subjective questions the
// model skipped and clamps every known score into [0, marks]. Partial
// grading degrades instead of failing: the defaulted ids are recorded on
// the report for the caller to surface.
func NormalizeReport(r *model.GradingReport, paper *model.GeneratedPaper) {
	if r.Results == nil {
		r.Results = make(map[string]model.GradeEntry)
	}
	for _, q := range paper.Questions() {
		entry, ok := r.Results[q.ID]
		if !ok {
			// MCQs are scored locally; only written answers need a placeholder.
			if !q.IsMCQ() {
				r.Results[q.ID] = model.GradeEntry{Feedback: pendingReview}
				r.Defaulted = append(r.Defaulted, q.ID)
			}
			continue
		}
		entry.Score = clamp(entry.Score, 0, float64(q.Marks))
		r.Results[q.ID] = entry
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
