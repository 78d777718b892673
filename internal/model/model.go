package model

// SourceMode selects how generation input is interpreted.
type SourceMode string

const (
	// ModeTopic treats the input as a topic string the model may expand freely.
	ModeTopic SourceMode = "topic"
	// ModeDocument restricts generation to facts derivable from the supplied text.
	ModeDocument SourceMode = "document"
)

// SectionType distinguishes objective from free-text sections.
type SectionType string

const (
	SectionMCQ   SectionType = "mcq"
	SectionShort SectionType = "short"
	SectionLong  SectionType = "long"
)

// IsMCQ reports whether the section type is objective (multiple choice).
func (t SectionType) IsMCQ() bool { return t == SectionMCQ }

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// TimerMode selects how the paper duration is determined.
type TimerMode string

const (
	TimerAuto   TimerMode = "auto"
	TimerManual TimerMode = "manual"
)

// SectionConfig describes one requested section of an exam.
type SectionConfig struct {
	ID    string      `json:"id"`
	Title string      `json:"title"`
	Type  SectionType `json:"type"`
	Count int         `json:"count"`
	Marks int         `json:"marks"`
}

// ExamConfig is the caller-supplied blueprint for paper generation.
type ExamConfig struct {
	Sections      []SectionConfig `json:"sections"`
	Difficulty    Difficulty      `json:"difficulty"`
	FocusTopic    string          `json:"focusTopic,omitempty"`
	TimerMode     TimerMode       `json:"timerMode,omitempty"`
	ManualMinutes int             `json:"manualMinutes,omitempty"`
}

// SectionByID returns the configured section with the given id, or nil.
func (c ExamConfig) SectionByID(id string) *SectionConfig {
	for i := range c.Sections {
		if c.Sections[i].ID == id {
			return &c.Sections[i]
		}
	}
	return nil
}

// Question is a single generated exam question. Options and Answer are set
// for MCQ questions only; AnswerKey carries the reference answer used when
// grading subjective questions (or the explanation for MCQs).
type Question struct {
	ID        string   `json:"id"`
	Question  string   `json:"question"`
	Options   []string `json:"options,omitempty"`
	Answer    string   `json:"answer,omitempty"`
	AnswerKey string   `json:"answerKey,omitempty"`
	Marks     int      `json:"marks"`
}

// IsMCQ reports whether the question carries answer options.
func (q Question) IsMCQ() bool { return len(q.Options) > 0 }

// PaperSection is one generated section of a paper.
type PaperSection struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// GeneratedPaper is the typed result of a generation call. The derived
// fields are computed after validation and are not part of the model output.
type GeneratedPaper struct {
	Sections []PaperSection `json:"sections"`

	TotalQuestions  int `json:"totalQuestions,omitempty"`
	TotalMarks      int `json:"totalMarks,omitempty"`
	DurationSeconds int `json:"durationSeconds,omitempty"`
}

// Questions returns every question in section order.
func (p *GeneratedPaper) Questions() []Question {
	var qs []Question
	for _, s := range p.Sections {
		qs = append(qs, s.Questions...)
	}
	return qs
}

// AnswerSet maps question ids to collected answers, one map per modality.
// Sketch answers are opaque data URIs carried through for display only;
// they are never sent to the model.
type AnswerSet struct {
	MCQ    map[string]string `json:"mcq,omitempty"`
	Text   map[string]string `json:"text,omitempty"`
	Sketch map[string]string `json:"sketch,omitempty"`
}

// GradeEntry is the model's assessment of a single question.
type GradeEntry struct {
	Score      float64 `json:"score"`
	Feedback   string  `json:"feedback"`
	Correction string  `json:"correction"`
}

// GradingReport is the typed result of a grading call. Defaulted lists the
// question ids for which the model returned no entry and a placeholder was
// substituted; a non-empty list marks the report as partial, not failed.
type GradingReport struct {
	Summary   string                `json:"summary"`
	Results   map[string]GradeEntry `json:"results"`
	Defaulted []string              `json:"defaulted,omitempty"`
}

// QuestionResult is the per-question detail in a score summary.
type QuestionResult struct {
	ID            string  `json:"id"`
	MCQ           bool    `json:"mcq"`
	Question      string  `json:"question"`
	StudentAnswer string  `json:"studentAnswer,omitempty"`
	CorrectAnswer string  `json:"correctAnswer,omitempty"`
	Score         float64 `json:"score"`
	Marks         int     `json:"marks"`
	Feedback      string  `json:"feedback,omitempty"`
	Correction    string  `json:"correction,omitempty"`
	Sketch        string  `json:"sketch,omitempty"`
}

// ScoreSummary is the single source of truth for a candidate's score,
// combining locally verified MCQ results with model-graded written answers.
type ScoreSummary struct {
	TotalScore   float64          `json:"totalScore"`
	TotalMarks   int              `json:"totalMarks"`
	McqScore     float64          `json:"mcqScore"`
	McqMarks     int              `json:"mcqMarks"`
	WrittenScore float64          `json:"writtenScore"`
	WrittenMarks int              `json:"writtenMarks"`
	Summary      string           `json:"summary,omitempty"`
	Results      []QuestionResult `json:"results"`
}

// ModelInfo describes one model advertised by the generative API.
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Description string `json:"description,omitempty"`
}
