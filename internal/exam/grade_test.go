package exam

import (
	"testing"

	"github.com/quizify/quizify/internal/model"
)

func TestAggregateMCQScoredLocally(t *testing.T) {
	paper := &model.GeneratedPaper{
		Sections: []model.PaperSection{
			{ID: "sec_1", Questions: []model.Question{
				{ID: "q1", Question: "Pick B", Options: []string{"A", "B", "C", "D"}, Answer: "B", Marks: 2},
			}},
		},
	}
	// The model claims zero for a correct answer; local truth wins.
	report := &model.GradingReport{
		Results: map[string]model.GradeEntry{
			"q1": {Score: 0, Feedback: "Wrong.", Correction: "B"},
		},
	}
	answers := model.AnswerSet{MCQ: map[string]string{"q1": "B"}}

	sum := Aggregate(paper, report, answers)

	if sum.McqScore != 2 {
		t.Errorf("McqScore = %v, want 2", sum.McqScore)
	}
	if sum.TotalScore != 2 || sum.TotalMarks != 2 {
		t.Errorf("total = %v/%d, want 2/2", sum.TotalScore, sum.TotalMarks)
	}
	// The model's feedback text is kept even though its score is ignored.
	if sum.Results[0].Feedback != "Wrong." {
		t.Errorf("feedback = %q", sum.Results[0].Feedback)
	}
}

func TestAggregateSplitsObjectiveAndWritten(t *testing.T) {
	paper := validPaper() // 2 MCQ x 1 mark, 1 written x 5 marks
	report := &model.GradingReport{
		Summary: "Decent attempt.",
		Results: map[string]model.GradeEntry{
			"q3": {Score: 3.5, Feedback: "Vague on light reactions", Correction: "..."},
		},
	}
	answers := model.AnswerSet{
		MCQ:  map[string]string{"q1": "4", "q2": "6"}, // q1 right, q2 wrong
		Text: map[string]string{"q3": "Plants make food from light."},
	}

	sum := Aggregate(paper, report, answers)

	if sum.McqScore != 1 || sum.McqMarks != 2 {
		t.Errorf("mcq = %v/%d, want 1/2", sum.McqScore, sum.McqMarks)
	}
	if sum.WrittenScore != 3.5 || sum.WrittenMarks != 5 {
		t.Errorf("written = %v/%d, want 3.5/5", sum.WrittenScore, sum.WrittenMarks)
	}
	if sum.TotalScore != 4.5 || sum.TotalMarks != 7 {
		t.Errorf("total = %v/%d, want 4.5/7", sum.TotalScore, sum.TotalMarks)
	}
	if sum.Summary != "Decent attempt." {
		t.Errorf("summary = %q", sum.Summary)
	}
	if len(sum.Results) != 3 {
		t.Fatalf("results = %d entries, want 3", len(sum.Results))
	}
}

func TestAggregateWithoutReport(t *testing.T) {
	paper := validPaper()
	answers := model.AnswerSet{MCQ: map[string]string{"q1": "4", "q2": "9"}}

	sum := Aggregate(paper, nil, answers)

	if sum.McqScore != 2 {
		t.Errorf("McqScore = %v, want 2", sum.McqScore)
	}
	if sum.WrittenScore != 0 {
		t.Errorf("WrittenScore = %v, want 0", sum.WrittenScore)
	}
	// Ungraded written answers surface as pending, not as silent zeros.
	last := sum.Results[len(sum.Results)-1]
	if last.Feedback != "Pending review..." {
		t.Errorf("feedback = %q", last.Feedback)
	}
}

func TestAggregateClampsReportedScore(t *testing.T) {
	paper := validPaper()
	report := &model.GradingReport{
		Results: map[string]model.GradeEntry{"q3": {Score: 50}},
	}

	sum := Aggregate(paper, report, model.AnswerSet{})

	if sum.WrittenScore != 5 {
		t.Errorf("WrittenScore = %v, want clamped 5", sum.WrittenScore)
	}
}

func TestAggregateCarriesSketch(t *testing.T) {
	paper := validPaper()
	answers := model.AnswerSet{Sketch: map[string]string{"q3": "data:image/png;base64,AAAA"}}

	sum := Aggregate(paper, nil, answers)

	last := sum.Results[len(sum.Results)-1]
	if last.Sketch == "" {
		t.Error("sketch answer should be carried into the detail")
	}
}
