package exam

import (
	"github.com/quizify/quizify/internal/model"
)

// Aggregate merges the model's grading report with locally verified MCQ
// correctness into the final score summary. MCQ scores are always computed
// by comparing the stored answer to the configured correct option; a
// model-reported score for an MCQ contributes its feedback text only, since
// objective questions have a mechanically checkable ground truth. Subjective
// scores come entirely from the report, defaulting to zero when absent.
func Aggregate(paper *model.GeneratedPaper, report *model.GradingReport, answers model.AnswerSet) model.ScoreSummary {
	var sum model.ScoreSummary

	var results map[string]model.GradeEntry
	if report != nil {
		results = report.Results
		sum.Summary = report.Summary
	}

	for _, section := range paper.Sections {
		for _, q := range section.Questions {
			res := model.QuestionResult{
				ID:       q.ID,
				Question: q.Question,
				Marks:    q.Marks,
				Sketch:   answers.Sketch[q.ID],
			}
			entry, graded := results[q.ID]

			if q.IsMCQ() {
				res.MCQ = true
				res.CorrectAnswer = q.Answer
				res.StudentAnswer = answers.MCQ[q.ID]
				if res.StudentAnswer == q.Answer {
					res.Score = float64(q.Marks)
				}
				if graded {
					res.Feedback = entry.Feedback
					res.Correction = entry.Correction
				}
				sum.McqMarks += q.Marks
				sum.McqScore += res.Score
			} else {
				res.StudentAnswer = answers.Text[q.ID]
				if graded {
					res.Score = clamp(entry.Score, 0, float64(q.Marks))
					res.Feedback = entry.Feedback
					res.Correction = entry.Correction
				} else {
					res.Feedback = pendingReview
				}
				sum.WrittenMarks += q.Marks
				sum.WrittenScore += res.Score
			}

			sum.TotalMarks += q.Marks
			sum.Results = append(sum.Results, res)
		}
	}

	sum.TotalScore = sum.McqScore + sum.WrittenScore
	return sum
}
