package attempt

import "edubridge_backend/internal/util"

// QuestionReview is one row of the post-grading review view.
type QuestionReview struct {
	Index         int      `json:"index"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	SelectedIndex int      `json:"selectedIndex"` // -1 when unanswered
	CorrectIndex  int      `json:"correctIndex"`
	Answered      bool     `json:"answered"`
	Correct       bool     `json:"correct"`
	Flagged       bool     `json:"flagged"`
}

// Review is the full graded projection handed to the results page.
type Review struct {
	QuizID         uint             `json:"quizId"`
	Title          string           `json:"title"`
	Score          int              `json:"score"`
	TotalQuestions int              `json:"totalQuestions"`
	Percentage     int              `json:"percentage"`
	Outcome        string           `json:"outcome"`
	Questions      []QuestionReview `json:"questions"`
}

// BuildReview projects quiz content, the recorded answers and the grading
// result into a review view. Pure: no mutation, no I/O, identical inputs
// give identical output. Unanswered questions count as incorrect, never as
// an error.
func BuildReview(def *QuizDefinition, answers []int, flagged []int, result *GradingResult) Review {
	flaggedSet := make(map[int]struct{}, len(flagged))
	for _, i := range flagged {
		flaggedSet[i] = struct{}{}
	}

	questions := make([]QuestionReview, len(def.Questions))
	for i, q := range def.Questions {
		selected := NoAnswer
		if i < len(answers) {
			selected = answers[i]
		}
		correct := NoAnswer
		if i < len(result.CorrectAnswers) {
			correct = result.CorrectAnswers[i]
		}
		_, isFlagged := flaggedSet[i]

		questions[i] = QuestionReview{
			Index:         i,
			Text:          q.Text,
			Options:       q.Options,
			SelectedIndex: selected,
			CorrectIndex:  correct,
			Answered:      selected != NoAnswer,
			Correct:       selected != NoAnswer && selected == correct,
			Flagged:       isFlagged,
		}
	}

	percentage := Percentage(result.Score, result.TotalQuestions)

	return Review{
		QuizID:         def.QuizID,
		Title:          def.Title,
		Score:          result.Score,
		TotalQuestions: result.TotalQuestions,
		Percentage:     percentage,
		Outcome:        OutcomeLabel(percentage),
		Questions:      questions,
	}
}

// Percentage computes the integer score percentage, 0 for an empty quiz.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return score * 100 / total
}

// OutcomeLabel buckets a percentage for UI labeling. Lower bounds are
// inclusive: >=70 pass, 40-69 needs work, below 40 fail.
func OutcomeLabel(percentage int) string {
	switch {
	case percentage >= util.PassThreshold:
		return util.OutcomePass
	case percentage >= util.NeedsWorkThreshold:
		return util.OutcomeNeedsWork
	default:
		return util.OutcomeFail
	}
}
