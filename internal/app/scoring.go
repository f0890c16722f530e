package app

import "gesture-quiz-service/internal/domain"

// Score computes an attempt's score from stored answer records.
//
// Choice questions are worth one point, awarded when the stored answer is
// correct. Mapping questions are worth one point per item, awarded per item
// whose stored target matches the correct one. Unanswered questions add
// nothing to the score but their full weight to maxScore.
func Score(quiz domain.Quiz, answers []domain.AnswerRecord) (score, maxScore int) {
	byQuestion := make(map[string]domain.AnswerRecord, len(answers))
	for _, answer := range answers {
		byQuestion[answer.AnsweredQuestionID()] = answer
	}

	for _, question := range quiz.Questions {
		switch q := question.(type) {
		case domain.ChoiceQuestion:
			maxScore++
			if answer, ok := byQuestion[q.ID].(domain.ChoiceAnswer); ok && answer.Correct {
				score++
			}
		case domain.MappingQuestion:
			maxScore += len(q.Items)
			answer, ok := byQuestion[q.ID].(domain.MappingAnswer)
			if !ok {
				continue
			}
			for item := range q.Items {
				want, hasWant := q.CorrectMapping[item]
				got, hasGot := answer.Mapping[item]
				if hasWant && hasGot && want == got {
					score++
				}
			}
		}
	}
	return score, maxScore
}
