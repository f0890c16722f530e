package app_test

import (
	"testing"

	"gesture-quiz-service/internal/app"
	"gesture-quiz-service/internal/domain"
)

func TestScoreMappingGivesPerItemCredit(t *testing.T) {
	quiz := domain.Quiz{
		ID: "quiz-map",
		Questions: []domain.Question{
			domain.MappingQuestion{
				ID:             "q1",
				Items:          []string{"A", "B", "C"},
				Targets:        []string{"1", "2", "3"},
				CorrectMapping: map[int]int{0: 1, 1: 0, 2: 2},
			},
		},
	}
	answers := []domain.AnswerRecord{
		domain.MappingAnswer{QuestionID: "q1", Mapping: map[int]int{0: 1, 1: 0, 2: 0}},
	}

	score, maxScore := app.Score(quiz, answers)
	if score != 2 || maxScore != 3 {
		t.Fatalf("expected 2/3, got %d/%d", score, maxScore)
	}
}

func TestScoreChoiceIsBinaryAndUnansweredKeepsWeight(t *testing.T) {
	quiz := domain.Quiz{
		ID: "quiz-mixed",
		Questions: []domain.Question{
			choiceQuestion("q1", 1),
			trueFalseQuestion("q2", 0),
			mappingQuestion("q3"),
		},
	}
	answers := []domain.AnswerRecord{
		domain.ChoiceAnswer{QuestionID: "q1", Gesture: domain.GestureOpenPalm, SelectedIndex: 1, Correct: true},
		domain.ChoiceAnswer{QuestionID: "q2", Gesture: domain.GestureOpenPalm, SelectedIndex: 1, Correct: false},
	}

	score, maxScore := app.Score(quiz, answers)
	if score != 1 {
		t.Fatalf("expected score 1, got %d", score)
	}
	if maxScore != 4 {
		t.Fatalf("expected max score 1+1+2, got %d", maxScore)
	}
}

func TestScoreIgnoresMappingEntriesOutsideItems(t *testing.T) {
	quiz := domain.Quiz{ID: "quiz-map", Questions: []domain.Question{mappingQuestion("q1")}}
	answers := []domain.AnswerRecord{
		domain.MappingAnswer{QuestionID: "q1", Mapping: map[int]int{0: 1, 1: 0, 5: 5}},
	}

	score, maxScore := app.Score(quiz, answers)
	if score != 2 || maxScore != 2 {
		t.Fatalf("expected 2/2, got %d/%d", score, maxScore)
	}
}
