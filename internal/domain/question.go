package domain

import (
	"encoding/json"
	"fmt"
)

// QuestionKind is the wire name of a question variant.
type QuestionKind string

const (
	KindMultipleChoice QuestionKind = "multiple_choice"
	KindTrueFalse      QuestionKind = "true_false"
	KindDragAndDrop    QuestionKind = "drag_and_drop"
)

// Question is either a ChoiceQuestion or a MappingQuestion.
type Question interface {
	QuestionID() string
	Kind() QuestionKind
	isQuestion()
}

// ChoiceQuestion is answered by holding one gesture (multiple choice or true/false).
type ChoiceQuestion struct {
	ID           string
	Text         string
	TrueFalse    bool
	Options      []string
	CorrectIndex int
}

func (q ChoiceQuestion) QuestionID() string { return q.ID }

func (q ChoiceQuestion) Kind() QuestionKind {
	if q.TrueFalse {
		return KindTrueFalse
	}
	return KindMultipleChoice
}

func (ChoiceQuestion) isQuestion() {}

// OptionCount is the number of options a gesture can select.
// True/false questions only expose the first two.
func (q ChoiceQuestion) OptionCount() int {
	n := len(q.Options)
	if q.TrueFalse && n > 2 {
		n = 2
	}
	if n > len(Gestures) {
		n = len(Gestures)
	}
	return n
}

// Validate rejects a choice question whose correct option no gesture can select.
func (q ChoiceQuestion) Validate() error {
	if n := q.OptionCount(); q.CorrectIndex < 0 || q.CorrectIndex >= n {
		return fmt.Errorf("question %q: %w: correct index %d outside %d selectable options",
			q.ID, ErrInvalidQuestion, q.CorrectIndex, n)
	}
	return nil
}

// MappingQuestion is answered by pointing items onto targets (drag and drop).
type MappingQuestion struct {
	ID             string
	Text           string
	Items          []string
	Targets        []string
	CorrectMapping map[int]int // item index -> target index
}

func (q MappingQuestion) QuestionID() string { return q.ID }

func (MappingQuestion) Kind() QuestionKind { return KindDragAndDrop }

func (MappingQuestion) isQuestion() {}

// Validate rejects a mapping question that cannot be completed by pointing:
// every item and target needs a position label, every item needs its own
// target, and the correct mapping must stay within range.
func (q MappingQuestion) Validate() error {
	limit := len(positionLabels)
	switch {
	case len(q.Items) == 0 || len(q.Items) > limit:
		return fmt.Errorf("question %q: %w: %d items, want 1..%d", q.ID, ErrInvalidQuestion, len(q.Items), limit)
	case len(q.Targets) < len(q.Items) || len(q.Targets) > limit:
		return fmt.Errorf("question %q: %w: %d targets for %d items, at most %d",
			q.ID, ErrInvalidQuestion, len(q.Targets), len(q.Items), limit)
	}
	for item, target := range q.CorrectMapping {
		if item < 0 || item >= len(q.Items) || target < 0 || target >= len(q.Targets) {
			return fmt.Errorf("question %q: %w: correct mapping %d->%d out of range", q.ID, ErrInvalidQuestion, item, target)
		}
	}
	return nil
}

// Quiz is an ordered collection of questions.
type Quiz struct {
	ID        string
	Title     string
	Questions []Question
}

// Validate checks every question can be answered.
func (q Quiz) Validate() error {
	for _, question := range q.Questions {
		var err error
		switch question := question.(type) {
		case ChoiceQuestion:
			err = question.Validate()
		case MappingQuestion:
			err = question.Validate()
		default:
			err = fmt.Errorf("%w: %T", ErrUnknownQuestionKind, question)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

type quizJSON struct {
	ID        string         `json:"id"`
	Title     string         `json:"title,omitempty"`
	Questions []questionJSON `json:"questions"`
}

type questionJSON struct {
	ID                 string       `json:"id"`
	QuestionText       string       `json:"questionText"`
	Type               QuestionKind `json:"type"`
	Options            []string     `json:"options,omitempty"`
	CorrectAnswerIndex *int         `json:"correctAnswerIndex,omitempty"`
	Items              []string     `json:"items,omitempty"`
	Targets            []string     `json:"targets,omitempty"`
	CorrectMapping     map[int]int  `json:"correctMapping,omitempty"`
}

func (q Quiz) MarshalJSON() ([]byte, error) {
	out := quizJSON{ID: q.ID, Title: q.Title, Questions: make([]questionJSON, 0, len(q.Questions))}
	for _, question := range q.Questions {
		switch question := question.(type) {
		case ChoiceQuestion:
			correct := question.CorrectIndex
			out.Questions = append(out.Questions, questionJSON{
				ID:                 question.ID,
				QuestionText:       question.Text,
				Type:               question.Kind(),
				Options:            question.Options,
				CorrectAnswerIndex: &correct,
			})
		case MappingQuestion:
			out.Questions = append(out.Questions, questionJSON{
				ID:             question.ID,
				QuestionText:   question.Text,
				Type:           KindDragAndDrop,
				Items:          question.Items,
				Targets:        question.Targets,
				CorrectMapping: question.CorrectMapping,
			})
		default:
			return nil, fmt.Errorf("%w: %T", ErrUnknownQuestionKind, question)
		}
	}
	return json.Marshal(out)
}

func (q *Quiz) UnmarshalJSON(data []byte) error {
	var in quizJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	questions := make([]Question, 0, len(in.Questions))
	for _, raw := range in.Questions {
		switch raw.Type {
		case KindMultipleChoice, KindTrueFalse:
			correct := 0
			if raw.CorrectAnswerIndex != nil {
				correct = *raw.CorrectAnswerIndex
			}
			question := ChoiceQuestion{
				ID:           raw.ID,
				Text:         raw.QuestionText,
				TrueFalse:    raw.Type == KindTrueFalse,
				Options:      raw.Options,
				CorrectIndex: correct,
			}
			if err := question.Validate(); err != nil {
				return err
			}
			questions = append(questions, question)
		case KindDragAndDrop:
			mapping := raw.CorrectMapping
			if mapping == nil {
				mapping = map[int]int{}
			}
			question := MappingQuestion{
				ID:             raw.ID,
				Text:           raw.QuestionText,
				Items:          raw.Items,
				Targets:        raw.Targets,
				CorrectMapping: mapping,
			}
			if err := question.Validate(); err != nil {
				return err
			}
			questions = append(questions, question)
		default:
			return fmt.Errorf("question %q: %w: %q", raw.ID, ErrUnknownQuestionKind, raw.Type)
		}
	}
	*q = Quiz{ID: in.ID, Title: in.Title, Questions: questions}
	return nil
}
