package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// AnswerRecord is either a ChoiceAnswer or a MappingAnswer.
type AnswerRecord interface {
	AnsweredQuestionID() string
	isAnswer()
}

// ChoiceAnswer is the confirmed gesture for a choice question.
type ChoiceAnswer struct {
	QuestionID    string
	Gesture       Gesture
	SelectedIndex int
	Correct       bool
}

func (a ChoiceAnswer) AnsweredQuestionID() string { return a.QuestionID }

func (ChoiceAnswer) isAnswer() {}

// MappingAnswer holds the item index -> target index pairs placed by pointing.
type MappingAnswer struct {
	QuestionID string
	Mapping    map[int]int
}

func (a MappingAnswer) AnsweredQuestionID() string { return a.QuestionID }

func (MappingAnswer) isAnswer() {}

// Attempt is the scored record of one participant's pass through a quiz.
// Score and MaxScore are always derived from Answers, never client-supplied.
type Attempt struct {
	ID            string
	QuizID        string
	ParticipantID string
	Answers       []AnswerRecord
	Score         int
	MaxScore      int
	CompletedAt   time.Time
	Preview       bool
}

// AttemptFilter selects saved attempts. Empty fields match everything;
// a non-positive Limit means no limit.
type AttemptFilter struct {
	ParticipantID string
	QuizID        string
	Limit         int
}

// Matches reports whether attempt passes the filter's field conditions.
func (f AttemptFilter) Matches(attempt Attempt) bool {
	if f.ParticipantID != "" && attempt.ParticipantID != f.ParticipantID {
		return false
	}
	return f.QuizID == "" || attempt.QuizID == f.QuizID
}

const (
	answerTypeChoice  = "choice"
	answerTypeMapping = "mapping"
)

type answerJSON struct {
	QuestionID    string      `json:"questionId"`
	Type          string      `json:"type"`
	Gesture       Gesture     `json:"gesture,omitempty"`
	SelectedIndex *int        `json:"selectedAnswerIndex,omitempty"`
	IsCorrect     *bool       `json:"isCorrect,omitempty"`
	Mapping       map[int]int `json:"mapping,omitempty"`
}

type attemptJSON struct {
	ID            string       `json:"id"`
	QuizID        string       `json:"quizId"`
	ParticipantID string       `json:"participantId"`
	Score         int          `json:"score"`
	MaxScore      int          `json:"maxScore"`
	CompletedAt   time.Time    `json:"completedAt"`
	Preview       bool         `json:"preview,omitempty"`
	Answers       []answerJSON `json:"answers"`
}

// EncodeAnswers serializes answer records to their JSON document form.
func EncodeAnswers(answers []AnswerRecord) ([]byte, error) {
	out, err := toAnswerJSON(answers)
	if err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

// DecodeAnswers parses the JSON produced by EncodeAnswers.
func DecodeAnswers(data []byte) ([]AnswerRecord, error) {
	var in []answerJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, err
	}
	return fromAnswerJSON(in)
}

func toAnswerJSON(answers []AnswerRecord) ([]answerJSON, error) {
	out := make([]answerJSON, 0, len(answers))
	for _, answer := range answers {
		switch answer := answer.(type) {
		case ChoiceAnswer:
			selected, correct := answer.SelectedIndex, answer.Correct
			out = append(out, answerJSON{
				QuestionID:    answer.QuestionID,
				Type:          answerTypeChoice,
				Gesture:       answer.Gesture,
				SelectedIndex: &selected,
				IsCorrect:     &correct,
			})
		case MappingAnswer:
			out = append(out, answerJSON{
				QuestionID: answer.QuestionID,
				Type:       answerTypeMapping,
				Mapping:    answer.Mapping,
			})
		default:
			return nil, fmt.Errorf("unsupported answer record %T", answer)
		}
	}
	return out, nil
}

func fromAnswerJSON(in []answerJSON) ([]AnswerRecord, error) {
	out := make([]AnswerRecord, 0, len(in))
	for _, raw := range in {
		switch raw.Type {
		case answerTypeChoice:
			answer := ChoiceAnswer{QuestionID: raw.QuestionID, Gesture: raw.Gesture, SelectedIndex: -1}
			if raw.SelectedIndex != nil {
				answer.SelectedIndex = *raw.SelectedIndex
			}
			if raw.IsCorrect != nil {
				answer.Correct = *raw.IsCorrect
			}
			out = append(out, answer)
		case answerTypeMapping:
			mapping := raw.Mapping
			if mapping == nil {
				mapping = map[int]int{}
			}
			out = append(out, MappingAnswer{QuestionID: raw.QuestionID, Mapping: mapping})
		default:
			return nil, fmt.Errorf("answer for %q: unsupported type %q", raw.QuestionID, raw.Type)
		}
	}
	return out, nil
}

func (a Attempt) MarshalJSON() ([]byte, error) {
	answers, err := toAnswerJSON(a.Answers)
	if err != nil {
		return nil, err
	}
	return json.Marshal(attemptJSON{
		ID:            a.ID,
		QuizID:        a.QuizID,
		ParticipantID: a.ParticipantID,
		Score:         a.Score,
		MaxScore:      a.MaxScore,
		CompletedAt:   a.CompletedAt,
		Preview:       a.Preview,
		Answers:       answers,
	})
}

func (a *Attempt) UnmarshalJSON(data []byte) error {
	var in attemptJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	answers, err := fromAnswerJSON(in.Answers)
	if err != nil {
		return err
	}
	*a = Attempt{
		ID:            in.ID,
		QuizID:        in.QuizID,
		ParticipantID: in.ParticipantID,
		Answers:       answers,
		Score:         in.Score,
		MaxScore:      in.MaxScore,
		CompletedAt:   in.CompletedAt,
		Preview:       in.Preview,
	}
	return nil
}
