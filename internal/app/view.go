package app

import (
	"time"

	"gesture-quiz-service/internal/domain"
	"gesture-quiz-service/internal/gesture"
)

// Phase is the lifecycle phase of a quiz session.
type Phase string

const (
	PhasePlaying  Phase = "playing"
	PhaseFeedback Phase = "feedback"
	PhaseFinished Phase = "finished"
)

// QuestionView is the participant-facing part of a question. Correct answers are never included.
type QuestionView struct {
	ID      string              `json:"id"`
	Kind    domain.QuestionKind `json:"kind"`
	Text    string              `json:"text"`
	Options []string            `json:"options,omitempty"`
	Items   []string            `json:"items,omitempty"`
	Targets []string            `json:"targets,omitempty"`
}

// Feedback is shown after a choice answer is confirmed.
type Feedback struct {
	Gesture       domain.Gesture `json:"gesture"`
	SelectedIndex int            `json:"selectedIndex"`
	CorrectIndex  int            `json:"correctIndex"`
	Correct       bool           `json:"correct"`
}

// Result summarizes a finalized attempt.
type Result struct {
	AttemptID string `json:"attemptId"`
	Score     int    `json:"score"`
	MaxScore  int    `json:"maxScore"`
	Preview   bool   `json:"preview"`
	Saved     bool   `json:"saved"`
	SaveError string `json:"saveError,omitempty"`
}

// SessionView is an immutable snapshot of a session, pushed to subscribers on every change.
type SessionView struct {
	SessionID     string                 `json:"sessionId"`
	QuizID        string                 `json:"quizId"`
	Title         string                 `json:"title"`
	Preview       bool                   `json:"preview"`
	QuestionIndex int                    `json:"questionIndex"`
	QuestionCount int                    `json:"questionCount"`
	Question      *QuestionView          `json:"question,omitempty"`
	Phase         Phase                  `json:"phase"`
	Locking       bool                   `json:"locking"`
	Detected      domain.Gesture         `json:"detected,omitempty"`
	Voter         gesture.VoterState     `json:"voter"`
	Threshold     int                    `json:"threshold"`
	Selector      *gesture.SelectorState `json:"selector,omitempty"`
	Candidates    []string               `json:"candidates,omitempty"`
	Pointed       string                 `json:"pointed,omitempty"`
	CanAdvance    bool                   `json:"canAdvance"`
	Feedback      *Feedback              `json:"feedback,omitempty"`
	Paused        bool                   `json:"paused"`
	PausedUntil   *time.Time             `json:"pausedUntil,omitempty"`
	Result        *Result                `json:"result,omitempty"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

func questionView(question domain.Question) *QuestionView {
	switch q := question.(type) {
	case domain.ChoiceQuestion:
		return &QuestionView{
			ID:      q.ID,
			Kind:    q.Kind(),
			Text:    q.Text,
			Options: append([]string(nil), q.Options[:q.OptionCount()]...),
		}
	case domain.MappingQuestion:
		return &QuestionView{
			ID:      q.ID,
			Kind:    q.Kind(),
			Text:    q.Text,
			Items:   append([]string(nil), q.Items...),
			Targets: append([]string(nil), q.Targets...),
		}
	}
	return nil
}
