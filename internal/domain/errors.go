package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a quiz session has not been started or was abandoned.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrEmptyQuiz indicates a quiz without questions cannot be played.
	ErrEmptyQuiz = errors.New("quiz has no questions")
	// ErrAttemptNotFound is returned when a stored attempt lookup misses.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrUnknownQuestionKind indicates quiz content with an unsupported question type.
	ErrUnknownQuestionKind = errors.New("unknown question kind")
	// ErrInvalidQuestion indicates quiz content that cannot be answered with gestures or pointing.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrQuotaExceeded is returned by classifiers when the upstream API is throttling.
	ErrQuotaExceeded = errors.New("classifier quota exceeded")
	// ErrAnalysisPaused is returned while gesture analysis is cooling down after a quota error.
	ErrAnalysisPaused = errors.New("gesture analysis paused")
)
