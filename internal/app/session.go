package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gesture-quiz-service/internal/domain"
	"gesture-quiz-service/internal/gesture"
	"gesture-quiz-service/internal/metrics"
)

// SessionParams configures a Session.
type SessionParams struct {
	ID            string
	Quiz          domain.Quiz
	ParticipantID string
	DisplayName   string
	// Preview sessions are scored but never persisted, and may skip questions.
	Preview    bool
	Settings   Settings
	Frames     FrameSource
	Classifier Classifier
	Guard      *gesture.Guard
	// Finalize persists a completed non-preview attempt. It runs once.
	Finalize func(ctx context.Context, attempt domain.Attempt) error
	Logger   *zap.Logger
	Now      func() time.Time
}

// Session is one participant's pass through one quiz. It owns the question
// index, the per-question voter or selector state and the answer records
// until the attempt is finalized.
//
// All classifier calls go through the Guard and at most one is in flight at
// a time. Every exit from a question's hold-to-lock state bumps generation,
// so results of calls started before the exit are dropped.
type Session struct {
	id            string
	quiz          domain.Quiz
	participantID string
	displayName   string
	preview       bool
	settings      Settings
	frames        FrameSource
	classifier    Classifier
	guard         *gesture.Guard
	finalize      func(ctx context.Context, attempt domain.Attempt) error
	logger        *zap.Logger
	now           func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	index       int
	phase       Phase
	answers     []domain.AnswerRecord
	voter       gesture.VoterState
	selector    gesture.SelectorState
	detected    domain.Gesture
	pointed     string
	feedback    *Feedback
	locking     bool
	poll        *pollTask
	inFlight    bool
	generation  uint64
	attempt     *domain.Attempt
	result      *Result
	closed      bool
	resumeTimer *time.Timer
	subscribers map[chan SessionView]struct{}
}

// NewSession returns a session positioned on the first question.
func NewSession(p SessionParams) *Session {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	p.Settings = p.Settings.normalized()
	if p.Guard == nil {
		p.Guard = gesture.NewGuardWithClock(p.Settings.Cooldown, p.Now)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:            p.ID,
		quiz:          p.Quiz,
		participantID: p.ParticipantID,
		displayName:   p.DisplayName,
		preview:       p.Preview,
		settings:      p.Settings,
		frames:        p.Frames,
		classifier:    p.Classifier,
		guard:         p.Guard,
		finalize:      p.Finalize,
		logger:        p.Logger.With(zap.String("session_id", p.ID), zap.String("quiz_id", p.Quiz.ID)),
		now:           p.Now,
		ctx:           ctx,
		cancel:        cancel,
		phase:         PhasePlaying,
		selector:      gesture.NewSelector(),
		subscribers:   make(map[chan SessionView]struct{}),
	}
	if len(p.Quiz.Questions) == 0 {
		s.phase = PhaseFinished
	}
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) ParticipantID() string { return s.participantID }

func (s *Session) DisplayName() string { return s.displayName }

// HoldLock starts stability voting on the current choice question. It is
// ignored outside the playing phase, on mapping questions and while analysis
// is paused.
func (s *Session) HoldLock() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.phase != PhasePlaying {
		return false
	}
	if _, ok := s.currentLocked().(domain.ChoiceQuestion); !ok {
		return false
	}
	if until, paused := s.guard.PausedUntil(); paused {
		s.scheduleResumeLocked(until)
		s.broadcastLocked()
		return false
	}
	if s.locking {
		return true
	}
	s.locking = true
	s.voter = gesture.VoterState{}
	if s.settings.PollInterval > 0 {
		s.poll = startPollTask(s.ctx, s.settings.PollInterval, func(ctx context.Context) {
			s.pollOnce(ctx)
		})
	}
	s.broadcastLocked()
	return true
}

// ReleaseLock stops voting and discards the partial vote without recording anything.
func (s *Session) ReleaseLock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.locking {
		return
	}
	s.stopPollingLocked()
	s.broadcastLocked()
}

// PollTick runs one voting round synchronously. It is what the background
// poller runs on every tick and is exported for callers that drive polling
// themselves. It reports whether a classification was applied.
func (s *Session) PollTick(ctx context.Context) bool {
	ctx, stop := s.bind(ctx)
	defer stop()
	return s.pollOnce(ctx)
}

func (s *Session) pollOnce(ctx context.Context) bool {
	s.mu.Lock()
	if s.closed || s.phase != PhasePlaying || !s.locking || s.inFlight {
		s.mu.Unlock()
		return false
	}
	question, ok := s.currentLocked().(domain.ChoiceQuestion)
	if !ok {
		s.mu.Unlock()
		return false
	}
	if until, paused := s.guard.PausedUntil(); paused {
		s.pauseLocked(until)
		s.mu.Unlock()
		return false
	}
	frame, ok := s.frames.Capture()
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.inFlight = true
	generation := s.generation
	s.mu.Unlock()

	var label domain.Gesture
	err := s.guard.Call(ctx, func(ctx context.Context) error {
		callCtx, cancel := s.withTimeout(ctx)
		defer cancel()
		var err error
		label, err = s.classifier.ClassifyGesture(callCtx, frame)
		return err
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	if err != nil {
		s.handleCallErrorLocked(ctx, "gesture", err)
		return false
	}
	if s.closed || generation != s.generation {
		return false
	}

	s.detected = label
	vote := label
	selected, known := label.OptionIndex()
	if !known || selected >= question.OptionCount() {
		vote = domain.GestureUnknown
	}
	var confirmed bool
	s.voter, confirmed = s.voter.Observe(vote, s.settings.StabilityThreshold)
	if confirmed {
		correct := selected == question.CorrectIndex
		s.answers = append(s.answers, domain.ChoiceAnswer{
			QuestionID:    question.ID,
			Gesture:       label,
			SelectedIndex: selected,
			Correct:       correct,
		})
		s.feedback = &Feedback{
			Gesture:       label,
			SelectedIndex: selected,
			CorrectIndex:  question.CorrectIndex,
			Correct:       correct,
		}
		confirmedVoter := s.voter
		s.stopPollingLocked()
		s.voter = confirmedVoter
		s.phase = PhaseFeedback
		s.logger.Info("choice confirmed",
			zap.String("question_id", question.ID),
			zap.String("gesture", string(label)),
			zap.Bool("correct", correct),
		)
	}
	s.broadcastLocked()
	return true
}

// Scan performs one pointing scan on the current mapping question: a short
// frame burst classified against the labels still valid in the selector's
// phase. It reports whether the classifier was consulted.
func (s *Session) Scan(ctx context.Context) bool {
	ctx, stop := s.bind(ctx)
	defer stop()

	s.mu.Lock()
	if s.closed || s.phase != PhasePlaying || s.inFlight {
		s.mu.Unlock()
		return false
	}
	question, ok := s.currentLocked().(domain.MappingQuestion)
	if !ok {
		s.mu.Unlock()
		return false
	}
	if until, paused := s.guard.PausedUntil(); paused {
		s.scheduleResumeLocked(until)
		s.broadcastLocked()
		s.mu.Unlock()
		return false
	}
	candidates := s.selector.Candidates(question)
	if len(candidates) == 0 {
		s.mu.Unlock()
		return false
	}
	s.inFlight = true
	generation := s.generation
	s.mu.Unlock()

	frames := s.captureBurst(ctx)
	if len(frames) == 0 {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
		return false
	}

	var label string
	err := s.guard.Call(ctx, func(ctx context.Context) error {
		callCtx, cancel := s.withTimeout(ctx)
		defer cancel()
		var err error
		label, err = s.classifier.ClassifyPointing(callCtx, frames, candidates)
		return err
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	if err != nil {
		s.handleCallErrorLocked(ctx, "pointing", err)
		return true
	}
	if s.closed || generation != s.generation {
		return true
	}

	label = normalizePointing(label, candidates)
	s.pointed = label
	if label != domain.PointNone {
		s.selector = s.selector.Apply(question, label)
	}
	s.broadcastLocked()
	return true
}

func (s *Session) captureBurst(ctx context.Context) []domain.Frame {
	frames := make([]domain.Frame, 0, s.settings.BurstSize)
	for i := 0; i < s.settings.BurstSize; i++ {
		if frame, ok := s.frames.Capture(); ok {
			frames = append(frames, frame)
		}
		if i == s.settings.BurstSize-1 || s.settings.BurstDelay <= 0 {
			continue
		}
		timer := time.NewTimer(s.settings.BurstDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
	return frames
}

// Next advances past the current question. A choice question advances from
// feedback; a mapping question advances once every item is placed. Preview
// sessions may also skip a question, which then has no answer record.
func (s *Session) Next(ctx context.Context) bool {
	s.mu.Lock()
	if s.closed || s.phase == PhaseFinished {
		s.mu.Unlock()
		return false
	}
	switch q := s.currentLocked().(type) {
	case domain.ChoiceQuestion:
		if s.phase != PhaseFeedback && !s.preview {
			s.mu.Unlock()
			return false
		}
	case domain.MappingQuestion:
		switch {
		case s.selector.Complete(q):
			s.answers = append(s.answers, domain.MappingAnswer{
				QuestionID: q.ID,
				Mapping:    s.selector.Snapshot().Mapping,
			})
		case !s.preview:
			s.mu.Unlock()
			return false
		}
	}

	s.stopPollingLocked()
	s.index++
	s.selector = gesture.NewSelector()
	s.detected = ""
	s.pointed = ""
	s.feedback = nil
	if s.index < len(s.quiz.Questions) {
		s.phase = PhasePlaying
		s.broadcastLocked()
		s.mu.Unlock()
		return true
	}

	attempt := s.finishLocked()
	s.broadcastLocked()
	s.mu.Unlock()

	s.persist(ctx, attempt)
	return true
}

func (s *Session) finishLocked() domain.Attempt {
	s.phase = PhaseFinished
	score, maxScore := Score(s.quiz, s.answers)
	attempt := domain.Attempt{
		ID:            uuid.NewString(),
		QuizID:        s.quiz.ID,
		ParticipantID: s.participantID,
		Answers:       append([]domain.AnswerRecord(nil), s.answers...),
		Score:         score,
		MaxScore:      maxScore,
		CompletedAt:   s.now().UTC(),
		Preview:       s.preview,
	}
	s.attempt = &attempt
	s.result = &Result{AttemptID: attempt.ID, Score: score, MaxScore: maxScore, Preview: s.preview}
	s.logger.Info("attempt finished",
		zap.Int("score", score),
		zap.Int("max_score", maxScore),
		zap.Bool("preview", s.preview),
	)
	return attempt
}

func (s *Session) persist(ctx context.Context, attempt domain.Attempt) {
	if s.preview {
		metrics.AttemptsFinalized.WithLabelValues("preview").Inc()
		return
	}
	if s.finalize == nil {
		return
	}
	err := s.finalize(ctx, attempt)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		metrics.AttemptsFinalized.WithLabelValues("failed").Inc()
		s.logger.Error("save attempt", zap.String("attempt_id", attempt.ID), zap.Error(err))
		s.result.SaveError = err.Error()
	} else {
		metrics.AttemptsFinalized.WithLabelValues("saved").Inc()
		s.result.Saved = true
	}
	s.broadcastLocked()
}

// Attempt returns the finalized attempt, if the session has finished.
func (s *Session) Attempt() (domain.Attempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempt == nil {
		return domain.Attempt{}, false
	}
	return *s.attempt, true
}

// Close abandons the session: polling stops, in-flight results are dropped
// and subscriber channels are closed. Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopPollingLocked()
	if s.resumeTimer != nil {
		s.resumeTimer.Stop()
		s.resumeTimer = nil
	}
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
	s.mu.Unlock()
	s.cancel()
}

// View returns the current snapshot.
func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel that receives a view after every change,
// starting with the current one. Slow readers only ever miss stale views.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan SessionView, func()) {
	ch := make(chan SessionView, 8)

	s.mu.Lock()
	ch <- s.snapshotLocked()
	if s.closed {
		close(ch)
		s.mu.Unlock()
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) currentLocked() domain.Question {
	if s.index >= len(s.quiz.Questions) {
		return nil
	}
	return s.quiz.Questions[s.index]
}

// stopPollingLocked is the single exit path from hold-to-lock: release,
// confirmation, question change, pause and session end all go through it.
func (s *Session) stopPollingLocked() {
	s.poll.stop()
	s.poll = nil
	s.locking = false
	s.voter = gesture.VoterState{}
	s.generation++
}

func (s *Session) handleCallErrorLocked(ctx context.Context, kind string, err error) {
	if errors.Is(err, domain.ErrAnalysisPaused) {
		metrics.AnalysisPauses.Inc()
		until, paused := s.guard.PausedUntil()
		if !paused {
			until = s.now().Add(s.settings.Cooldown)
		}
		s.logger.Warn("gesture analysis paused",
			zap.String("kind", kind),
			zap.Time("paused_until", until),
			zap.Error(err),
		)
		s.pauseLocked(until)
		return
	}
	if ctx.Err() != nil || s.closed {
		return
	}
	s.logger.Debug("classification failed", zap.String("kind", kind), zap.Error(err))
}

func (s *Session) pauseLocked(until time.Time) {
	s.stopPollingLocked()
	s.scheduleResumeLocked(until)
	s.broadcastLocked()
}

// scheduleResumeLocked pushes a fresh view once the cooldown has elapsed so
// subscribers leave the paused state without polling.
func (s *Session) scheduleResumeLocked(until time.Time) {
	if s.closed {
		return
	}
	if s.resumeTimer != nil {
		s.resumeTimer.Stop()
	}
	wait := until.Sub(s.now())
	if wait < 0 {
		wait = 0
	}
	s.resumeTimer = time.AfterFunc(wait, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return
		}
		s.resumeTimer = nil
		s.broadcastLocked()
	})
}

func (s *Session) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.settings.ClassifierTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.settings.ClassifierTimeout)
}

// bind ties a caller context to the session lifetime.
func (s *Session) bind(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	stopAfter := context.AfterFunc(s.ctx, cancel)
	return ctx, func() {
		stopAfter()
		cancel()
	}
}

func (s *Session) broadcastLocked() SessionView {
	view := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- view:
		default:
			// Drop the oldest pending view so a slow reader never blocks the session.
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
	return view
}

func (s *Session) snapshotLocked() SessionView {
	view := SessionView{
		SessionID:     s.id,
		QuizID:        s.quiz.ID,
		Title:         s.quiz.Title,
		Preview:       s.preview,
		QuestionIndex: s.index,
		QuestionCount: len(s.quiz.Questions),
		Phase:         s.phase,
		Locking:       s.locking,
		Detected:      s.detected,
		Voter:         s.voter,
		Threshold:     s.settings.StabilityThreshold,
		Pointed:       s.pointed,
		UpdatedAt:     s.now(),
	}
	if until, paused := s.guard.PausedUntil(); paused {
		view.Paused = true
		view.PausedUntil = &until
	}
	if s.feedback != nil {
		feedback := *s.feedback
		view.Feedback = &feedback
	}
	if s.result != nil {
		result := *s.result
		view.Result = &result
	}

	question := s.currentLocked()
	if question == nil || s.phase == PhaseFinished {
		return view
	}
	view.Question = questionView(question)
	switch q := question.(type) {
	case domain.ChoiceQuestion:
		view.CanAdvance = s.phase == PhaseFeedback || s.preview
	case domain.MappingQuestion:
		selector := s.selector.Snapshot()
		view.Selector = &selector
		view.Candidates = s.selector.Candidates(q)
		view.CanAdvance = s.selector.Complete(q) || s.preview
	}
	return view
}

// normalizePointing maps anything outside candidates to domain.PointNone.
func normalizePointing(label string, candidates []string) string {
	index, ok := domain.PositionIndex(label)
	if !ok {
		return domain.PointNone
	}
	normalized, _ := domain.PositionLabel(index)
	for _, candidate := range candidates {
		if candidate == normalized {
			return normalized
		}
	}
	return domain.PointNone
}
