package app_test

import (
	"context"
	"sync"
	"time"

	"gesture-quiz-service/internal/app"
	"gesture-quiz-service/internal/domain"
	"gesture-quiz-service/internal/gesture"
)

type stubFrames struct {
	mu       sync.Mutex
	ready    bool
	captures int
}

func newStubFrames() *stubFrames { return &stubFrames{ready: true} }

func (f *stubFrames) Capture() (domain.Frame, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.ready {
		return domain.Frame{}, false
	}
	f.captures++
	return domain.Frame{Data: []byte{0xff, 0xd8}, MIMEType: "image/jpeg", CapturedAt: time.Now()}, true
}

func (f *stubFrames) setReady(ready bool) {
	f.mu.Lock()
	f.ready = ready
	f.mu.Unlock()
}

type gestureReply struct {
	label domain.Gesture
	err   error
}

type pointingReply struct {
	label string
	err   error
}

// scriptedClassifier replays queued replies and falls back to UNKNOWN/NONE
// (or the configured defaults) once a script runs out.
type scriptedClassifier struct {
	mu              sync.Mutex
	gestures        []gestureReply
	pointing        []pointingReply
	defaultGesture  domain.Gesture
	defaultPointing string
	gestureCalls    int
	pointingCalls   int
	candidates      [][]string
	burstSizes      []int
}

func (c *scriptedClassifier) queueGestures(labels ...domain.Gesture) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, label := range labels {
		c.gestures = append(c.gestures, gestureReply{label: label})
	}
}

func (c *scriptedClassifier) queueGestureError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gestures = append(c.gestures, gestureReply{err: err})
}

func (c *scriptedClassifier) queuePointingError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pointing = append(c.pointing, pointingReply{err: err})
}

func (c *scriptedClassifier) queuePointing(labels ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, label := range labels {
		c.pointing = append(c.pointing, pointingReply{label: label})
	}
}

func (c *scriptedClassifier) ClassifyGesture(_ context.Context, _ domain.Frame) (domain.Gesture, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gestureCalls++
	if len(c.gestures) == 0 {
		if c.defaultGesture != "" {
			return c.defaultGesture, nil
		}
		return domain.GestureUnknown, nil
	}
	reply := c.gestures[0]
	c.gestures = c.gestures[1:]
	return reply.label, reply.err
}

func (c *scriptedClassifier) ClassifyPointing(_ context.Context, frames []domain.Frame, candidates []string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pointingCalls++
	c.candidates = append(c.candidates, append([]string(nil), candidates...))
	c.burstSizes = append(c.burstSizes, len(frames))
	if len(c.pointing) == 0 {
		if c.defaultPointing != "" {
			return c.defaultPointing, nil
		}
		return domain.PointNone, nil
	}
	reply := c.pointing[0]
	c.pointing = c.pointing[1:]
	return reply.label, reply.err
}

func (c *scriptedClassifier) calls() (gestures, pointing int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gestureCalls, c.pointingCalls
}

// blockingClassifier parks every call until release is closed.
type blockingClassifier struct {
	started chan struct{}
	release chan struct{}
	label   domain.Gesture
	point   string

	mu    sync.Mutex
	calls int
}

func newBlockingClassifier(label domain.Gesture) *blockingClassifier {
	return &blockingClassifier{
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
		label:   label,
	}
}

func (c *blockingClassifier) ClassifyGesture(ctx context.Context, _ domain.Frame) (domain.Gesture, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	c.started <- struct{}{}
	select {
	case <-c.release:
		return c.label, nil
	case <-ctx.Done():
		return domain.GestureUnknown, ctx.Err()
	}
}

func (c *blockingClassifier) ClassifyPointing(ctx context.Context, _ []domain.Frame, _ []string) (string, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	c.started <- struct{}{}
	select {
	case <-c.release:
		if c.point == "" {
			return domain.PointNone, nil
		}
		return c.point, nil
	case <-ctx.Done():
		return domain.PointNone, ctx.Err()
	}
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 10, 18, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func choiceQuestion(id string, correct int) domain.ChoiceQuestion {
	return domain.ChoiceQuestion{
		ID:           id,
		Text:         "Which animal barks?",
		Options:      []string{"Cat", "Dog", "Cow", "Owl"},
		CorrectIndex: correct,
	}
}

func trueFalseQuestion(id string, correct int) domain.ChoiceQuestion {
	return domain.ChoiceQuestion{
		ID:           id,
		Text:         "The sky is blue.",
		TrueFalse:    true,
		Options:      []string{"True", "False"},
		CorrectIndex: correct,
	}
}

func mappingQuestion(id string) domain.MappingQuestion {
	return domain.MappingQuestion{
		ID:             id,
		Text:           "Match the sound to the animal",
		Items:          []string{"Cat", "Dog"},
		Targets:        []string{"Woof", "Meow"},
		CorrectMapping: map[int]int{0: 1, 1: 0},
	}
}

func twoQuestionQuiz() domain.Quiz {
	return domain.Quiz{
		ID:        "quiz-1",
		Title:     "Animals",
		Questions: []domain.Question{choiceQuestion("q1", 1), mappingQuestion("q2")},
	}
}

func testSettings() app.Settings {
	return app.Settings{
		StabilityThreshold: 2,
		BurstSize:          3,
		Cooldown:           30 * time.Second,
	}
}

type finalizeRecorder struct {
	mu       sync.Mutex
	attempts []domain.Attempt
	err      error
}

func (r *finalizeRecorder) Finalize(_ context.Context, attempt domain.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, attempt)
	return r.err
}

func (r *finalizeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attempts)
}

type sessionHarness struct {
	session    *app.Session
	frames     *stubFrames
	classifier *scriptedClassifier
	clock      *testClock
	guard      *gesture.Guard
	saved      *finalizeRecorder
}

func newHarness(quiz domain.Quiz, preview bool) *sessionHarness {
	h := &sessionHarness{
		frames:     newStubFrames(),
		classifier: &scriptedClassifier{},
		clock:      newTestClock(),
		saved:      &finalizeRecorder{},
	}
	settings := testSettings()
	h.guard = gesture.NewGuardWithClock(settings.Cooldown, h.clock.Now)
	h.session = app.NewSession(app.SessionParams{
		ID:            "session-1",
		Quiz:          quiz,
		ParticipantID: "u1",
		DisplayName:   "Alice",
		Preview:       preview,
		Settings:      settings,
		Frames:        h.frames,
		Classifier:    h.classifier,
		Guard:         h.guard,
		Finalize:      h.saved.Finalize,
		Now:           h.clock.Now,
	})
	return h
}
