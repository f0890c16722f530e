package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"google.golang.org/genai"

	"gesture-quiz-service/internal/domain"
)

type fakeGenerator struct {
	reply    string
	err      error
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(f.reply, genai.RoleModel)}},
	}, nil
}

func frame() domain.Frame {
	return domain.Frame{Data: []byte{0xff, 0xd8}, MIMEType: "image/jpeg"}
}

func TestClassifyGestureParsesReply(t *testing.T) {
	gen := &fakeGenerator{reply: " open_palm.\n"}
	classifier := NewWithGenerator(gen, Config{}, nil)

	label, err := classifier.ClassifyGesture(context.Background(), frame())
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if label != domain.GestureOpenPalm {
		t.Fatalf("expected OPEN_PALM, got %s", label)
	}
	if gen.model != DefaultModel {
		t.Fatalf("expected default model, got %s", gen.model)
	}
	if gen.config == nil || gen.config.ThinkingConfig == nil || *gen.config.ThinkingConfig.ThinkingBudget != 0 {
		t.Fatalf("expected zero thinking budget, got %+v", gen.config)
	}
	if len(gen.contents) != 1 || len(gen.contents[0].Parts) != 2 {
		t.Fatalf("expected image + prompt parts, got %+v", gen.contents)
	}
}

func TestClassifyGestureMapsGarbageToUnknown(t *testing.T) {
	classifier := NewWithGenerator(&fakeGenerator{reply: "a waving hand"}, Config{}, nil)
	label, err := classifier.ClassifyGesture(context.Background(), frame())
	if err != nil || label != domain.GestureUnknown {
		t.Fatalf("expected UNKNOWN, got %s (%v)", label, err)
	}
}

func TestClassifyPointingRestrictsToCandidates(t *testing.T) {
	gen := &fakeGenerator{reply: "b"}
	classifier := NewWithGenerator(gen, Config{Model: "custom"}, nil)
	frames := []domain.Frame{frame(), frame(), frame()}

	label, err := classifier.ClassifyPointing(context.Background(), frames, []string{"A", "B"})
	if err != nil || label != "B" {
		t.Fatalf("expected B, got %q (%v)", label, err)
	}
	parts := gen.contents[0].Parts
	if len(parts) != 4 {
		t.Fatalf("expected 3 frames + prompt, got %d parts", len(parts))
	}
	if !strings.Contains(parts[3].Text, "labeled A, B.") {
		t.Fatalf("prompt must list candidates, got %q", parts[3].Text)
	}

	gen.reply = "C"
	label, _ = classifier.ClassifyPointing(context.Background(), frames, []string{"A", "B"})
	if label != domain.PointNone {
		t.Fatalf("expected NONE for non-candidate, got %q", label)
	}
}

func TestQuotaErrorsAreMapped(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("Error 429, Message: Resource has been exhausted, Status: RESOURCE_EXHAUSTED")}
	classifier := NewWithGenerator(gen, Config{}, nil)

	_, err := classifier.ClassifyGesture(context.Background(), frame())
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}

	gen.err = errors.New("connection reset")
	_, err = classifier.ClassifyGesture(context.Background(), frame())
	if err == nil || errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestLimiterHonoursContext(t *testing.T) {
	classifier := NewWithGenerator(&fakeGenerator{reply: "FIST"}, Config{RequestsPerSecond: 0.001, Burst: 1}, nil)
	if _, err := classifier.ClassifyGesture(context.Background(), frame()); err != nil {
		t.Fatalf("first call uses the burst: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := classifier.ClassifyGesture(ctx, frame()); err == nil {
		t.Fatalf("expected limiter wait to fail on cancelled context")
	}
}
