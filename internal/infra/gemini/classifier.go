package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"gesture-quiz-service/internal/domain"
	"gesture-quiz-service/internal/gesture"
	"gesture-quiz-service/internal/metrics"
	"gesture-quiz-service/internal/tracing"
)

const DefaultModel = "gemini-2.5-flash"

const gesturePrompt = "Analyze the hand gesture in the image. Respond with only one of the following words: THUMBS_UP, OPEN_PALM, PEACE_SIGN, FIST, UNKNOWN."

const pointingPrompt = `Analyze the image. The user is pointing with their index finger at one of several labeled boxes on the screen. The boxes are labeled %s. Respond with ONLY the label of the box the user's finger is pointing at. If the pointing is unclear, respond with "NONE".`

// Generator is the subset of the genai models API the classifier needs.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Config struct {
	APIKey string
	Model  string
	// RequestsPerSecond paces outbound calls across all sessions; zero disables pacing.
	RequestsPerSecond float64
	Burst             int
}

// Classifier asks a Gemini model to label gestures and pointing targets.
type Classifier struct {
	models  Generator
	model   string
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New connects to the Gemini API.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Classifier, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return NewWithGenerator(client.Models, cfg, logger), nil
}

func NewWithGenerator(models Generator, cfg Config, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return &Classifier{models: models, model: model, limiter: limiter, logger: logger}
}

func (c *Classifier) ClassifyGesture(ctx context.Context, frame domain.Frame) (domain.Gesture, error) {
	parts := []*genai.Part{
		genai.NewPartFromBytes(frame.Data, mimeOrDefault(frame.MIMEType)),
		genai.NewPartFromText(gesturePrompt),
	}
	text, err := c.generate(ctx, "gesture", parts)
	if err != nil {
		return domain.GestureUnknown, err
	}
	label := domain.ParseGesture(cleanReply(text))
	if label == domain.GestureUnknown && cleanReply(text) != string(domain.GestureUnknown) {
		c.logger.Debug("unrecognised gesture reply", zap.String("reply", text))
	}
	return label, nil
}

func (c *Classifier) ClassifyPointing(ctx context.Context, frames []domain.Frame, candidates []string) (string, error) {
	if len(frames) == 0 || len(candidates) == 0 {
		return domain.PointNone, nil
	}
	parts := make([]*genai.Part, 0, len(frames)+1)
	for _, frame := range frames {
		parts = append(parts, genai.NewPartFromBytes(frame.Data, mimeOrDefault(frame.MIMEType)))
	}
	parts = append(parts, genai.NewPartFromText(fmt.Sprintf(pointingPrompt, strings.Join(candidates, ", "))))

	text, err := c.generate(ctx, "pointing", parts)
	if err != nil {
		return domain.PointNone, err
	}
	return normalizePointing(text, candidates), nil
}

func (c *Classifier) generate(ctx context.Context, kind string, parts []*genai.Part) (string, error) {
	ctx, span := tracing.Tracer.Start(ctx, "gemini."+kind, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("gemini.model", c.model),
		attribute.Int("gemini.parts", len(parts)),
	)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			metrics.ClassifierCalls.WithLabelValues(kind, "throttled").Inc()
			span.SetStatus(codes.Error, "rate limiter")
			return "", fmt.Errorf("wait for classifier slot: %w", err)
		}
	}

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{
			ThinkingConfig: &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](0)},
		},
	)
	metrics.ClassifierDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate content")
		if gesture.IsQuotaError(err) {
			metrics.ClassifierCalls.WithLabelValues(kind, "quota").Inc()
			return "", fmt.Errorf("%w: %v", domain.ErrQuotaExceeded, err)
		}
		metrics.ClassifierCalls.WithLabelValues(kind, "error").Inc()
		return "", fmt.Errorf("generate %s: %w", kind, err)
	}
	metrics.ClassifierCalls.WithLabelValues(kind, "ok").Inc()
	text := resp.Text()
	span.SetAttributes(attribute.String("gemini.reply", cleanReply(text)))
	return text, nil
}

func cleanReply(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.Trim(text, " \t\r\n`.\"'")
	return strings.ToUpper(text)
}

// normalizePointing returns the candidate the reply names, or domain.PointNone.
func normalizePointing(text string, candidates []string) string {
	reply := cleanReply(text)
	for _, candidate := range candidates {
		if reply == candidate {
			return candidate
		}
	}
	return domain.PointNone
}

func mimeOrDefault(mimeType string) string {
	if mimeType == "" {
		return "image/jpeg"
	}
	return mimeType
}
