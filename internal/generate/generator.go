package generate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/zukan/internal/config"
	"github.com/hyperjump/zukan/internal/models"
	"github.com/hyperjump/zukan/pkg/utils"
)

// Generator sends one multimodal prompt to an external model and returns its text.
type Generator interface {
	Generate(ctx context.Context, blocks []models.ContentBlock) (string, error)
}

// ErrGeneration matches any *Error with errors.Is.
var ErrGeneration = errors.New("generation failed")

// Error reports a failed call to the answer-generation model.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s generation: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrGeneration }

// New creates the generator selected by cfg.Provider, rate limited and bounded by cfg.Timeout.
func New(ctx context.Context, cfg config.GeneratorConfig, logger *zap.Logger) (Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key configured for generator provider %s", cfg.Provider)
	}
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid generator timeout %q: %w", cfg.Timeout, err)
	}

	var g Generator
	switch cfg.Provider {
	case config.ProviderAnthropic:
		g = NewAnthropicGenerator(cfg.APIKey, cfg.Model, cfg.MaxTokens)
	case config.ProviderGemini:
		g, err = NewGeminiGenerator(ctx, cfg.APIKey, cfg.Model, cfg.MaxTokens)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown generator provider: %s (supported: anthropic, gemini)", cfg.Provider)
	}

	utils.LoggerOrNop(logger).Info("answer generator ready",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Duration("timeout", timeout),
		zap.Int("requests_per_minute", cfg.RequestsPerMinute))
	return NewThrottled(g, cfg.Provider, cfg.RequestsPerMinute, timeout), nil
}

// Throttled wraps a Generator with a request rate limit and a per-call timeout.
type Throttled struct {
	next     Generator
	provider string
	limiter  *rate.Limiter
	timeout  time.Duration
}

// NewThrottled limits next to requestsPerMinute calls (unlimited when <= 0) and bounds each
// call by timeout (none when <= 0).
func NewThrottled(next Generator, provider string, requestsPerMinute int, timeout time.Duration) *Throttled {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
	}
	return &Throttled{next: next, provider: provider, limiter: limiter, timeout: timeout}
}

// Generate waits for the limiter, then calls the wrapped generator once.
func (t *Throttled) Generate(ctx context.Context, blocks []models.ContentBlock) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", &Error{Provider: t.provider, Err: err}
	}
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	text, err := t.next.Generate(ctx, blocks)
	if err != nil {
		var genErr *Error
		if errors.As(err, &genErr) {
			return "", err
		}
		return "", &Error{Provider: t.provider, Err: err}
	}
	return text, nil
}
