// Package genai turns prompts into advice text through the guarded
// generation backend. Callers fall back to rule-based advice whenever
// Generate reports ok=false.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"finadvisor/internal/backend"
	"finadvisor/internal/cache"
	"finadvisor/internal/core"
	"finadvisor/internal/metrics"
)

var (
	ErrGenerationTimeout = errors.New("generation timed out")
	ErrLowQuality        = errors.New("generated text failed quality check")
)

const systemInstruction = "You are a professional financial advisor with expertise in personal finance, " +
	"budgeting, investments, and debt management. Provide clear, actionable, and practical financial advice."

var personaContexts = map[core.Persona]string{
	core.PersonaStudent: "Focus on student-specific financial challenges like student loans, part-time income, " +
		"and building financial habits on a limited budget.",
	core.PersonaProfessional: "Focus on professional-level financial planning including retirement, investments, " +
		"tax strategies, and wealth building.",
	core.PersonaGeneral: "Provide general financial advice suitable for various income levels and life situations.",
}

// PersonaContext returns the framing sentence sent with every prompt.
func PersonaContext(p core.Persona) string {
	if c, ok := personaContexts[p]; ok {
		return c
	}
	return personaContexts[core.PersonaGeneral]
}

// SystemPrompt combines the fixed instruction with the persona context.
func SystemPrompt(p core.Persona) string {
	return systemInstruction + " " + PersonaContext(p)
}

// Service generates advice text. Only accepted backend output is cached.
type Service struct {
	generator *backend.Guard[backend.Generator]
	params    backend.GenerationParams
	timeout   time.Duration
	store     cache.Store
	group     singleflight.Group
	logger    *slog.Logger
}

type Option func(*Service)

// WithCache memoizes accepted output. A nil store disables caching.
func WithCache(store cache.Store) Option {
	return func(s *Service) { s.store = store }
}

func WithParams(p backend.GenerationParams) Option {
	return func(s *Service) { s.params = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a generation service. A nil guard disables generation.
func NewService(guard *backend.Guard[backend.Generator], timeout time.Duration, opts ...Option) *Service {
	if guard == nil {
		guard = backend.Disabled[backend.Generator]("generation")
	}
	s := &Service{
		generator: guard,
		params:    backend.DefaultGenerationParams(),
		timeout:   timeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate returns backend text for prompt, or ok=false when the backend is
// unavailable, fails, times out, or produces output that is rejected.
func (s *Service) Generate(ctx context.Context, prompt string, persona core.Persona) (string, bool) {
	gen, ok := s.generator.Get(ctx)
	if !ok {
		return "", false
	}

	key := cache.Key(string(persona), prompt)
	if text, ok := s.lookup(ctx, key); ok {
		return text, true
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		text, err := s.generate(ctx, gen, prompt, persona)
		if err != nil {
			return "", err
		}
		s.remember(ctx, key, text)
		return text, nil
	})
	if err != nil {
		reason := "error"
		switch {
		case errors.Is(err, ErrGenerationTimeout):
			reason = "timeout"
		case errors.Is(err, ErrLowQuality):
			reason = "quality"
		}
		metrics.BackendFallbacks.WithLabelValues("generation", reason).Inc()
		s.logger.WarnContext(ctx, "Generation failed, using rule-based advice",
			"error", err,
			"reason", reason,
			"persona", persona)
		return "", false
	}
	return v.(string), true
}

// Status reports the generation backend guard state.
func (s *Service) Status() backend.GuardStatus {
	return s.generator.Status()
}

func (s *Service) generate(ctx context.Context, gen backend.Generator, prompt string, persona core.Persona) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	params := s.params
	params.System = SystemPrompt(persona)

	raw, err := gen.Generate(ctx, prompt, params)
	if err != nil {
		if errors.Is(err, backend.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", ErrGenerationTimeout, err)
		}
		return "", fmt.Errorf("generation backend: %w", err)
	}

	text := Clean(raw, prompt)
	if !Acceptable(text) {
		return "", ErrLowQuality
	}
	return text, nil
}

func (s *Service) lookup(ctx context.Context, key string) (string, bool) {
	if s.store == nil {
		return "", false
	}
	text, ok, err := s.store.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues(s.store.Name(), "error").Inc()
		s.logger.WarnContext(ctx, "Cache lookup failed", "store", s.store.Name(), "error", err)
		return "", false
	case ok:
		metrics.CacheLookups.WithLabelValues(s.store.Name(), "hit").Inc()
		return text, true
	default:
		metrics.CacheLookups.WithLabelValues(s.store.Name(), "miss").Inc()
		return "", false
	}
}

func (s *Service) remember(ctx context.Context, key, text string) {
	if s.store == nil {
		return
	}
	if err := s.store.Set(ctx, key, text); err != nil {
		s.logger.WarnContext(ctx, "Cache store failed", "store", s.store.Name(), "error", err)
	}
}
