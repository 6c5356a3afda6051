package genai

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finadvisor/internal/backend"
	"finadvisor/internal/cache"
	"finadvisor/internal/core"
)

const goodAdvice = "Start by building a budget that covers rent, groceries and utilities, then automate transfers into a savings account each payday."

type fakeGenerator struct {
	output string
	err    error
	block  bool
	calls  atomic.Int32
	last   atomic.Value
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, params backend.GenerationParams) (string, error) {
	f.calls.Add(1)
	f.last.Store(params)
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.output, f.err
}

func guardFor(g backend.Generator) *backend.Guard[backend.Generator] {
	return backend.NewGuard("generation", func(ctx context.Context) (backend.Generator, error) {
		return g, nil
	}, time.Second, nil)
}

func TestClean(t *testing.T) {
	tests := []struct {
		name   string
		output string
		prompt string
		want   string
	}{
		{"drops trailing fragment", "Save 20% of income. Automate it. Then you can", "", "Save 20% of income. Automate it."},
		{"keeps complete text", "Pay off the card first!", "", "Pay off the card first!"},
		{"strips echoed prompt", "What now?\nBuild a budget now", "What now?", "Build a budget now."},
		{"strips role markers", "<|system|>be nice<|user|>q<|assistant|>Answer here!", "", "Answer here!"},
		{"adds period", "Track spending weekly", "", "Track spending weekly."},
		{"empty", "   ", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.output, tt.prompt))
		})
	}
}

func TestAcceptable(t *testing.T) {
	assert.True(t, Acceptable(goodAdvice))
	assert.False(t, Acceptable("Save money."), "too short")
	assert.False(t, Acceptable("The weather today is sunny with a light breeze across the quiet northern hills."), "off topic")
	assert.False(t, Acceptable(strings.Repeat("budget ", 20)), "repetitive")
}

func TestSystemPrompt(t *testing.T) {
	assert.Contains(t, SystemPrompt(core.PersonaStudent), "student loans")
	assert.Contains(t, SystemPrompt(core.PersonaProfessional), "retirement")
	assert.Equal(t, PersonaContext(core.PersonaGeneral), PersonaContext("unknown"))
}

func TestService_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled backend", func(t *testing.T) {
		s := NewService(nil, time.Second)
		_, ok := s.Generate(ctx, "how do I save?", core.PersonaGeneral)
		assert.False(t, ok)
		assert.Equal(t, "unavailable", s.Status().State)
	})

	t.Run("accepted output", func(t *testing.T) {
		g := &fakeGenerator{output: goodAdvice}
		s := NewService(guardFor(g), time.Second)

		text, ok := s.Generate(ctx, "how do I save?", core.PersonaStudent)
		require.True(t, ok)
		assert.Equal(t, goodAdvice, text)

		params := g.last.Load().(backend.GenerationParams)
		assert.Equal(t, SystemPrompt(core.PersonaStudent), params.System)
		assert.Equal(t, 200, params.MaxNewTokens)
		assert.Equal(t, 0.3, params.Temperature)
	})

	t.Run("custom params keep the persona system prompt", func(t *testing.T) {
		g := &fakeGenerator{output: goodAdvice}
		custom := backend.DefaultGenerationParams()
		custom.MaxNewTokens = 120
		s := NewService(guardFor(g), time.Second, WithParams(custom))

		_, ok := s.Generate(ctx, "how do I save?", core.PersonaProfessional)
		require.True(t, ok)

		params := g.last.Load().(backend.GenerationParams)
		assert.Equal(t, 120, params.MaxNewTokens)
		assert.Equal(t, SystemPrompt(core.PersonaProfessional), params.System)
	})

	t.Run("rejected output falls back without disabling", func(t *testing.T) {
		g := &fakeGenerator{output: "ok"}
		guard := guardFor(g)
		s := NewService(guard, time.Second)

		_, ok := s.Generate(ctx, "q", core.PersonaGeneral)
		assert.False(t, ok)
		assert.Equal(t, backend.StateReady, guard.State())
	})

	t.Run("backend error", func(t *testing.T) {
		g := &fakeGenerator{err: errors.New("500")}
		s := NewService(guardFor(g), time.Second)
		_, ok := s.Generate(ctx, "q", core.PersonaGeneral)
		assert.False(t, ok)
	})

	t.Run("timeout", func(t *testing.T) {
		g := &fakeGenerator{block: true}
		s := NewService(guardFor(g), 20*time.Millisecond)

		start := time.Now()
		_, ok := s.Generate(ctx, "q", core.PersonaGeneral)
		assert.False(t, ok)
		assert.Less(t, time.Since(start), time.Second)
	})
}

func TestService_Cache(t *testing.T) {
	ctx := context.Background()

	t.Run("accepted output is reused", func(t *testing.T) {
		g := &fakeGenerator{output: goodAdvice}
		s := NewService(guardFor(g), time.Second, WithCache(cache.NewLRUStore(8, time.Minute)))

		for i := 0; i < 3; i++ {
			text, ok := s.Generate(ctx, "how do I save?", core.PersonaGeneral)
			require.True(t, ok)
			assert.Equal(t, goodAdvice, text)
		}
		assert.Equal(t, int32(1), g.calls.Load())

		_, ok := s.Generate(ctx, "how do I save?", core.PersonaStudent)
		require.True(t, ok)
		assert.Equal(t, int32(2), g.calls.Load(), "persona is part of the key")
	})

	t.Run("rejected output is not cached", func(t *testing.T) {
		g := &fakeGenerator{output: "no"}
		s := NewService(guardFor(g), time.Second, WithCache(cache.NewLRUStore(8, time.Minute)))

		s.Generate(ctx, "q", core.PersonaGeneral)
		s.Generate(ctx, "q", core.PersonaGeneral)
		assert.Equal(t, int32(2), g.calls.Load())
	})
}
