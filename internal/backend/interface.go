package backend

import (
	"context"
	"errors"
	"time"
)

var (
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrNotConfigured      = errors.New("backend not configured")
	ErrBadResponse        = errors.New("unexpected backend response")
)

// Sentiment is a label in {positive, negative, neutral} with a score in [0,1].
type Sentiment struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type Entity struct {
	Text  string  `json:"text"`
	Type  string  `json:"type"`
	Score float64 `json:"score"`
}

// NLUBackend classifies sentiment and extracts entities from free text.
type NLUBackend interface {
	ClassifySentiment(ctx context.Context, text string) (Sentiment, error)
	ExtractEntities(ctx context.Context, text string) ([]Entity, error)
}

// GenerationParams tunes text generation. Backends ignore what they do not support.
type GenerationParams struct {
	System            string  `json:"system,omitempty"`
	MaxNewTokens      int     `json:"max_new_tokens"`
	MinNewTokens      int     `json:"min_new_tokens"`
	Temperature       float64 `json:"temperature"`
	TopP              float64 `json:"top_p"`
	TopK              int     `json:"top_k"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
}

// DefaultGenerationParams favors short, focused advice.
func DefaultGenerationParams() GenerationParams {
	return GenerationParams{
		MaxNewTokens:      200,
		MinNewTokens:      50,
		Temperature:       0.3,
		TopP:              0.9,
		TopK:              50,
		RepetitionPenalty: 1.1,
	}
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds the guarded backends. Either guard may be permanently
// unavailable when its backend type is none.
type BackendResult struct {
	NLU       *Guard[NLUBackend]
	Generator *Guard[Generator]
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackends(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	NLUType    BackendType
	NLUBaseURL string

	GenerationType    BackendType
	GenerationBaseURL string
	GenerationModel   string
	AnthropicAPIKey   string

	// Timeout bounds a single backend call; InitTimeout bounds first-use initialization.
	Timeout     time.Duration
	InitTimeout time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	NoneBackend      BackendType = "none"
	HTTPBackend      BackendType = "http"
	AnthropicBackend BackendType = "anthropic"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case NoneBackend, HTTPBackend, AnthropicBackend:
		return true
	default:
		return false
	}
}
