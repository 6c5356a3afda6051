package backend

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackends implements Factory.CreateBackends. Nothing is dialed here;
// each guard connects on first use.
func (f *DefaultFactory) CreateBackends(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	result := &BackendResult{
		NLU:       f.createNLU(config),
		Generator: f.createGenerator(config),
	}

	f.logger.Info("Configured AI backends",
		"nlu", config.NLUType,
		"generation", config.GenerationType)

	return result, nil
}

func (f *DefaultFactory) createNLU(config Config) *Guard[NLUBackend] {
	switch config.NLUType {
	case HTTPBackend:
		return NewGuard("nlu", func(ctx context.Context) (NLUBackend, error) {
			client := NewHTTPNLU(config.NLUBaseURL, config.Timeout)
			if err := client.Ping(ctx); err != nil {
				return nil, fmt.Errorf("nlu backend at %s: %w", config.NLUBaseURL, err)
			}
			return client, nil
		}, config.InitTimeout, f.logger)
	default:
		f.logger.Info("NLU backend disabled, keyword analysis only")
		return Disabled[NLUBackend]("nlu")
	}
}

func (f *DefaultFactory) createGenerator(config Config) *Guard[Generator] {
	switch config.GenerationType {
	case HTTPBackend:
		return NewGuard("generation", func(ctx context.Context) (Generator, error) {
			client := NewHTTPGenerator(config.GenerationBaseURL, config.Timeout)
			if err := client.Ping(ctx); err != nil {
				return nil, fmt.Errorf("generation backend at %s: %w", config.GenerationBaseURL, err)
			}
			return client, nil
		}, config.InitTimeout, f.logger)
	case AnthropicBackend:
		return NewGuard("generation", func(ctx context.Context) (Generator, error) {
			return NewAnthropicGenerator(config.AnthropicAPIKey, config.GenerationModel, config.Timeout)
		}, config.InitTimeout, f.logger)
	default:
		f.logger.Info("Generation backend disabled, rule-based advice only")
		return Disabled[Generator]("generation")
	}
}
