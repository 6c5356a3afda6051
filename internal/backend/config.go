package backend

import (
	"fmt"

	"finadvisor/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	cfg := Config{
		NLUType:    BackendType(appConfig.NLUBackend),
		NLUBaseURL: appConfig.NLUBaseURL,

		GenerationType:    BackendType(appConfig.GenerationBackend),
		GenerationBaseURL: appConfig.GenerationBaseURL,
		GenerationModel:   appConfig.GenerationModel,
		AnthropicAPIKey:   appConfig.AnthropicAPIKey,

		Timeout:     appConfig.BackendTimeout,
		InitTimeout: appConfig.BackendInitTimeout,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.NLUType.IsValid() || c.NLUType == AnthropicBackend {
		return fmt.Errorf("invalid NLU backend type: %s", c.NLUType)
	}
	if !c.GenerationType.IsValid() {
		return fmt.Errorf("invalid generation backend type: %s", c.GenerationType)
	}

	if c.NLUType == HTTPBackend && c.NLUBaseURL == "" {
		return fmt.Errorf("NLU base URL is required for http NLU backend")
	}

	switch c.GenerationType {
	case HTTPBackend:
		if c.GenerationBaseURL == "" {
			return fmt.Errorf("generation base URL is required for http generation backend")
		}
	case AnthropicBackend:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("Anthropic API key is required for anthropic generation backend")
		}
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("backend timeout must be positive")
	}

	return nil
}

