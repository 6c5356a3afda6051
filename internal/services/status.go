package services

import (
	"context"

	"finadvisor/internal/backend"
	"finadvisor/internal/core"
	"finadvisor/internal/log"
	"finadvisor/internal/metrics"
)

// Status reports backend readiness. It never triggers initialization.
type Status struct {
	NLU           backend.GuardStatus `json:"nlu"`
	Generation    backend.GuardStatus `json:"generation"`
	FallbackMode  bool                `json:"fallback_mode"`
	EventsEnabled bool                `json:"events_enabled"`
}

// Feature describes one advisor operation for discovery.
type Feature struct {
	Name        string `json:"name"`
	Endpoint    string `json:"endpoint"`
	Description string `json:"description"`
	Input       string `json:"input"`
}

// Features is the response of the discovery endpoint.
type Features struct {
	Features []Feature         `json:"features"`
	Personas []core.PersonaInfo `json:"personas"`
}

var featureList = []Feature{
	{
		Name:        "General Chat",
		Endpoint:    "/chat",
		Description: "Ask general financial questions and get personalized advice",
		Input:       "message (string), persona (optional)",
	},
	{
		Name:        "Budget Summary",
		Endpoint:    "/budget-summary",
		Description: "Get comprehensive budget analysis and recommendations",
		Input:       "income, expenses, savings_goal, persona (optional)",
	},
	{
		Name:        "Spending Insights",
		Endpoint:    "/spending-insights",
		Description: "Analyze spending patterns and get behavioral insights",
		Input:       "income, expenses, goals (optional), persona (optional)",
	},
	{
		Name:        "NLU Analysis",
		Endpoint:    "/nlu",
		Description: "Analyze text for sentiment, keywords, and entities",
		Input:       "text",
	},
}

// Status reports the current backend state.
func (s *AdvisorService) Status() Status {
	nluStatus := s.analyzer.Status()
	genStatus := s.generator.Status()
	return Status{
		NLU:           nluStatus,
		Generation:    genStatus,
		FallbackMode:  !nluStatus.Ready || !genStatus.Ready,
		EventsEnabled: s.publisher != nil,
	}
}

// ReportStatus publishes backend readiness gauges and logs a snapshot. The
// scheduler calls it periodically.
func (s *AdvisorService) ReportStatus(ctx context.Context) {
	st := s.Status()
	for _, g := range []backend.GuardStatus{st.NLU, st.Generation} {
		ready := 0.0
		if g.Ready {
			ready = 1
		}
		metrics.BackendReady.WithLabelValues(g.Name).Set(ready)
	}

	log.FromContext(ctx).WithComponent(log.ComponentScheduler).InfoContext(ctx, "Backend status",
		"nlu_state", st.NLU.State,
		"generation_state", st.Generation.State,
		"fallback_mode", st.FallbackMode,
		"events_enabled", st.EventsEnabled)
}

// Features lists the advisor operations and supported personas.
func (s *AdvisorService) Features() Features {
	features := make([]Feature, len(featureList))
	copy(features, featureList)
	return Features{Features: features, Personas: core.Personas()}
}
