package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"finadvisor/internal/core"
	"finadvisor/internal/log"
)

type chatRequest struct {
	Message string `json:"message"`
	Persona any    `json:"persona"`
}

type insightsRequest struct {
	core.RawBudget
	Goals []string `json:"goals"`
}

type nluRequest struct {
	Text string `json:"text"`
}

// decodeJSON reads a JSON object body, checks it against schema and decodes
// it into dst. The returned status is meaningful only when err is non-nil.
func decodeJSON(w http.ResponseWriter, r *http.Request, schema map[string]any, dst any) (int, error) {
	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		if errors.Is(err, errBodyTooLarge) {
			return http.StatusRequestEntityTooLarge, err
		}
		return http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err)
	}
	if !parser.IsJSON() {
		return http.StatusUnsupportedMediaType, errors.New("request body must be JSON")
	}
	if err := validateData(schema, parser.Data()); err != nil {
		return http.StatusBadRequest, err
	}
	if err := json.Unmarshal(parser.GetRaw(), dst); err != nil {
		return http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err)
	}
	return 0, nil
}

// operationFailed maps an advisor error to a response. Timeouts and client
// cancellations are reported separately from internal faults.
func (s *Server) operationFailed(w http.ResponseWriter, r *http.Request, what string, err error) {
	log.FromContext(r.Context()).ErrorContext(r.Context(), "Advisor operation failed",
		log.FieldOperation, what,
		log.FieldError, err)

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, r, http.StatusGatewayTimeout, fmt.Sprintf("Timed out processing %s request", what))
	case errors.Is(err, context.Canceled):
		s.writeError(w, r, http.StatusServiceUnavailable, fmt.Sprintf("Cancelled processing %s request", what))
	default:
		s.writeError(w, r, http.StatusInternalServerError, fmt.Sprintf("Error processing %s request: %v", what, err))
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Personal Finance Advisor API",
		"version":     s.version,
		"status":      "running",
		"ai_services": s.advisor.Status(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"uptime":      time.Since(s.startedAt).Round(time.Second).String(),
		"ai_services": s.advisor.Status(),
	})
}

// handleReady reports whether requests can be served. Fallback mode counts
// as ready; only missing templates take the dashboard out.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"advisor":   "ok",
		"templates": "ok",
	}
	status := http.StatusOK
	if s.templates == nil {
		checks["templates"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	writeJSON(w, status, map[string]any{
		"status":        state,
		"checks":        checks,
		"fallback_mode": s.advisor.Status().FallbackMode,
	})
}

func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.advisor.Features())
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if status, err := decodeJSON(w, r, chatSchema, &req); err != nil {
		s.writeError(w, r, status, err.Error())
		return
	}

	ctx, cancel := s.operationContext(r)
	defer cancel()

	resp, err := s.advisor.Chat(ctx, sanitizeInput(req.Message), req.Persona)
	if err != nil {
		s.operationFailed(w, r, "chat", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBudgetSummary(w http.ResponseWriter, r *http.Request) {
	var req core.RawBudget
	if status, err := decodeJSON(w, r, budgetSchema, &req); err != nil {
		s.writeError(w, r, status, err.Error())
		return
	}

	ctx, cancel := s.operationContext(r)
	defer cancel()

	resp, err := s.advisor.BudgetSummary(ctx, req)
	if err != nil {
		s.operationFailed(w, r, "budget summary", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSpendingInsights(w http.ResponseWriter, r *http.Request) {
	var req insightsRequest
	if status, err := decodeJSON(w, r, insightsSchema, &req); err != nil {
		s.writeError(w, r, status, err.Error())
		return
	}

	ctx, cancel := s.operationContext(r)
	defer cancel()

	resp, err := s.advisor.SpendingInsights(ctx, req.RawBudget, req.Goals)
	if err != nil {
		s.operationFailed(w, r, "spending insights", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNLU(w http.ResponseWriter, r *http.Request) {
	var req nluRequest
	if status, err := decodeJSON(w, r, nluSchema, &req); err != nil {
		s.writeError(w, r, status, err.Error())
		return
	}

	ctx, cancel := s.operationContext(r)
	defer cancel()

	res, err := s.advisor.AnalyzeText(ctx, sanitizeInput(req.Text))
	if err != nil {
		s.operationFailed(w, r, "NLU", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
