package http

import (
	"errors"
	"net/http"

	"finadvisor/internal/core"
	"finadvisor/internal/log"
	"finadvisor/internal/nlu"
	"finadvisor/internal/services"
)

type dashboardPage struct {
	Version  string
	Personas []core.PersonaInfo
	Status   services.Status
}

type chatView struct {
	Message string
	Reply   *services.ChatResponse
}

type budgetView struct {
	Result *services.BudgetSummaryResponse
	// Categories holds every expense share for the bar chart; the metrics
	// only carry the top three.
	Categories []core.CategoryShare
}

type insightsView struct {
	Result *services.SpendingInsightsResponse
	Goals  []string
}

type nluView struct {
	Text   string
	Result nlu.Result
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "dashboard_page", dashboardPage{
		Version:  s.version,
		Personas: s.advisor.Features().Personas,
		Status:   s.advisor.Status(),
	}, nil)
}

func (s *Server) handleDashboardStatus(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "backend_status", s.advisor.Status(), nil)
}

// parseDashboardForm reads a dashboard form post. It writes the error
// response itself and returns nil on failure.
func (s *Server) parseDashboardForm(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Invalid dashboard form",
			log.FieldOperation, log.OpParse,
			log.FieldError, err)
		msg := "Invalid form submission"
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			msg = "Form submission is too large"
			status = http.StatusRequestEntityTooLarge
		}
		BadRequestError(msg).Status(status).Write(w)
		return nil
	}
	return parser
}

func (s *Server) handleDashboardChat(w http.ResponseWriter, r *http.Request) {
	parser := s.parseDashboardForm(w, r)
	if parser == nil {
		return
	}
	message := parser.Get("message")
	if message == "" {
		BadRequestError("Please enter a question").Write(w)
		return
	}

	ctx, cancel := s.operationContext(r)
	defer cancel()

	reply, err := s.advisor.Chat(ctx, message, parser.Get("persona"))
	if err != nil {
		s.operationFailed(w, r, "chat", err)
		return
	}
	s.render(w, r, "chat_reply", chatView{Message: message, Reply: reply},
		NewHTMXResponse().TriggerAdviceReceived(log.OpChat, reply.Source).TriggerFormReset())
}

func (s *Server) handleDashboardBudget(w http.ResponseWriter, r *http.Request) {
	parser := s.parseDashboardForm(w, r)
	if parser == nil {
		return
	}
	raw, err := parser.Budget()
	if err != nil {
		BadRequestError("Invalid budget data").Write(w)
		return
	}

	ctx, cancel := s.operationContext(r)
	defer cancel()

	result, err := s.advisor.BudgetSummary(ctx, raw)
	if err != nil {
		s.operationFailed(w, r, "budget summary", err)
		return
	}

	resp := NewHTMXResponse().TriggerAdviceReceived(log.OpBudgetSummary, result.Source)
	if result.FinancialMetrics.TotalIncome == 0 {
		resp.TriggerWarningNotification("No income entered; rates are shown as 0%")
	}
	s.render(w, r, "budget_result", budgetView{
		Result:     result,
		Categories: core.Shares(core.Normalize(raw).Expenses),
	}, resp)
}

func (s *Server) handleDashboardInsights(w http.ResponseWriter, r *http.Request) {
	parser := s.parseDashboardForm(w, r)
	if parser == nil {
		return
	}
	raw, err := parser.Budget()
	if err != nil {
		BadRequestError("Invalid budget data").Write(w)
		return
	}
	goals := parser.Goals()

	ctx, cancel := s.operationContext(r)
	defer cancel()

	result, err := s.advisor.SpendingInsights(ctx, raw, goals)
	if err != nil {
		s.operationFailed(w, r, "spending insights", err)
		return
	}
	s.render(w, r, "insights_result", insightsView{Result: result, Goals: goals},
		NewHTMXResponse().TriggerAdviceReceived(log.OpSpendingInsights, result.Source))
}

func (s *Server) handleDashboardNLU(w http.ResponseWriter, r *http.Request) {
	parser := s.parseDashboardForm(w, r)
	if parser == nil {
		return
	}
	text := parser.Get("text")
	if text == "" {
		BadRequestError("Please enter some text to analyze").Write(w)
		return
	}

	ctx, cancel := s.operationContext(r)
	defer cancel()

	result, err := s.advisor.AnalyzeText(ctx, text)
	if err != nil {
		s.operationFailed(w, r, "NLU", err)
		return
	}
	s.render(w, r, "nlu_result", nluView{Text: text, Result: result},
		NewHTMXResponse().TriggerStatusRefresh())
}
