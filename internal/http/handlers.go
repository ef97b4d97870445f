package http

import (
	"context"
	"net/http"
	"time"

	"spendsync/internal/core"
	"spendsync/internal/log"
	"spendsync/internal/notify"
	"spendsync/internal/views"
)

type viewResponse struct {
	views.Snapshot
	Display displayFigures `json:"display"`
}

// displayFigures are the headline and finance numbers formatted for the
// configured currency.
type displayFigures struct {
	Total          string `json:"total"`
	Week           string `json:"week"`
	Today          string `json:"today"`
	Salary         string `json:"salary"`
	MonthSpent     string `json:"monthSpent"`
	Remaining      string `json:"remaining"`
	SavingsPercent string `json:"savingsPercent"`
}

func (s *Server) viewResponse() viewResponse {
	snap := s.tab.View()
	return viewResponse{
		Snapshot: snap,
		Display: displayFigures{
			Total:          snap.Totals.Total.Display(s.currency),
			Week:           snap.Totals.Week.Display(s.currency),
			Today:          snap.Totals.Today.Display(s.currency),
			Salary:         snap.Finance.Salary.Display(s.currency),
			MonthSpent:     snap.Finance.MonthSpent.Display(s.currency),
			Remaining:      snap.Finance.Remaining.Display(s.currency),
			SavingsPercent: snap.Finance.SavingsText() + "%",
		},
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":    "ok",
		"tab":       s.tab.ID(),
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.ready(ctx); err != nil {
		log.FromContext(ctx).Warn("Readiness check failed", log.FieldError, err.Error())
		NewResponse().Status(http.StatusServiceUnavailable).
			JSON(map[string]any{"status": "not_ready", "store": err.Error()}).
			Write(w)
		return
	}
	NewResponse().JSON(map[string]any{"status": "ready", "store": "ok"}).Write(w)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.viewResponse()).Write(w)
}

// handleSetFilter accepts the filter in the body, or in the query string
// when the body is empty.
func (s *Server) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return
	}
	get := p.Get
	if !p.IsJSON() && len(p.formData) == 0 {
		get = r.URL.Query().Get
	}

	f, err := ParseFilter(get)
	if err == nil {
		err = s.tab.SetFilter(f)
	}
	if err != nil {
		s.errorFor(r.Context(), "filter", err).Write(w)
		return
	}
	NewResponse().TriggerViewChanged().JSON(s.viewResponse()).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return
	}

	e, err := s.tab.AddExpense(r.Context(), ParseDraft(p))
	if err != nil {
		s.withNotification(s.errorFor(r.Context(), log.OpAdd, err), start).Write(w)
		return
	}
	s.withNotification(NewResponse().Status(http.StatusCreated), start).
		TriggerViewChanged().
		JSON(map[string]any{"expense": e, "amount": s.money(e.Amount)}).
		Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := s.tab.DeleteExpense(r.Context(), r.PathValue("id")); err != nil {
		s.withNotification(s.errorFor(r.Context(), log.OpDelete, err), start).Write(w)
		return
	}
	s.withNotification(NewResponse().Status(http.StatusNoContent), start).
		TriggerViewChanged().
		Write(w)
}

type profileResponse struct {
	Profile core.Profile `json:"profile"`
	Exists  bool         `json:"exists"`
	Salary  Money        `json:"salary"`
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := s.tab.Profile()
	NewResponse().JSON(profileResponse{Profile: p, Exists: ok, Salary: s.money(p.MonthlySalary)}).Write(w)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return
	}
	profile, err := ParseProfile(p)
	if err == nil {
		err = s.tab.UpdateProfile(r.Context(), profile)
	}
	if err != nil {
		s.withNotification(s.errorFor(r.Context(), log.OpProfile, err), start).Write(w)
		return
	}
	saved, _ := s.tab.Profile()
	s.withNotification(NewResponse(), start).
		TriggerViewChanged().
		JSON(profileResponse{Profile: saved, Exists: true, Salary: s.money(saved.MonthlySalary)}).
		Write(w)
}

func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := s.tab.Theme(r.Context())
	if err != nil {
		s.errorFor(r.Context(), "theme", err).Write(w)
		return
	}
	NewResponse().JSON(map[string]string{"theme": string(theme)}).Write(w)
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return
	}
	theme := core.ParseTheme(p.Get("theme"))
	if err := s.tab.SetTheme(r.Context(), theme); err != nil {
		s.errorFor(r.Context(), "theme", err).Write(w)
		return
	}
	NewResponse().JSON(map[string]string{"theme": string(theme)}).Write(w)
}

func (s *Server) handleRecover(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	backup, err := s.tab.RecoverLedger(r.Context())
	if err != nil {
		s.errorFor(r.Context(), log.OpRecover, err).Write(w)
		return
	}
	s.withNotification(NewResponse(), start).
		TriggerViewChanged().
		JSON(map[string]any{"backup": backup, "recovered": backup != ""}).
		Write(w)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	var visible []notify.Notification
	if s.recorder != nil {
		visible = s.recorder.Visible()
	}
	NewResponse().JSON(map[string]any{"notifications": notificationsFrom(visible)}).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{"categories": core.Categories()}).Write(w)
}
