package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	applog "expensetracker/internal/log"
	"expensetracker/internal/services"
	"expensetracker/internal/store"
)

const readyTimeout = 2 * time.Second

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	NewResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "not ready").Write(w)
			return
		}
	}
	NewResponse().JSON(map[string]string{"status": "ready"}).Write(w)
}

// handleListExpenses serves the filtered list, the chart series and the
// selector state for ?year= (default: current year).
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	_, defYear := s.tracker.Years()
	year := parseYear(r.URL.Query(), defYear)

	v, err := s.tracker.View(r.Context(), year)
	if err != nil {
		s.internalError(w, r, "list expenses", err)
		return
	}
	NewResponse().JSON(toViewResponse(s.currencyLabel, v)).Write(w)
}

func (s *Server) handleYears(w http.ResponseWriter, _ *http.Request) {
	years, def := s.tracker.Years()
	NewResponse().JSON(yearsResponse{Years: years, DefaultYear: def}).Write(w)
}

// handleSubmitExpense adds an expense, or updates the one being edited.
func (s *Server) handleSubmitExpense(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}

	e, fieldErrs := ParseExpenseForm(parser)
	if len(fieldErrs) > 0 {
		ValidationError(fieldErrs).Write(w)
		return
	}

	outcome, err := s.tracker.Submit(r.Context(), e)
	if err != nil {
		if errors.Is(err, store.ErrIndexOutOfRange) {
			NotFoundError("The expense being edited no longer exists").Write(w)
			return
		}
		s.internalError(w, r, "submit expense", err)
		return
	}

	resp := NewResponse().TriggerFormReset().JSON(submitResponse{Outcome: outcome.String()})
	if outcome == services.Updated {
		resp.TriggerExpenseUpdated(e.Date.Year())
	} else {
		resp.Status(http.StatusCreated).TriggerExpenseCreated(e.Date.Year())
	}
	resp.Write(w)
}

// handleBeginEdit enters edit mode and returns the values to prefill.
func (s *Server) handleBeginEdit(w http.ResponseWriter, r *http.Request) {
	index, err := parseIndex(r)
	if err != nil {
		BadRequestError("Invalid expense index").Write(w)
		return
	}

	e, err := s.tracker.BeginEdit(r.Context(), index)
	if err != nil {
		s.indexError(w, r, "begin edit", err)
		return
	}

	NewResponse().JSON(editResponse{
		Index: index,
		Form:  formValues{Title: e.Title, Amount: e.Amount.Float(), Date: e.Date.String()},
	}).Write(w)
}

// handleCancelEdit leaves edit mode. Cancelling when idle is harmless.
func (s *Server) handleCancelEdit(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.CancelEdit(r.Context()); err != nil && !errors.Is(err, services.ErrNotEditing) {
		s.internalError(w, r, "cancel edit", err)
		return
	}
	NewResponse().Status(http.StatusNoContent).TriggerFormReset().Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	index, err := parseIndex(r)
	if err != nil {
		BadRequestError("Invalid expense index").Write(w)
		return
	}

	editCancelled, err := s.tracker.Remove(r.Context(), index)
	if err != nil {
		s.indexError(w, r, "remove expense", err)
		return
	}

	resp := NewResponse().Status(http.StatusNoContent).TriggerExpenseDeleted(index)
	if editCancelled {
		resp.TriggerFormReset()
	}
	resp.Write(w)
}

// indexError maps a stale index to 404 and anything else to 500.
func (s *Server) indexError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, store.ErrIndexOutOfRange) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Stale expense index",
			applog.FieldOperation, op,
			applog.FieldError, err,
			"error_type", applog.ErrorTypeNotFound)
		NotFoundError("Expense not found").Write(w)
		return
	}
	s.internalError(w, r, op, err)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
		applog.FieldOperation, op,
		applog.FieldError, err,
		"error_type", applog.ErrorTypeInternal)
	InternalServerError("Internal server error").Write(w)
}
