package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListDebts(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	debts, err := s.svc.Debts.GetDebts(r.Context(), uid)
	if err != nil {
		writeError(w, r, "list debts", err)
		return
	}
	OK(debts).Write(w)
}

func (s *Server) handleCreateDebt(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req debtRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	d, err := req.toDebt()
	if err != nil {
		writeError(w, r, "create debt", err)
		return
	}
	created, err := s.svc.Debts.CreateDebt(r.Context(), uid, d)
	if err != nil {
		writeError(w, r, "create debt", err)
		return
	}
	Created(created).Write(w)
}

func (s *Server) handleDebtsSummary(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	summary, err := s.svc.Debts.GetDebtsSummary(r.Context(), uid)
	if err != nil {
		writeError(w, r, "debts summary", err)
		return
	}
	OK(summary).Write(w)
}

func (s *Server) handleGetDebt(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	debt, err := s.svc.Debts.GetDebt(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "get debt", err)
		return
	}
	OK(debt).Write(w)
}

func (s *Server) handleUpdateDebt(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req debtRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(w, r, "update debt", err)
		return
	}
	updated, err := s.svc.Debts.UpdateDebt(r.Context(), uid, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, "update debt", err)
		return
	}
	OK(updated).Write(w)
}

func (s *Server) handleDeleteDebt(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := s.svc.Debts.DeleteDebt(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, "delete debt", err)
		return
	}
	NewResponse().Write(w)
}

func (s *Server) handleAddPayment(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req paymentRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	p, err := req.toPayment()
	if err != nil {
		writeError(w, r, "add payment", err)
		return
	}
	created, err := s.svc.Debts.AddPayment(r.Context(), uid, chi.URLParam(r, "id"), p)
	if err != nil {
		writeError(w, r, "add payment", err)
		return
	}
	Created(created).Write(w)
}

// handleUpdatePayment accepts an optional debtId in the body. When present the
// payment must belong to that debt.
func (s *Server) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req paymentRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(w, r, "update payment", err)
		return
	}
	debtID := ""
	if req.DebtID != nil {
		debtID = strings.TrimSpace(*req.DebtID)
	}
	updated, err := s.svc.Debts.UpdatePayment(r.Context(), uid, chi.URLParam(r, "id"), debtID, patch)
	if err != nil {
		writeError(w, r, "update payment", err)
		return
	}
	OK(updated).Write(w)
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := s.svc.Debts.DeletePayment(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, "delete payment", err)
		return
	}
	NewResponse().Write(w)
}
