package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"organify/internal/core"
)

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req transactionRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	t, err := req.toTransaction()
	if err != nil {
		writeError(w, r, "create transaction", err)
		return
	}

	created, err := s.svc.Ledger.CreateTransaction(r.Context(), uid, t)
	if err != nil {
		writeError(w, r, "create transaction", err)
		return
	}
	Created(created).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	ref, err := parseMonthParam(r)
	if err != nil {
		writeError(w, r, "list transactions", err)
		return
	}
	typ := core.TransactionType(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("type"))))

	list, err := s.svc.Ledger.GetTransactions(r.Context(), uid, typ, ref)
	if err != nil {
		writeError(w, r, "list transactions", err)
		return
	}
	OK(list).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req transactionRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(w, r, "update transaction", err)
		return
	}

	updated, err := s.svc.Ledger.UpdateTransaction(r.Context(), uid, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, "update transaction", err)
		return
	}
	OK(updated).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := s.svc.Ledger.DeleteTransaction(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, "delete transaction", err)
		return
	}
	NewResponse().Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	ref, err := parseMonthParam(r)
	if err != nil {
		writeError(w, r, "summary", err)
		return
	}
	totals, err := s.svc.Ledger.GetSummaryTotals(r.Context(), uid, ref)
	if err != nil {
		writeError(w, r, "summary", err)
		return
	}
	OK(totals).Write(w)
}

func (s *Server) handleRunningBalance(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	ref, err := parseMonthParam(r)
	if err != nil {
		writeError(w, r, "running balance", err)
		return
	}
	balance, err := s.svc.Ledger.GetRunningBalance(r.Context(), uid, ref)
	if err != nil {
		writeError(w, r, "running balance", err)
		return
	}
	OK(balance).Write(w)
}
