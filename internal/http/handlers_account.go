package http

import (
	"fmt"
	"net/http"
	"strconv"

	"organify/internal/core"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	u, err := s.svc.Accounts.GetAccount(r.Context(), uid)
	if err != nil {
		writeError(w, r, "get account", err)
		return
	}
	OK(u).Write(w)
}

func (s *Server) handleOnboarding(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req onboardingRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	u, err := s.svc.Accounts.CompleteOnboarding(r.Context(), uid, core.Plan(upper(req.Plan)))
	if err != nil {
		writeError(w, r, "complete onboarding", err)
		return
	}
	OK(u).Write(w)
}

func (s *Server) handleStatementExport(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	ref, err := parseMonthParam(r)
	if err != nil {
		writeError(w, r, "export statement", err)
		return
	}
	b, err := s.svc.Exports.MonthlyStatement(r.Context(), uid, ref)
	if err != nil {
		writeError(w, r, "export statement", err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="statement-%s.xlsx"`, core.MonthKey(ref)))
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}
