package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	cats, err := s.svc.Categories.ListCategories(r.Context(), uid)
	if err != nil {
		writeError(w, r, "list categories", err)
		return
	}
	OK(cats).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req categoryRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	created, err := s.svc.Categories.CreateCategory(r.Context(), uid, req.toCategory())
	if err != nil {
		writeError(w, r, "create category", err)
		return
	}
	Created(created).Write(w)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req categoryRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	updated, err := s.svc.Categories.UpdateCategory(r.Context(), uid, chi.URLParam(r, "id"), req.toPatch())
	if err != nil {
		writeError(w, r, "update category", err)
		return
	}
	OK(updated).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := s.svc.Categories.DeleteCategory(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, "delete category", err)
		return
	}
	NewResponse().Write(w)
}

func (s *Server) handleSeedCategories(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	added, err := s.svc.Categories.SeedDefaultCategories(r.Context(), uid)
	if err != nil {
		writeError(w, r, "seed categories", err)
		return
	}
	OK(map[string]int{"added": added}).Write(w)
}

func (s *Server) handleListPlanned(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	ref, err := parseMonthParam(r)
	if err != nil {
		writeError(w, r, "list planned purchases", err)
		return
	}
	list, err := s.svc.Planned.ListPlannedPurchases(r.Context(), uid, ref)
	if err != nil {
		writeError(w, r, "list planned purchases", err)
		return
	}
	OK(list).Write(w)
}

// handleSavePlanned creates a purchase when the body has no id and updates
// the owner's purchase otherwise.
func (s *Server) handleSavePlanned(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req plannedRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	p, err := req.toPlanned()
	if err != nil {
		writeError(w, r, "save planned purchase", err)
		return
	}
	saved, err := s.svc.Planned.CreateOrUpdatePlannedPurchase(r.Context(), uid, p)
	if err != nil {
		writeError(w, r, "save planned purchase", err)
		return
	}
	if p.ID == "" {
		Created(saved).Write(w)
		return
	}
	OK(saved).Write(w)
}

func (s *Server) handleTogglePlanned(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	p, err := s.svc.Planned.TogglePlannedPurchaseStatus(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "toggle planned purchase", err)
		return
	}
	OK(p).Write(w)
}

func (s *Server) handleDeletePlanned(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := s.svc.Planned.DeletePlannedPurchase(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, "delete planned purchase", err)
		return
	}
	NewResponse().Write(w)
}
