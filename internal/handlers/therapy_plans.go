package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/solace-backend/internal/services"
)

func (h *Handler) GetTherapyPlans(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	plans, err := h.Plans.List(r.Context(), u.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", map[string]interface{}{"plans": plans, "count": len(plans)})
}

// GenerateTherapyPlan creates a plan for an optional focus area.
func (h *Handler) GenerateTherapyPlan(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	var req services.PlanRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	plan, err := h.Plans.Generate(r.Context(), u.ID, req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "Plan created", map[string]interface{}{"plan": plan})
}

func (h *Handler) GetTherapyPlan(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	plan, err := h.Plans.Get(r.Context(), u.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", map[string]interface{}{"plan": plan})
}

func (h *Handler) UpdateTherapyPlan(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	var patch services.PlanPatch
	if !decode(w, r, &patch) {
		return
	}
	plan, err := h.Plans.Update(r.Context(), u.ID, chi.URLParam(r, "id"), patch)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Plan updated", map[string]interface{}{"plan": plan})
}

func (h *Handler) DeleteTherapyPlan(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	if err := h.Plans.Delete(r.Context(), u.ID, chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Plan deleted", nil)
}
