package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) GetInsights(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	insights, err := h.Insights.List(r.Context(), u.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", map[string]interface{}{"insights": insights, "count": len(insights)})
}

// GenerateInsights derives fresh insights from the last 30 days.
func (h *Handler) GenerateInsights(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	insights, err := h.Insights.Generate(r.Context(), u.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "Insights generated", map[string]interface{}{"insights": insights, "count": len(insights)})
}

func (h *Handler) DeleteInsight(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	if err := h.Insights.Delete(r.Context(), u.ID, chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Insight deleted", nil)
}
