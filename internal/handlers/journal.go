package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/solace-backend/internal/services"
)

// CreateJournal creates an entry for the caller.
func (h *Handler) CreateJournal(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	var in services.JournalInput
	if !decode(w, r, &in) {
		return
	}
	entry, err := h.Journals.Create(r.Context(), u.ID, in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.invalidateStats(r, u.ID)
	ok(w, http.StatusCreated, "Journal entry created", map[string]interface{}{"journal": entry})
}

// GetJournals lists the caller's entries. Supports limit, skip and tag.
func (h *Handler) GetJournals(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	limit, valid := queryInt(w, r, "limit")
	if !valid {
		return
	}
	skip, valid := queryInt(w, r, "skip")
	if !valid {
		return
	}

	entries, total, err := h.Journals.List(r.Context(), u.ID, services.JournalQuery{
		Limit: limit, Skip: skip, Tag: r.URL.Query().Get("tag"),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", map[string]interface{}{"journals": entries, "total": total})
}

func (h *Handler) GetJournal(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	entry, err := h.Journals.Get(r.Context(), u.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", map[string]interface{}{"journal": entry})
}

func (h *Handler) UpdateJournal(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	var patch services.JournalPatch
	if !decode(w, r, &patch) {
		return
	}
	entry, err := h.Journals.Update(r.Context(), u.ID, chi.URLParam(r, "id"), patch)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Journal entry updated", map[string]interface{}{"journal": entry})
}

func (h *Handler) DeleteJournal(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	if err := h.Journals.Delete(r.Context(), u.ID, chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.invalidateStats(r, u.ID)
	ok(w, http.StatusOK, "Journal entry deleted", nil)
}

// AnalyzeJournal returns the model's sentiment reading of an entry.
func (h *Handler) AnalyzeJournal(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	analysis, err := h.Journals.Analyze(r.Context(), u.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", map[string]interface{}{"analysis": analysis})
}
