package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/solace-backend/internal/models"
)

type createMoodRequest struct {
	Mood *float64 `json:"mood"`
	Note string   `json:"note"`
}

func (h *Handler) CreateMood(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	var req createMoodRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Mood == nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false, "message": "mood is required", "field": "mood",
		})
		return
	}
	rec, err := h.Moods.Create(r.Context(), u.ID, *req.Mood, req.Note)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.invalidateStats(r, u.ID)
	ok(w, http.StatusCreated, "Mood recorded", map[string]interface{}{"mood": rec})
}

// GetMoods lists moods of the last `days` days (default 30), newest first.
func (h *Handler) GetMoods(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	days, valid := queryInt(w, r, "days")
	if !valid {
		return
	}
	moods, err := h.Moods.List(r.Context(), u.ID, days)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if moods == nil {
		moods = []models.MoodRecord{}
	}
	ok(w, http.StatusOK, "", map[string]interface{}{"moods": moods, "count": len(moods)})
}

func (h *Handler) GetMoodStats(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	st, err := h.Moods.Stats(r.Context(), u.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", map[string]interface{}{"stats": st})
}

func (h *Handler) DeleteMood(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	if err := h.Moods.Delete(r.Context(), u.ID, chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.invalidateStats(r, u.ID)
	ok(w, http.StatusOK, "Mood deleted", nil)
}

type recordSessionRequest struct {
	Type     models.SessionType `json:"type"`
	Duration int                `json:"duration"`
}

// RecordSession logs a client-reported activity session.
func (h *Handler) RecordSession(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	var req recordSessionRequest
	if !decode(w, r, &req) {
		return
	}
	rec, err := h.Sessions.Record(r.Context(), u.ID, req.Type, req.Duration)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.invalidateStats(r, u.ID)
	ok(w, http.StatusCreated, "Session recorded", map[string]interface{}{"session": rec})
}
