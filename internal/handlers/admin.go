package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/solace-backend/internal/models"
)

const defaultEventLimit = 100

func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	u, found := h.currentUser(w, r)
	if !found {
		return nil, false
	}
	if !u.IsAdmin() {
		fail(w, http.StatusForbidden, "Admin access required")
		return nil, false
	}
	return u, true
}

// GetModerationEvents lists recent flagged content, newest first. With
// user_id it also reports that user's count over the last 24 hours.
func (h *Handler) GetModerationEvents(w http.ResponseWriter, r *http.Request) {
	if _, found := h.requireAdmin(w, r); !found {
		return
	}
	if h.Audit == nil {
		fail(w, http.StatusServiceUnavailable, "Moderation log is not configured")
		return
	}
	limit, valid := queryInt(w, r, "limit")
	if !valid {
		return
	}
	if limit == 0 || limit > 500 {
		limit = defaultEventLimit
	}

	userID := r.URL.Query().Get("user_id")
	events, err := h.Audit.Recent(r.Context(), userID, int64(limit))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	fields := map[string]interface{}{"events": events, "count": len(events)}
	if userID != "" {
		n, err := h.Audit.CountSince(r.Context(), userID, time.Now().UTC().Add(-24*time.Hour))
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		fields["last_24h"] = n
	}
	ok(w, http.StatusOK, "", fields)
}

// UnblockIP lifts a rate-limit block.
func (h *Handler) UnblockIP(w http.ResponseWriter, r *http.Request) {
	if _, found := h.requireAdmin(w, r); !found {
		return
	}
	if h.Blocker == nil {
		fail(w, http.StatusServiceUnavailable, "Rate limiting is not configured")
		return
	}
	ip := chi.URLParam(r, "ip")
	if err := h.Blocker.Unblock(r.Context(), ip); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.Log.Infow("ip unblocked", "ip", ip)
	ok(w, http.StatusOK, "IP unblocked", nil)
}
