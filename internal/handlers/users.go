package handlers

import (
	"net/http"

	"github.com/AnshRaj112/solace-backend/internal/middleware"
	"github.com/AnshRaj112/solace-backend/internal/services"
)

// SyncUser upserts the local account for the verified caller. Body fields
// override the token claims when present.
func (h *Handler) SyncUser(w http.ResponseWriter, r *http.Request) {
	id, found := middleware.IdentityFrom(r.Context())
	if !found {
		fail(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	in := services.SyncInput{Email: id.Email, Name: id.Name}
	if r.ContentLength != 0 {
		var body services.SyncInput
		if !decode(w, r, &body) {
			return
		}
		if body.Email != "" {
			in.Email = body.Email
		}
		if body.Name != "" {
			in.Name = body.Name
		}
		in.ImageURL = body.ImageURL
	}

	u, err := h.Users.Sync(r.Context(), id.ExternalID, in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "User synced", map[string]interface{}{"user": u})
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	ok(w, http.StatusOK, "", map[string]interface{}{"user": u})
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	var in services.UpdateInput
	if !decode(w, r, &in) {
		return
	}
	updated, err := h.Users.Update(r.Context(), u.ID, in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Profile updated", map[string]interface{}{"user": updated})
}

// GetUserStats returns the weekly dashboard.
func (h *Handler) GetUserStats(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	summary, err := h.Stats.Weekly(r.Context(), u.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", map[string]interface{}{"stats": summary})
}

// DeleteAccount removes the caller and all of their data.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	if err := h.Users.DeleteAccount(r.Context(), u.ID); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.invalidateStats(r, u.ID)
	if h.Insights != nil {
		h.Insights.Invalidate(r.Context(), u.ID)
	}
	if h.Audit != nil {
		if err := h.Audit.DeleteUser(r.Context(), u.ID); err != nil {
			h.Log.Warnw("failed to delete moderation events", "user_id", u.ID, "error", err)
		}
	}
	ok(w, http.StatusOK, "Account deleted", nil)
}
