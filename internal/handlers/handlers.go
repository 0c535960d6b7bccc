// Package handlers exposes the services over HTTP with a
// {success, message, ...} JSON envelope.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/AnshRaj112/solace-backend/internal/middleware"
	"github.com/AnshRaj112/solace-backend/internal/models"
	"github.com/AnshRaj112/solace-backend/internal/services"
	"github.com/AnshRaj112/solace-backend/pkg/utils"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// AuditStore is the read side of the moderation audit log.
type AuditStore interface {
	Recent(ctx context.Context, userID string, limit int64) ([]models.ModerationEvent, error)
	CountSince(ctx context.Context, userID string, since time.Time) (int64, error)
	DeleteUser(ctx context.Context, userID string) error
}

// IPUnblocker lifts a rate-limit block.
type IPUnblocker interface {
	Unblock(ctx context.Context, ip string) error
}

// Deps are the collaborators of Handler. Uploader, Audit and Blocker may be
// nil; their routes then answer 503.
type Deps struct {
	Users    *services.UserService
	Moods    *services.MoodService
	Sessions *services.SessionService
	Journals *services.JournalService
	Chat     *services.ChatService
	Posts    *services.PostService
	Stats    *services.StatsService
	Insights *services.InsightService
	Plans    *services.TherapyPlanService
	Hub      *services.CommunityHub

	Uploader services.ImageUploader
	Audit    AuditStore
	Blocker  IPUnblocker

	AllowedOrigins []string
	Log            *zap.SugaredLogger
}

type Handler struct {
	Deps
	upgrader websocket.Upgrader
}

func New(d Deps) *Handler {
	if d.Log == nil {
		d.Log = zap.NewNop().Sugar()
	}
	h := &Handler{Deps: d}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// ok writes a success envelope with extra top-level fields.
func ok(w http.ResponseWriter, status int, message string, fields map[string]interface{}) {
	body := map[string]interface{}{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, status, body)
}

func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{"success": false, "message": message})
}

// respondError maps service errors to status codes. Internal errors are
// logged and answered with a generic message.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *utils.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false, "message": ve.Message, "field": ve.Field,
		})
	case errors.Is(err, services.ErrNotFound):
		fail(w, http.StatusNotFound, "Not found")
	case errors.Is(err, services.ErrForbidden):
		fail(w, http.StatusForbidden, "You don't have permission to do that")
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
	default:
		h.Log.Errorw("request failed",
			"request_id", middleware.RequestID(r.Context()),
			"method", r.Method, "path", r.URL.Path, "error", err)
		fail(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
	}
}

// decode reads a JSON body into dest, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// currentUser resolves the caller's local account, creating it on first use
// from the token claims.
func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	id, found := middleware.IdentityFrom(r.Context())
	if !found {
		fail(w, http.StatusUnauthorized, "Authentication required")
		return nil, false
	}
	u, err := h.Users.GetByExternalID(r.Context(), id.ExternalID)
	if errors.Is(err, services.ErrNotFound) {
		u, err = h.Users.Sync(r.Context(), id.ExternalID, services.SyncInput{Email: id.Email, Name: id.Name})
	}
	if err != nil {
		h.respondError(w, r, err)
		return nil, false
	}
	return u, true
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		fail(w, http.StatusBadRequest, name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}

// invalidateStats drops the cached dashboard after the user's activity changes.
func (h *Handler) invalidateStats(r *http.Request, userID string) {
	if h.Stats != nil {
		h.Stats.Invalidate(r.Context(), userID)
	}
}

// Health is the liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ok(w, http.StatusOK, "", map[string]interface{}{"status": "ok"})
}
