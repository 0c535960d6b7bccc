package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/solace-backend/internal/middleware"
	"github.com/AnshRaj112/solace-backend/internal/services"
)

// CreatePost publishes a community post after moderation.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	var in services.PostInput
	if !decode(w, r, &in) {
		return
	}
	post, err := h.Posts.Create(r.Context(), u, middleware.ClientIP(r), in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "Post created", map[string]interface{}{"post": post})
}

// GetPosts returns the feed. Supports category, limit and skip.
func (h *Handler) GetPosts(w http.ResponseWriter, r *http.Request) {
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
	posts, err := h.Posts.List(r.Context(), u.ID, services.PostQuery{
		Category: r.URL.Query().Get("category"), Limit: limit, Skip: skip,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", map[string]interface{}{"posts": posts, "count": len(posts)})
}

func (h *Handler) GetSavedPosts(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	posts, err := h.Posts.Saved(r.Context(), u.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", map[string]interface{}{"posts": posts, "count": len(posts)})
}

func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	post, err := h.Posts.Get(r.Context(), u.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", map[string]interface{}{"post": post})
}

func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	if err := h.Posts.Delete(r.Context(), u, chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Post deleted", nil)
}

func (h *Handler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	res, err := h.Posts.ToggleLike(r.Context(), u.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", map[string]interface{}{"liked": res.Active, "likes_count": res.LikesCount})
}

func (h *Handler) ToggleSave(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	res, err := h.Posts.ToggleSave(r.Context(), u.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", map[string]interface{}{"saved": res.Active})
}

// TogglePin pins or unpins a post. Admins only.
func (h *Handler) TogglePin(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	res, err := h.Posts.TogglePin(r.Context(), u, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", map[string]interface{}{"pinned": res.Active})
}

type commentRequest struct {
	Content string `json:"content"`
}

func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	var req commentRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := h.Posts.AddComment(r.Context(), u, middleware.ClientIP(r), chi.URLParam(r, "id"), req.Content)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "Comment added", map[string]interface{}{"comment": c})
}

func (h *Handler) GetComments(w http.ResponseWriter, r *http.Request) {
	if _, found := h.currentUser(w, r); !found {
		return
	}
	comments, err := h.Posts.Comments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", map[string]interface{}{"comments": comments, "count": len(comments)})
}
