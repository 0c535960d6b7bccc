package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/solace-backend/internal/middleware"
	"github.com/AnshRaj112/solace-backend/internal/services"
)

// SendChat runs one turn with the companion. Crisis replies are answered
// with 200 and crisis=true.
func (h *Handler) SendChat(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	var req services.ChatRequest
	if !decode(w, r, &req) {
		return
	}

	reply, err := h.Chat.Send(r.Context(), u.ID, middleware.ClientIP(r), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if !reply.Crisis {
		h.invalidateStats(r, u.ID)
	}
	ok(w, http.StatusOK, "", map[string]interface{}{
		"conversation_id":   reply.ConversationID,
		"reply":             reply.Reply,
		"crisis":            reply.Crisis,
		"flagged":           reply.Flagged,
		"user_message":      reply.UserMessage,
		"assistant_message": reply.Assistant,
	})
}

func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	convs, err := h.Chat.ListConversations(r.Context(), u.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", map[string]interface{}{"conversations": convs, "count": len(convs)})
}

func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	conv, err := h.Chat.GetConversation(r.Context(), u.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", map[string]interface{}{"conversation": conv})
}

func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	u, found := h.currentUser(w, r)
	if !found {
		return
	}
	if err := h.Chat.DeleteConversation(r.Context(), u.ID, chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.invalidateStats(r, u.ID)
	ok(w, http.StatusOK, "Conversation deleted", nil)
}
