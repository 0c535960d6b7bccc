package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/solace-backend/internal/handlers"
)

// Middlewares are applied per route group. ModelLimit guards routes that call
// the language model and may be nil.
type Middlewares struct {
	Auth       func(http.Handler) http.Handler
	ModelLimit func(http.Handler) http.Handler
}

func SetupRoutes(r chi.Router, h *handlers.Handler, mw Middlewares) {
	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(mw.Auth)

		// Community stream
		r.Get("/ws/community", h.CommunityWebSocket)

		r.Route("/api", func(r chi.Router) {
			// Account
			r.Post("/user/sync", h.SyncUser)
			r.Get("/user", h.GetProfile)
			r.Put("/user", h.UpdateProfile)
			r.Delete("/user", h.DeleteAccount)
			r.Get("/user/stats", h.GetUserStats)

			// Companion chat
			r.Route("/chat", func(r chi.Router) {
				r.With(optional(mw.ModelLimit)).Post("/", h.SendChat)
				r.Get("/conversations", h.ListConversations)
				r.Get("/conversations/{id}", h.GetConversation)
				r.Delete("/conversations/{id}", h.DeleteConversation)
			})

			// Journaling
			r.Route("/journal", func(r chi.Router) {
				r.Post("/", h.CreateJournal)
				r.Get("/", h.GetJournals)
				r.Get("/{id}", h.GetJournal)
				r.Put("/{id}", h.UpdateJournal)
				r.Delete("/{id}", h.DeleteJournal)
				r.With(optional(mw.ModelLimit)).Post("/{id}/analyze", h.AnalyzeJournal)
			})

			// Mood tracking and activity
			r.Route("/mood", func(r chi.Router) {
				r.Post("/", h.CreateMood)
				r.Get("/", h.GetMoods)
				r.Get("/stats", h.GetMoodStats)
				r.Delete("/{id}", h.DeleteMood)
			})
			r.Post("/sessions", h.RecordSession)

			// Community forum
			r.Route("/posts", func(r chi.Router) {
				r.Get("/", h.GetPosts)
				r.Post("/", h.CreatePost)
				r.Get("/saved", h.GetSavedPosts)
				r.Get("/{id}", h.GetPost)
				r.Delete("/{id}", h.DeletePost)
				r.Post("/{id}/like", h.ToggleLike)
				r.Post("/{id}/save", h.ToggleSave)
				r.Post("/{id}/pin", h.TogglePin)
				r.Get("/{id}/comments", h.GetComments)
				r.Post("/{id}/comments", h.AddComment)
			})

			// Insights and plans
			r.Get("/insights", h.GetInsights)
			r.With(optional(mw.ModelLimit)).Post("/insights/generate", h.GenerateInsights)
			r.Delete("/insights/{id}", h.DeleteInsight)

			r.Route("/therapy-plans", func(r chi.Router) {
				r.Get("/", h.GetTherapyPlans)
				r.With(optional(mw.ModelLimit)).Post("/generate", h.GenerateTherapyPlan)
				r.Get("/{id}", h.GetTherapyPlan)
				r.Patch("/{id}", h.UpdateTherapyPlan)
				r.Delete("/{id}", h.DeleteTherapyPlan)
			})

			// File upload
			r.Post("/uploads", h.UploadImage)

			// Admin
			r.Get("/admin/moderation-events", h.GetModerationEvents)
			r.Delete("/admin/blocked-ips/{ip}", h.UnblockIP)
		})
	})
}

func optional(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}
