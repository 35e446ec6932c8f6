package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xavierca1/ligue-crm/internal/infra/http/middleware"
)

type Router struct {
	Leads         *LeadHandler
	Conversations *ConversationHandler
	Notifications *NotificationHandler
	Admin         *AdminHandler
	Health        *HealthHandler
	AllowedOrigin []string
}

func (rt Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: rt.AllowedOrigin,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", rt.Health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/leads", func(r chi.Router) {
		r.Post("/", rt.Leads.CaptureLead)
		r.Post("/{leadId}/replies", rt.Leads.RecordReply)
		r.Get("/{leadId}/conversation", rt.Conversations.GetConversation)
	})

	r.Get("/users/{userId}/notifications", rt.Notifications.List)
	r.Post("/users/{userId}/notifications/{id}/read", rt.Notifications.MarkRead)

	r.Route("/admin", func(r chi.Router) {
		r.Post("/followups/run", rt.Admin.RunFollowUps)
		r.Post("/usage/run", rt.Admin.RunUsage)
	})

	return r
}
