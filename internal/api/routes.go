package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes builds the router for cmd/server.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-User-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", h.ListCampaigns)
			r.Post("/", h.CreateCampaign)
			r.Get("/{id}", h.GetCampaign)
			r.Put("/{id}", h.UpdateCampaign)
			r.Delete("/{id}", h.DeleteCampaign)
			r.Post("/{id}/schedule", h.ScheduleCampaign)
			r.Post("/{id}/resend-failed", h.ResendFailed)
			r.Get("/{id}/report", h.CampaignReport)
		})

		r.Route("/lists", func(r chi.Router) {
			r.Get("/", h.ListContactLists)
			r.Post("/", h.CreateContactList)
			r.Delete("/{id}", h.DeleteContactList)
			r.Get("/{id}/contacts", h.ListContacts)
			r.Post("/{id}/contacts", h.AddContact)
			r.Delete("/{id}/contacts/{contactID}", h.DeleteContact)
		})

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", h.ListTemplates)
			r.Post("/", h.CreateTemplate)
			r.Put("/{id}", h.UpdateTemplate)
			r.Delete("/{id}", h.DeleteTemplate)
		})

		r.Route("/contracts", func(r chi.Router) {
			r.Get("/", h.ListContracts)
			r.Post("/", h.CreateContract)
			r.Put("/{id}", h.UpdateContract)
			r.Delete("/{id}", h.DeleteContract)
		})

		r.Route("/incomes", func(r chi.Router) {
			r.Get("/", h.ListIncomes)
			r.Post("/", h.CreateIncome)
			r.Delete("/{id}", h.DeleteIncome)
			r.Get("/report", h.IncomeReport)
		})

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", h.ListDocuments)
			r.Post("/", h.CreateDocument)
			r.Delete("/{id}", h.DeleteDocument)
		})

		r.Route("/services", func(r chi.Router) {
			r.Get("/", h.ListServices)
			r.Post("/", h.CreateService)
			r.Put("/{id}", h.UpdateService)
			r.Delete("/{id}", h.DeleteService)
		})

		r.Post("/ai/draft/{kind}", h.Draft)

		r.Post("/google/token", h.SaveGoogleToken)
		r.Delete("/google/token", h.DeleteGoogleToken)
	})

	return r
}
