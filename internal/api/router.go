package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SetupIngestRouter serves the telemetry boundary, guarded by API keys.
func SetupIngestRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(h.auth.APIKeyMiddleware)
		r.Post("/telemetry", h.HandleTelemetry)
	})

	return r
}

// SetupConsoleRouter serves the admin API and the websocket push channel.
func SetupConsoleRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(h.auth.JWTMiddleware)

			r.Route("/devices", func(r chi.Router) {
				r.Get("/", h.ListDevices)
				r.Post("/", h.CreateDevice)
				r.Get("/{id}", h.GetDevice)
				r.Put("/{id}", h.UpdateDevice)
				r.Delete("/{id}", h.DeleteDevice)
			})

			r.Route("/geofences", func(r chi.Router) {
				r.Get("/", h.ListGeofences)
				r.Post("/", h.CreateGeofence)
				r.Get("/{id}", h.GetGeofence)
				r.Put("/{id}", h.UpdateGeofence)
				r.Put("/{id}/active", h.SetGeofenceActive)
				r.Delete("/{id}", h.DeleteGeofence)
			})

			r.Route("/alerts", func(r chi.Router) {
				r.Get("/", h.ListAlerts)
				r.Post("/{id}/read", h.MarkAlertRead)
				r.Post("/{id}/resolve", h.ResolveAlert)
				r.Delete("/{id}", h.DeleteAlert)
			})

			r.Get("/settings", h.GetSettings)
			r.Put("/settings", h.UpdateSettings)
			r.Get("/stats", h.GetStats)
			r.Get("/analytics", h.GetAnalytics)
			r.Get("/export", h.ExportConfig)
			r.Post("/import", h.ImportConfig)
		})
	})

	r.Get("/ws", h.HandleWebSocket)

	return r
}
