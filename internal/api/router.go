// Package api is the HTTP interaction surface of the desk. A chat gateway
// forwards each user interaction as a request carrying the actor headers.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dvloznov/exchange-desk/internal/api/handlers"
	"github.com/dvloznov/exchange-desk/internal/api/middleware"
	"github.com/dvloznov/exchange-desk/internal/desk"
	"github.com/dvloznov/exchange-desk/internal/jobs"
	"github.com/dvloznov/exchange-desk/internal/metrics"
)

// Deps are what the router serves. Gatherer and Metrics may be nil.
type Deps struct {
	Desk     *desk.Desk
	Jobs     jobs.JobStore
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Log      zerolog.Logger
}

// NewRouter wires every route behind the shared middleware.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Log, deps.Metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Content-Type", "Authorization",
			middleware.HeaderActorID, middleware.HeaderActorName, middleware.HeaderActorRoles,
			middleware.HeaderRequestID,
		},
		ExposedHeaders: []string{middleware.HeaderRequestID},
		MaxAge:         3600,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	wizard := handlers.NewWizardHandler(deps.Desk)
	tickets := handlers.NewTicketsHandler(deps.Desk, deps.Log)
	queries := handlers.NewQueriesHandler(deps.Desk)
	blacklist := handlers.NewBlacklistHandler(deps.Desk)
	jobsHandler := handlers.NewJobsHandler(deps.Jobs, deps.Log)

	r.Route("/api", func(r chi.Router) {
		r.Get("/total", queries.Total)
		r.Get("/fees", queries.Fees)
		r.Get("/vouches/{user}", queries.Vouches)
		r.Get("/blacklist/{user}", blacklist.Check)

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", jobsHandler.ListJobs)
			r.Get("/{id}", jobsHandler.GetJob)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Actor)

			r.Route("/wizard", func(r chi.Router) {
				r.Post("/", wizard.Start)
				r.Delete("/", wizard.Cancel)
				r.Post("/amount", wizard.Amount)
				r.Post("/confirm", wizard.Confirm)
				r.Post("/{step}", wizard.Choice)
			})

			r.Route("/tickets", func(r chi.Router) {
				r.Get("/", tickets.ListTickets)
				r.Post("/{key}/claim", tickets.Claim)
				r.Post("/{key}/close", tickets.Close)
				r.Post("/{key}/middleman", tickets.Middleman)
			})

			r.Post("/vouches/{user}", queries.Vouch)
			r.Put("/blacklist/{user}", blacklist.Add)
			r.Delete("/blacklist/{user}", blacklist.Remove)
		})
	})

	return r
}
