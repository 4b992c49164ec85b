package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"tripai/internal/api/factcheck"
	"tripai/internal/api/itinerary"
)

// Config contains dependencies needed for the router setup
type Config struct {
	ItineraryHandler *itinerary.Handler
	FactCheckHandler *factcheck.Handler
	MetricsHandler   http.Handler
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (logger, requestID, recoverer) are expected
// to be applied *before* mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/itinerary", func(r chi.Router) {
			r.Post("/generate", cfg.ItineraryHandler.Generate)
			r.Post("/revise", cfg.ItineraryHandler.Revise)
		})

		if cfg.FactCheckHandler != nil {
			r.Route("/factcheck", func(r chi.Router) {
				r.Post("/location", cfg.FactCheckHandler.ValidateLocation)
				r.Post("/price", cfg.FactCheckHandler.ValidatePrice)
			})
		}
	})

	return r
}
