// Package api exposes the engine over HTTP for the map UI.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/geoassist/internal/assist"
	"github.com/sells-group/geoassist/internal/model"
	"github.com/sells-group/geoassist/internal/report"
	"github.com/sells-group/geoassist/internal/supersede"
)

// Service is the engine surface the handlers call.
type Service interface {
	Facts(ctx context.Context, q model.PlaceQuery) (model.ResolvedPlace, model.FactRecord, error)
	Compare(ctx context.Context, cityA, cityB string) (model.ComparisonResult, error)
	Geocode(ctx context.Context, text string) ([]model.PlaceCandidate, error)
	Reverse(ctx context.Context, lat, lon float64, zoom int) (model.ResolvedPlace, error)
	Suggest(ctx context.Context, text string, cityOnly bool) ([]model.PlaceCandidate, error)
	Shelters(ctx context.Context, bbox string) (*assist.ShelterResult, error)
}

// SessionHeader identifies a browser session for request supersession.
const SessionHeader = "X-Session-ID"

// Server holds the handler dependencies.
type Server struct {
	svc         Service
	reports     report.Writer
	sessions    *supersede.Registry
	corsOrigins []string
}

// Option configures a Server.
type Option func(*Server)

// WithReportWriter enables POST /api/report.
func WithReportWriter(w report.Writer) Option {
	return func(s *Server) {
		s.reports = w
	}
}

// WithCORSOrigins sets the allowed browser origins. Default is "*".
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.corsOrigins = origins
		}
	}
}

// NewServer creates a Server for svc.
func NewServer(svc Service, opts ...Option) *Server {
	s := &Server{
		svc:         svc,
		sessions:    supersede.New(),
		corsOrigins: []string{"*"},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", SessionHeader, RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.supersede)
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/geocode", s.handleGeocode)
		r.Get("/reverse", s.handleReverse)
		r.Get("/suggest", s.handleSuggest)
		r.Get("/shelters", s.handleShelters)
		r.Post("/facts", s.handleFacts)
		r.Post("/compare", s.handleCompare)
		r.Post("/report", s.handleReport)
	})
	return r
}
