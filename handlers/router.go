package handlers

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig carries everything the HTTP surface is built from
type RouterConfig struct {
	Reports        *ReportHandler
	Timetables     *TimetableHandler
	Health         *HealthHandler
	Logger         *slog.Logger
	AllowedOrigins []string
	RequestTimeout time.Duration
	// StaticDir is served at / when it names an existing directory.
	StaticDir string
}

// NewRouter wires the middleware stack and every route.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", cfg.Health.Health)
	r.Get("/healthz", cfg.Health.Liveness)

	r.Get("/get_stops", cfg.Timetables.GetStops)
	r.Get("/get_timetable", cfg.Timetables.GetTimetable)
	r.Get("/get_routes_for_stop", cfg.Timetables.GetRoutesForStop)
	r.Get("/get_arrivals", cfg.Timetables.GetArrivals)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("pong"))
		})
		r.Get("/q1", cfg.Reports.BusiestStops)
		r.Get("/q2", cfg.Reports.RouteDurations)
		r.Get("/q3", cfg.Reports.TransferPoints)
		r.Get("/q4", cfg.Reports.HourlyFrequency)
	})

	if cfg.StaticDir != "" {
		if info, err := os.Stat(cfg.StaticDir); err == nil && info.IsDir() {
			r.Handle("/*", http.FileServer(http.Dir(cfg.StaticDir)))
		} else if cfg.Logger != nil {
			cfg.Logger.Warn("static directory not found, not serving files", slog.String("static_dir", cfg.StaticDir))
		}
	}

	return r
}
