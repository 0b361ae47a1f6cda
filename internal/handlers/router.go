package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"nutristreak/internal/middleware"
	"nutristreak/internal/realtime"
	"nutristreak/internal/services"
)

// RouterDeps are the collaborators the HTTP surface is built from.
type RouterDeps struct {
	Store          Store
	Tracker        *services.Tracker
	Hub            *realtime.Hub
	Logger         *zap.Logger
	Auth           func(http.Handler) http.Handler
	AllowedOrigins []string
}

func NewRouter(d RouterDeps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.ZapRequestLogger(d.Logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	health := NewHealthHandler(d.Store, d.Logger)
	entries := NewEntryHandler(d.Store, d.Tracker, d.Logger)
	water := NewWaterHandler(d.Store, d.Tracker, d.Logger)
	goals := NewGoalsHandler(d.Store, d.Tracker, d.Logger)
	dashboard := NewDashboardHandler(d.Tracker, d.Logger)
	reports := NewReportHandler(d.Tracker, d.Logger)
	achievements := NewAchievementHandler(d.Tracker, d.Logger)
	imports := NewImportHandler(d.Store, d.Tracker, d.Logger)

	r.Get("/healthz", health.Healthz)

	r.Route("/api", func(api chi.Router) {
		api.Use(d.Auth)
		api.Post("/entries", entries.Create)
		api.Get("/entries", entries.List)
		api.Delete("/entries/{id}", entries.Delete)
		api.Post("/water", water.Add)
		api.Get("/goals", goals.Get)
		api.Put("/goals", goals.Put)
		api.Get("/dashboard", dashboard.Get)
		api.Get("/reports/weekly", reports.Weekly)
		api.Get("/reports/monthly", reports.Monthly)
		api.Get("/achievements", achievements.List)
		api.Post("/import", imports.Import)
		if d.Hub != nil {
			api.Get("/ws", NewRealtimeHandler(d.Hub, d.Logger).Subscribe)
		}
	})
	return r
}
