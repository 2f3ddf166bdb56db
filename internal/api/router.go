package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/notifyhub/garage-controller/internal/api/handler"
	apimw "github.com/notifyhub/garage-controller/internal/api/middleware"
	"github.com/notifyhub/garage-controller/internal/repository"
	"github.com/notifyhub/garage-controller/internal/service"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	svc *service.GarageService,
	motion handler.MotionSimulator,
	repo repository.EventRepository,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)            // recover panics, return 500
	r.Use(chimw.RequestSize(1 << 16)) // control endpoints take no body
	r.Use(apimw.RequestID)
	r.Use(apimw.RequestLogger(logger, "/health", "/metrics"))

	// --- handler instances ---
	hh := handler.NewHealthHandler()
	sh := handler.NewStatusHandler(svc)
	eh := handler.NewEventsHandler(repo, logger)
	ch := handler.NewControlHandler(svc, motion, logger)

	// --- routes ---
	r.Get("/health", hh.Health)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", sh.GetStatus)
		r.Get("/events", eh.List)
		r.Post("/door/actuate", ch.ActuateDoor)
		r.Post("/motion/simulate", ch.SimulateMotion)
	})

	return r
}
