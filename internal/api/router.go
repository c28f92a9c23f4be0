package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-booking/internal/catalog"
	"github.com/hackgods/clinic-appointment-booking/internal/metrics"
)

type RouterConfig struct {
	Service  BookingService
	Catalog  catalog.Repository
	Postgres Pinger
	Redis    Pinger // optional
	Log      *zap.Logger
	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer // nil serves the default registry
	Env      string
	Version  string

	CORSAllowedOrigins []string
	RateLimitPerMinute int // per client IP on booking and cancellation, 0 disables
}

func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(MetricsMiddleware(cfg.Metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// Health endpoints
	health := NewHealthHandler(cfg.Postgres, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(cfg.Gatherer))

	// Booking endpoints
	r.Group(func(r chi.Router) {
		if cfg.RateLimitPerMinute > 0 {
			r.Use(httprate.Limit(cfg.RateLimitPerMinute, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					writeError(w, http.StatusTooManyRequests, "rate_limited", "Too many requests, please slow down")
				}),
			))
		}
		r.Post("/book_appointment", bookAppointmentHandler(cfg.Service, log))
		r.Post("/cancel_appointment", cancelAppointmentHandler(cfg.Service, log))
	})
	r.Get("/get_available_slots/{doctor_id}/{date}", availableSlotsHandler(cfg.Service, log))
	r.Get("/get_appointments/{doctor_id}/{date}", listAppointmentsHandler(cfg.Service, log))
	r.Post("/add_patient", addPatientHandler(cfg.Service, log))

	// Catalog endpoints
	r.Get("/get_categories", listCategoriesHandler(cfg.Catalog, log))
	r.Post("/add_category", addCategoryHandler(cfg.Catalog, log))
	r.Get("/get_doctors", listDoctorsHandler(cfg.Catalog, log))
	r.Post("/add_doctor", addDoctorHandler(cfg.Catalog, log))
	r.Get("/get_slots", listSlotsHandler(cfg.Catalog, log))
	r.Post("/add_slot", addSlotHandler(cfg.Catalog, log))

	return r
}
