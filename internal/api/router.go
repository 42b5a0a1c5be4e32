package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/slotbook/appointment-api/pkg/logger"
)

type RouterConfig struct {
	Service        BookingService
	Mongo          *mongo.Client
	PgPool         *pgxpool.Pool
	Redis          *redis.Client
	Log            logger.Logger
	AdminJWTSecret string
	AllowedOrigins []string
	Env            string
	Version        string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// Health endpoints
	health := NewHealthHandler(cfg.Mongo, cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	// Slot catalog for the booking client
	r.Get("/slots", slotsHandler(cfg.Service))

	// Appointment endpoints
	r.Route("/appointments", func(r chi.Router) {
		r.Post("/create-order", createOrderHandler(cfg.Service))
		r.Post("/verify-payment", verifyPaymentHandler(cfg.Service))
		r.Post("/", createAppointmentHandler(cfg.Service))
		r.Get("/", appointmentsIndexHandler(cfg.Service, cfg.AdminJWTSecret))

		r.Group(func(r chi.Router) {
			r.Use(AdminJWT(cfg.AdminJWTSecret))
			r.Get("/{id}", getAppointmentHandler(cfg.Service))
			r.Put("/{id}", updateAppointmentHandler(cfg.Service))
			r.Patch("/{id}/attempted", attemptedHandler(cfg.Service))
			r.Delete("/{id}", deleteAppointmentHandler(cfg.Service))
		})
	})

	return r
}
