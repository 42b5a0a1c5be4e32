package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotbook/appointment-api/internal/api"
	"github.com/slotbook/appointment-api/internal/booking"
	"github.com/slotbook/appointment-api/internal/config"
	"github.com/slotbook/appointment-api/internal/db"
	"github.com/slotbook/appointment-api/internal/eventlog"
	"github.com/slotbook/appointment-api/internal/payments"
	redisclient "github.com/slotbook/appointment-api/internal/redis"
	"github.com/slotbook/appointment-api/pkg/logger"
	"github.com/slotbook/appointment-api/pkg/metrics"
)

const version = "1.0.0"

func main() {
	log := logger.New()
	defer func() { _ = log.Sync() }()

	log.Info("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load error", "error", err)
	}

	log.Info("running", "env", cfg.Env, "http_port", cfg.HTTPPort)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Mongo
	mongoClient, err := db.ConnectMongo(rootCtx, cfg.MongoURI)
	if err != nil {
		log.Fatal("mongo connection error", "error", err)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Error("error closing mongo", "error", err)
		}
	}()
	log.Info("connected to MongoDB")

	repo := booking.NewMongoRepository(mongoClient.Database(cfg.MongoDatabase))

	idxCtx, cancelIdx := context.WithTimeout(rootCtx, 10*time.Second)
	err = repo.EnsureIndexes(idxCtx)
	cancelIdx()
	if err != nil {
		log.Fatal("index creation error", "error", err)
	}

	// Connect Postgres for the booking event log, when configured
	var pgPool *pgxpool.Pool
	var events eventlog.Recorder = eventlog.Nop{}
	if cfg.PostgresDSN != "" {
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err = db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		cancelPg()
		if err != nil {
			log.Fatal("postgres connection error", "error", err)
		}
		defer pgPool.Close()

		recorder := eventlog.NewPgRecorder(pgPool)
		initCtx, cancelInit := context.WithTimeout(rootCtx, 10*time.Second)
		err = recorder.Init(initCtx)
		cancelInit()
		if err != nil {
			log.Fatal("event log init error", "error", err)
		}
		events = recorder
		log.Info("connected to Postgres, event log enabled")
	} else {
		log.Warn("POSTGRES_DSN not set, booking event log disabled")
	}

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal("redis connection error", "error", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error("error closing redis", "error", err)
		}
	}()
	log.Info("connected to Redis")

	locker := redisclient.NewRedisDateLocker(rdb, cfg.LockTTL)
	orders := payments.NewRazorpayOrders(cfg.RazorpayKeyID, cfg.RazorpaySecret, cfg.OrderTimeout)
	m := metrics.New("booking")

	svc := booking.NewService(repo, orders, locker, events, m, log, cfg.RazorpaySecret)

	router := api.NewRouter(api.RouterConfig{
		Service:        svc,
		Mongo:          mongoClient,
		PgPool:         pgPool,
		Redis:          rdb,
		Log:            log,
		AdminJWTSecret: cfg.AdminJWTSecret,
		AllowedOrigins: cfg.AllowedOrigins,
		Env:            cfg.Env,
		Version:        version,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-rootCtx.Done()
		log.Info("shutting down api-server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", "error", err)
		}
	}()

	log.Info("listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server error", "error", err)
	}
}
