package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/astroline/consult-agent-go/internal/background"
	"github.com/astroline/consult-agent-go/internal/bridge"
	"github.com/astroline/consult-agent-go/internal/channel"
	"github.com/astroline/consult-agent-go/internal/config"
	"github.com/astroline/consult-agent-go/internal/coordinator"
	"github.com/astroline/consult-agent-go/internal/database"
	"github.com/astroline/consult-agent-go/internal/ingress"
	"github.com/astroline/consult-agent-go/internal/jobs"
	"github.com/astroline/consult-agent-go/internal/middleware"
	"github.com/astroline/consult-agent-go/internal/navigator"
	"github.com/astroline/consult-agent-go/internal/notify"
	"github.com/astroline/consult-agent-go/internal/presenter"
	"github.com/astroline/consult-agent-go/internal/redis"
	"github.com/astroline/consult-agent-go/internal/repository"
	"github.com/astroline/consult-agent-go/internal/shell"
	"github.com/astroline/consult-agent-go/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	sessionRepo := repository.NewSessionStateRepository(db.DB)
	sessionStore := store.New(sessionRepo, cfg.OwnerID)

	bridgeClient := bridge.NewClient(cfg.BridgeBaseURL)
	registry := channel.NewRegistry(bridgeClient)
	registry.EnsureChannels(context.Background())

	present := presenter.New(bridgeClient, registry, cfg.RequestExpiry())
	nav := navigator.NewRedisNavigator(redisClient, cfg.OwnerID)
	notifier := notify.NewClient(cfg.APIBaseURL, cfg.DeviceToken)

	shellController := shell.NewController(sessionStore)

	coord := coordinator.New(
		sessionStore, present, shellController, shellController,
		nav, notifier, cfg.RequestExpiry(),
	)

	// Repopulate session state before any event can be delivered, so the
	// return-to-session affordance is correct from the first snapshot.
	sessionStore.Restore(context.Background())

	backgroundHandler := background.NewHandler(registry, present, sessionRepo, cfg.OwnerID)
	dispatcher := ingress.NewDispatcher(coord, shellController, backgroundHandler)
	ingressHandler := ingress.NewHandler(dispatcher, coord, shellController)

	socketListener := ingress.NewSocketListener(redisClient, dispatcher, cfg.OwnerID)
	socketListener.Start()
	defer socketListener.Stop()

	authMiddleware := middleware.NewAuthMiddleware(cfg.DeviceToken)
	rateLimitMiddleware := middleware.NewRedisRateLimitMiddleware(redisClient.Client, cfg.OwnerID, cfg.IngressRatePerMin)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMiddleware.Handler)
		r.Use(rateLimitMiddleware.Handler)
		r.Mount("/", ingressHandler.Routes())
	})

	sweepJob := jobs.NewSweepJob(sessionRepo, cfg.SessionMaxAge(), config.SweepJobInterval)
	sweepJob.Start()
	defer sweepJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Str("ownerId", cfg.OwnerID).Msg("starting consult agent")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down agent")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("agent stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
