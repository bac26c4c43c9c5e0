package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gate-controller/internal/config"
	"gate-controller/internal/db"
	"gate-controller/internal/domain/gate"
	gatehttp "gate-controller/internal/http"
	"gate-controller/internal/pipeline"
	"gate-controller/internal/repository"
	"gate-controller/internal/service"
	"gate-controller/internal/vision"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Store: connect, migrate, seed the whitelist.
	gormDB, err := db.Open(cfg.Store, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}

	repo := repository.NewAccessRepository(gormDB)
	accessService := service.NewAccessService(repo, log)

	seed := make([]gate.AuthorizationRecord, 0, len(cfg.Seed))
	for _, rec := range cfg.Seed {
		seed = append(seed, gate.AuthorizationRecord{Plate: rec.Plate, HolderName: rec.HolderName})
	}
	if err := accessService.SeedWhitelist(ctx, seed); err != nil {
		log.Fatal().Err(err).Msg("failed to seed whitelist")
	}

	// Vision capabilities: a session must not start with a missing one.
	remote := vision.NewRemoteClient(cfg.Vision.InferenceURL, cfg.Pipeline.InferenceTimeout)
	if err := remote.Ping(ctx); err != nil {
		log.Fatal().Err(err).Str("url", cfg.Vision.InferenceURL).Msg("model server unavailable")
	}
	labels, err := remote.FetchLabels(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to fetch detector labels")
	}
	adapter := vision.NewAdapter(remote, labels, cfg.Vision.PlateLabel, cfg.Vision.MinConfidence)

	if cfg.Vision.FrameDir == "" {
		log.Fatal().Msg("vision.frame_dir is not set: no frame source to open")
	}
	source, err := vision.NewDirSource(cfg.Vision.FrameDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open frame source")
	}

	// Admin/audit HTTP API.
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: cfg.HTTP.AllowOrigins,
		AllowMethods: []string{"GET", "POST", "DELETE"},
		AllowHeaders: []string{"Authorization", "Content-Type"},
	}))
	gatehttp.NewHandler(accessService, log).Register(router, gatehttp.JWTAuth(cfg.HTTP.JWTSecret))

	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("admin API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("admin API server failed")
		}
	}()

	// Gate session.
	sessionID := uuid.NewString()
	p := pipeline.New(sessionID, adapter, remote, repo,
		pipeline.NewThrottler(cfg.Pipeline.RecognitionInterval),
		cfg.Pipeline.InferenceTimeout, log)
	controller := pipeline.NewController(source, p,
		pipeline.LogRenderer{Log: log}, cfg.Pipeline.GrantGracePeriod, log)

	log.Info().Str("session_id", sessionID).Msg("gate session starting")
	result, err := controller.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("gate session failed")
	}
	log.Info().Str("result", string(result)).Msg("gate session ended")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("admin API shutdown failed")
	}
}
