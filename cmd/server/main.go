package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/examgate/internal/config"
	"github.com/stemsi/examgate/internal/database"
	"github.com/stemsi/examgate/internal/handler"
	"github.com/stemsi/examgate/internal/logger"
	"github.com/stemsi/examgate/internal/repository"
	"github.com/stemsi/examgate/internal/router"
	"github.com/stemsi/examgate/internal/service"
	"github.com/stemsi/examgate/internal/validator"
)

// stores is the storage backend selected by STORE_DRIVER.
type stores struct {
	exams    service.ExamStore
	results  service.ResultStore
	students service.StudentDirectory
	health   handler.Pinger
	close    func()
}

func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.MaxDBConns, log)
		if err != nil {
			return nil, err
		}
		return &stores{
			exams:    repository.NewExamRepository(pool),
			results:  repository.NewResultRepository(pool),
			students: repository.NewStudentRepository(pool),
			health:   pool,
			close:    pool.Close,
		}, nil

	case config.StoreDriverSQLite:
		db, err := database.NewSQLiteDB(ctx, cfg.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		store, err := repository.NewSQLiteStore(ctx, db)
		if err != nil {
			db.Close()
			return nil, err
		}
		return &stores{
			exams:    store,
			results:  store,
			students: store,
			health:   store,
			close:    func() { store.Close() },
		}, nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("store", cfg.StoreDriver).
		Str("log_level", cfg.LogLevel).
		Msg("Starting examgate")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Open Stores ───────────────────────────────────────────────────
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer st.close()

	// ─── Connect to Redis (optional) ───────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	examService := service.NewExamService(st.exams, st.results, rdb, cfg.ExamCacheTTL, log)
	feed := service.NewResultFeed(rdb)
	submissionService := service.NewSubmissionService(examService, st.results, feed, log)
	rankingService := service.NewRankingService(examService, st.results, st.students, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		StudentPortal: handler.NewStudentPortalHandler(examService, submissionService, rankingService, log),
		Results:       handler.NewResultsHandler(rankingService),
		LiveResults:   handler.NewLiveResultsHandler(rankingService, feed, log),
		WS:            handler.NewWSHandler(examService, submissionService, log, cfg.AllowedOrigins),
		Health:        handler.NewHealthHandler(st.health, rdb),
	}

	// ─── Prewarm Redis Cache ──────────────────────────────────────────
	if err := examService.PrewarmCache(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	streams, stopStreams := context.WithCancel(ctx)
	defer stopStreams()
	r := router.SetupRouter(streams, authService, handlers, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Shutdown does not wait for hijacked or streaming connections to go
	// idle on their own; end them as soon as it starts.
	srv.RegisterOnShutdown(stopStreams)

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// In-flight submissions finish their insert before the stores close.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
