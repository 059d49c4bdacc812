// Command server runs the contact log HTTP API.
//
// Configuration comes from the environment (optionally a .env file). On start
// it opens and migrates the SQLite database, seeds the type_of_contact
// vocabulary, purges expired idempotency records, and serves until SIGINT or
// SIGTERM, then drains in-flight requests.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-contactlog-backend/internal/auth"
	"github.com/tbourn/go-contactlog-backend/internal/config"
	"github.com/tbourn/go-contactlog-backend/internal/domain"
	"github.com/tbourn/go-contactlog-backend/internal/flash"
	httpapi "github.com/tbourn/go-contactlog-backend/internal/http"
	"github.com/tbourn/go-contactlog-backend/internal/observability"
	"github.com/tbourn/go-contactlog-backend/internal/repo"
	"github.com/tbourn/go-contactlog-backend/internal/services"
	"github.com/tbourn/go-contactlog-backend/internal/sysutil"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	appVersion := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)
	sysutil.ConfigureLogger(sysutil.LoggerOptions{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: cfg.OTEL.ServiceName,
		Version: appVersion,
	})
	gin.SetMode(cfg.GinMode)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(rootCtx, cfg.OTEL, appVersion)
	if err != nil {
		log.Fatal().Err(err).Msg("otel init failed")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	if cfg.SeedTaxonomy {
		n, err := httpapi.NewTaxonomyService(db).SeedDefaults(rootCtx, domain.VocabularyTypeOfContact, services.DefaultContactTypes)
		if err != nil {
			log.Fatal().Err(err).Msg("seed taxonomy")
		}
		if n > 0 {
			log.Info().Int("terms", n).Str("vocabulary", domain.VocabularyTypeOfContact).Msg("seeded taxonomy")
		}
	}

	if n, err := repo.PurgeExpiredIdempotency(rootCtx, db, time.Now().UTC()); err != nil {
		log.Warn().Err(err).Msg("purge idempotency records")
	} else if n > 0 {
		log.Info().Int64("purged", n).Msg("expired idempotency records removed")
	}

	var store flash.Store
	if cfg.Flash.RedisAddr != "" {
		rdb, err := flash.OpenRedis(rootCtx, flash.RedisConfig{Addr: cfg.Flash.RedisAddr})
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Flash.RedisAddr).Msg("redis init failed")
		}
		defer rdb.Close()
		store = flash.NewRedisStore(rdb, cfg.Flash.TTL)
	} else {
		store = flash.NewMemoryStore(cfg.Flash.TTL)
	}

	var authManager *auth.Manager
	if cfg.Auth.JWTSecret != "" {
		authManager, err = auth.NewManager(cfg.Auth)
		if err != nil {
			log.Fatal().Err(err).Msg("auth init failed")
		}
	} else {
		log.Warn().Msg("JWT_SECRET not set, trusting X-User-ID headers")
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, db, cfg, store, authManager)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("base", cfg.APIBasePath).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info().Msg("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
