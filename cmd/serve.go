package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ahlan-reserve/internal/backend"
	"ahlan-reserve/internal/clients"
	"ahlan-reserve/internal/config"
	"ahlan-reserve/internal/logger"
	"ahlan-reserve/internal/metrics"
	"ahlan-reserve/internal/render"
	"ahlan-reserve/internal/repository"
	"ahlan-reserve/internal/service"
	"ahlan-reserve/internal/transport/auth"
	"ahlan-reserve/internal/transport/rest"
	"ahlan-reserve/internal/transport/websocket"
	"ahlan-reserve/pkg/database/postgres"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the reservation HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := logger.New(cfg.Log)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = log.Sync() }()
			zap.ReplaceGlobals(log)

			return serve(cmd.Context(), cfg, log)
		},
	}
}

func serve(parent context.Context, cfg config.AppConfig, log *zap.Logger) error {
	// top-level context which we can cancel on shutdown
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	m := metrics.New()

	api, err := backend.NewClient(backend.Config{
		BaseURL:           cfg.Backend.BaseURL,
		Timeout:           cfg.Backend.Timeout,
		RequestsPerSecond: cfg.Backend.RequestsPerSecond,
		Burst:             cfg.Backend.Burst,
	}, log, m)
	if err != nil {
		return fmt.Errorf("backend client: %w", err)
	}

	var (
		store       service.SessionStore
		memoryStore *service.MemoryStore
		redisClient *clients.RedisClient
	)
	switch cfg.Reservation.SessionStore {
	case "redis":
		redisClient, err = clients.NewRedisClient(ctx, clients.RedisConfig{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			MaxRetries:  cfg.Redis.MaxRetries,
			DialTimeout: time.Duration(cfg.Redis.DialTimeout) * time.Second,
			Timeout:     time.Duration(cfg.Redis.Timeout) * time.Second,
			Prefix:      cfg.Redis.Prefix,
		})
		if err != nil {
			return fmt.Errorf("redis init: %w", err)
		}
		defer redisClient.Close()
		store = service.NewRedisStore(redisClient, cfg.Reservation.SessionTTL)
	default:
		memoryStore = service.NewMemoryStore(cfg.Reservation.SessionTTL)
		store = memoryStore
	}

	var (
		artifactStore clients.ArtifactStore
		localStorage  *clients.LocalStorage
	)
	switch cfg.Storage.Driver {
	case "s3":
		s3, err := clients.NewS3Storage(clients.S3Config{
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Bucket:          cfg.S3.Bucket,
			UseSSL:          cfg.S3.UseSSL,
			Region:          cfg.S3.Region,
			Prefix:          cfg.S3.Prefix,
			URLExpiry:       cfg.S3.URLExpiry,
		})
		if err != nil {
			return fmt.Errorf("s3 init: %w", err)
		}
		artifactStore = s3
	default:
		localStorage, err = clients.NewLocalStorage(cfg.Storage.LocalDir, cfg.Storage.PublicPrefix, cfg.Storage.BaseURL)
		if err != nil {
			return fmt.Errorf("storage init: %w", err)
		}
		artifactStore = localStorage
	}

	var pdf service.PDFPrinter
	if cfg.PDF.Enabled {
		renderer := render.NewPDFRenderer(render.PDFConfig{
			RemoteURL: cfg.PDF.RemoteURL,
			Timeout:   cfg.PDF.Timeout,
			NoSandbox: cfg.PDF.NoSandbox,
		}, log)
		defer renderer.Close()
		pdf = renderer
	}

	var journal service.Journal
	var db *sql.DB
	if cfg.Postgres.Enabled {
		db, err = postgres.NewPostgresConnection(ctx, postgres.ConnectionInfo{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Username: cfg.Postgres.User,
			DBName:   cfg.Postgres.DBName,
			SSLMode:  cfg.Postgres.SSLMode,
			Password: cfg.Postgres.Password,
		})
		if err != nil {
			return fmt.Errorf("postgres init: %w", err)
		}
		defer postgres.Close(db)

		repo := repository.NewJournalRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("journal schema: %w", err)
		}
		journal = repo
	}

	hub := websocket.NewHub(log)
	go hub.Run(ctx)
	notifier := clients.NewWebSocketClient(hub)

	reservations := service.NewReservationService(api, store, service.ReservationConfig{
		DueDay:           cfg.Reservation.DueDay,
		SubmitStaleAfter: cfg.Reservation.SubmitStaleAfter,
		MortgageRate:     cfg.Reservation.MortgageRate,
		Executor:         cfg.Executor,
	}, journal, notifier, m, log)
	artifacts := service.NewArtifactService(reservations, artifactStore, pdf, notifier, m, log)

	handler := rest.NewHandler(reservations, artifacts, log)
	router := handler.InitRouterWithOptions(rest.RouterOptions{
		Auth:    auth.BearerMiddleware(log),
		Hub:     hub,
		Files:   localStorage,
		Metrics: m.Handler(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           withCORS(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// PDF rendering can take most of the request timeout.
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run HTTP server in goroutine so we can listen for shutdown signals
	srvErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr),
			zap.String("session_store", cfg.Reservation.SessionStore),
			zap.String("storage", cfg.Storage.Driver),
			zap.Bool("pdf", cfg.PDF.Enabled),
			zap.Bool("journal", journal != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
			return
		}
		srvErr <- nil
	}()

	go cleanup(ctx, log, localStorage, cfg.Storage.Retention, memoryStore, reservations)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-srvErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case sig := <-stop:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case <-ctx.Done():
	}

	// Give server up to 10 seconds to finish ongoing requests
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http server shutdown error", zap.Error(err))
	}
	// Cancel top-level context so background services (websocket hub, cleaner) stop
	cancel()

	log.Info("shutdown complete")
	return nil
}

// cleanup drops stored artifacts past their retention, expired in-memory
// sessions and the locks of sessions that no longer exist. storage and
// sessions may be nil.
func cleanup(ctx context.Context, log *zap.Logger, storage *clients.LocalStorage, retention time.Duration, sessions *service.MemoryStore, reservations *service.ReservationService) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if storage != nil && retention > 0 {
				if err := storage.CleanupOlderThan(retention); err != nil {
					log.Warn("storage cleanup error", zap.Error(err))
				}
			}
			if sessions != nil {
				if n := sessions.Sweep(); n > 0 {
					log.Debug("expired sessions removed", zap.Int("count", n))
				}
			}
			if n := reservations.PruneLocks(ctx); n > 0 {
				log.Debug("session locks released", zap.Int("count", n))
			}
		}
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")

			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
