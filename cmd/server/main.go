package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ukaseai/brandlab/internal/ai"
	"github.com/ukaseai/brandlab/internal/api"
	"github.com/ukaseai/brandlab/internal/config"
	"github.com/ukaseai/brandlab/internal/dispatch"
	"github.com/ukaseai/brandlab/internal/pkg/distlock"
	"github.com/ukaseai/brandlab/internal/pkg/logger"
	"github.com/ukaseai/brandlab/internal/prompts"
	"github.com/ukaseai/brandlab/internal/provenance"
	"github.com/ukaseai/brandlab/internal/storage"
	"github.com/ukaseai/brandlab/internal/studio"
	"github.com/ukaseai/brandlab/internal/transport"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to YAML config")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	logger.SetRedactPII(cfg.Log.Redact())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisClient := connectRedis(ctx, cfg.Redis.URL)
	db := connectDatabase(ctx, cfg.Database.URL)
	locks := distlock.NewFactory(redisClient, db, cfg.Dispatch.LockTTL())
	if !locks.Enabled() {
		logger.Warn("no lock backend configured; concurrent live sends of the same batch are not guarded")
	}

	sender, err := transport.New(ctx, cfg.Email)
	emailEnabled := err == nil
	switch {
	case errors.Is(err, transport.ErrNotConfigured):
		logger.Warn("email transport not configured; only dry runs are available")
	case err != nil:
		logger.Error("failed to initialize email transport", "provider", cfg.Email.Provider, "error", err)
		os.Exit(1)
	default:
		logger.Info("email transport initialized", "provider", cfg.Email.Provider)
	}

	backend, err := ai.New(ctx, cfg.AI)
	if err != nil {
		logger.Error("failed to initialize AI backend", "error", err)
		os.Exit(1)
	}
	aiReady := strings.EqualFold(cfg.AI.Provider, "bedrock") || cfg.AI.Gemini.APIKey != ""
	if !aiReady {
		logger.Warn("AI key not configured; studio endpoints will answer 501")
	}

	var s3Store *storage.S3
	if cfg.Storage.S3Bucket != "" {
		s3Store, err = storage.NewS3(ctx, cfg.Storage)
		if err != nil {
			logger.Error("failed to initialize S3 storage", "error", err)
			os.Exit(1)
		}
	}
	var fetcher storage.Fetcher
	var publisher studio.Publisher
	if s3Store != nil {
		fetcher = s3Store
		if cfg.Storage.PublishImages {
			publisher = s3Store
			logger.Info("publishing branded images", "bucket", cfg.Storage.S3Bucket, "cdn", cfg.Storage.CDNDomain)
		}
	}

	wmSpec, err := studio.WatermarkSpec(ctx, cfg.Branding, fetcher)
	if err != nil {
		logger.Error("failed to load watermark assets", "error", err)
		os.Exit(1)
	}

	embedder := provenance.NewEmbedder(provenance.Signature(cfg.Branding.Product, cfg.Branding.Platform))
	st := studio.New(studio.Options{
		Backend:   backend,
		Prompts:   prompts.MustNew(),
		Embedder:  embedder,
		Watermark: wmSpec,
		Publisher: publisher,
	})
	dispatcher := dispatch.New(sender, dispatch.Options{
		From:        cfg.Email.From,
		Concurrency: cfg.Dispatch.Concurrency,
		SendTimeout: cfg.Dispatch.SendTimeout(),
		Embedder:    embedder,
	})

	handlers := api.NewHandlers(api.Deps{
		Studio:       st,
		Dispatcher:   dispatcher,
		EmailEnabled: emailEnabled,
		Locks:        locks,
	})
	health := api.NewHealthChecker(db, redisClient, aiReady, emailEnabled)
	server := api.NewServer(cfg.Server, handlers, health)

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down")
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if redisClient != nil {
		redisClient.Close()
	}
	if db != nil {
		db.Close()
	}
	logger.Info("server stopped")
}

// connectRedis returns nil when Redis is not configured or unreachable;
// locking then falls back to Postgres advisory locks.
func connectRedis(ctx context.Context, url string) *redis.Client {
	if url == "" {
		return nil
	}
	var client *redis.Client
	opts, err := redis.ParseURL(url)
	if err != nil {
		client = redis.NewClient(&redis.Options{Addr: url})
	} else {
		client = redis.NewClient(opts)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis connection failed, falling back to PG advisory locks", "error", err)
		client.Close()
		return nil
	}
	logger.Info("redis connected (distributed locking enabled)")
	return client
}

func connectDatabase(ctx context.Context, url string) *sql.DB {
	if url == "" {
		return nil
	}
	db, err := sql.Open("postgres", url)
	if err != nil {
		logger.Warn("failed to open database", "error", err)
		return nil
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		logger.Warn("database unreachable, advisory locks disabled", "error", err)
		db.Close()
		return nil
	}
	return db
}
