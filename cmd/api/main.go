package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bryanwahyu/polycode-insight/internal/application"
	appanalysis "github.com/bryanwahyu/polycode-insight/internal/application/analysis"
	"github.com/bryanwahyu/polycode-insight/internal/config"
	domain "github.com/bryanwahyu/polycode-insight/internal/domain/analysis"
	"github.com/bryanwahyu/polycode-insight/internal/infra/ai"
	mysqlp "github.com/bryanwahyu/polycode-insight/internal/infra/db/mysql"
	pgp "github.com/bryanwahyu/polycode-insight/internal/infra/db/postgres"
	"github.com/bryanwahyu/polycode-insight/internal/infra/events"
	"github.com/bryanwahyu/polycode-insight/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/polycode-insight/internal/infra/storage"
	"github.com/bryanwahyu/polycode-insight/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()
	checkers := map[string]middleware.HealthChecker{}

	// init engine
	engine, err := ai.NewEngine(ctx, cfg.Engine)
	if err != nil {
		log.Fatalf("engine init error: %v", err)
	}

	svc := &appanalysis.Service{
		Engine: engine,
		Clock:  application.SystemClock{},
		Retry: appanalysis.RetryPolicy{
			MaxRetries: cfg.Retry.MaxRetries,
			BaseDelay:  cfg.Retry.BaseDelay,
			MaxDelay:   cfg.Retry.MaxDelay,
		},
	}

	// submission history (opsional)
	if cfg.Database.Driver != "" {
		db, repo, err := openRepository(ctx, cfg)
		if err != nil {
			log.Fatalf("%s connect error: %v", cfg.Database.Driver, err)
		}
		defer db.Close()
		svc.Repo = repo
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	} else {
		log.Printf("database driver not set, submission history disabled")
	}

	// init minio (opsional)
	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			log.Fatalf("minio init error: %v", err)
		}
		svc.Archive = store
	}

	// state-transition stream (opsional)
	if cfg.Redis.URL != "" {
		client, err := events.ConnectRedis(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("redis init error: %v", err)
		}
		defer client.Close()
		svc.Events = events.NewRedisPublisher(client, cfg.Redis.Stream)
		checkers["redis"] = middleware.CheckFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}

	// init router
	mux := chi.NewRouter()
	mux.Mount("/", httpserver.NewRouter(svc, httpserver.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		APIKeys:        cfg.Auth.APIKeys,
		RateCapacity:   cfg.RateLimit.Capacity,
		RateRefill:     cfg.RateLimit.RefillRate,
		MaxCodeBytes:   cfg.Limits.MaxCodeBytes,
		HealthCheckers: checkers,
	}))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout(cfg),
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("server listening on %s engine=%s history=%t", addr, cfg.Engine.Provider, svc.Repo != nil)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func openRepository(ctx context.Context, cfg *config.Config) (*sql.DB, domain.Repository, error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := pgp.Connect(ctx, cfg.PostgresDSN(), cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return db, pgp.NewSubmissionRepository(db), nil
	default:
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN(), cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return db, mysqlp.NewSubmissionRepository(db), nil
	}
}

// writeTimeout leaves room for every retry of a slow engine call.
func writeTimeout(cfg *config.Config) time.Duration {
	attempts := time.Duration(cfg.Retry.MaxRetries + 1)
	return attempts*(cfg.Engine.Timeout+cfg.Retry.MaxDelay) + 15*time.Second
}
