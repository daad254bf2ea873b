package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/postleo/riftinsights/internal/artifacts"
	"github.com/postleo/riftinsights/internal/collector"
	"github.com/postleo/riftinsights/internal/config"
	"github.com/postleo/riftinsights/internal/handlers"
	"github.com/postleo/riftinsights/internal/riot"
	"github.com/postleo/riftinsights/internal/season"
	"github.com/postleo/riftinsights/internal/store"
	"github.com/postleo/riftinsights/internal/worker"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server exited with error", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	sugar := logger.Sugar()

	// PostgreSQL
	pg, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pg.Close()
	if err := pg.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping postgres: %w", err)
	}
	seasonsRepo := store.NewPostgresSeasons(pg)
	if err := seasonsRepo.EnsureSchema(ctx); err != nil {
		return err
	}

	// ClickHouse
	chOpts, err := clickhouse.ParseDSN(cfg.ClickHouseURL)
	if err != nil {
		return fmt.Errorf("failed to parse clickhouse url: %w", err)
	}
	ch, err := clickhouse.Open(chOpts)
	if err != nil {
		return fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	defer ch.Close()
	featureWriter := store.NewFeatureWriter(ch)
	if err := featureWriter.EnsureSchema(ctx); err != nil {
		return err
	}

	// Redis
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to parse redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	// S3
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return fmt.Errorf("failed to load aws config: %w", err)
	}
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	riotClient, err := riot.NewClient(riot.Config{
		APIKey:  cfg.RiotAPIKey,
		BaseURL: cfg.RiotBaseURL,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	pool := worker.NewPool(worker.PoolConfig{
		WorkerCount:   cfg.WorkerCount,
		QueueSize:     cfg.QueueSize,
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
		Writer:        featureWriter,
		Logger:        logger,
	})
	pool.Start(context.Background())
	defer pool.Stop()

	archive := store.NewS3Archive(s3Client, cfg.DataBucket)

	matchCollector := collector.New(collector.Config{
		Source:      riotClient,
		Cache:       store.NewMatchCache(rdb, cfg.MatchCacheTTL),
		Archive:     archive,
		Players:     store.NewPostgresPlayers(pg),
		Concurrency: cfg.CollectConcurrency,
		Logger:      logger,
	})

	seasonService := season.NewService(season.Config{
		Archive:        archive,
		Seasons:        store.NewCachedSeasons(seasonsRepo, cfg.MetricsCacheSize, cfg.MetricsCacheTTL),
		Features:       pool,
		Artifacts:      artifacts.NewS3Store(s3Client, cfg.ModelsBucket, logger),
		ExtractWorkers: cfg.ExtractWorkers,
		Logger:         logger,
	})

	h := handlers.New(handlers.Config{
		Collector: matchCollector,
		Seasons:   seasonService,
		History:   store.NewFeatureReader(ch),
		Checks: map[string]handlers.Pinger{
			"postgres":   pg.Ping,
			"clickhouse": ch.Ping,
			"redis":      func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		QueueDepth:     pool.QueueDepth,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		sugar.Infow("Server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		sugar.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	sugar.Info("Server stopped, draining feature writer")
	return nil
}
