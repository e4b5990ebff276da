// Package main is the entry point for the aquila gateway server.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/batch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	dockerclient "github.com/docker/docker/client"

	"github.com/NicoZweifel/aquila/internal/auth"
	"github.com/NicoZweifel/aquila/internal/auth/github"
	"github.com/NicoZweifel/aquila/internal/auth/mock"
	"github.com/NicoZweifel/aquila/internal/auth/token"
	"github.com/NicoZweifel/aquila/internal/compute"
	"github.com/NicoZweifel/aquila/internal/compute/awsbatch"
	"github.com/NicoZweifel/aquila/internal/compute/docker"
	"github.com/NicoZweifel/aquila/internal/config"
	"github.com/NicoZweifel/aquila/internal/database"
	"github.com/NicoZweifel/aquila/internal/middleware"
	"github.com/NicoZweifel/aquila/internal/server"
	"github.com/NicoZweifel/aquila/internal/storage"
	"github.com/NicoZweifel/aquila/internal/storage/fs"
	"github.com/NicoZweifel/aquila/internal/storage/s3"
)

func main() {
	logLevel := slog.LevelInfo
	if os.Getenv("DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Info("Starting aquila gateway",
		slog.String("environment", cfg.Server.Environment),
		slog.Int("port", cfg.Server.Port),
		slog.String("storage", cfg.Storage.Driver),
		slog.String("compute", cfg.Compute.Driver),
	)

	ctx := context.Background()

	store, err := buildStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	computeBackend, err := buildCompute(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize compute: %v", err)
	}
	if err := computeBackend.Init(ctx); err != nil {
		log.Fatalf("Compute backend probe failed: %v", err)
	}
	logger.Info("Compute backend ready")

	if cfg.Auth.JWTSecret == "" {
		log.Fatalf("auth.jwt_secret is required")
	}
	tokens := token.New(cfg.Auth.JWTSecret)
	provider := auth.NewChain(tokens, buildAuthProvider(cfg))

	var limiter middleware.Counter
	if cfg.Redis.Host != "" {
		redis, err := database.NewRedis(cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redis.Close()
		logger.Info("Connected to Redis, rate limiting enabled")
		limiter = redis
	}

	router := server.NewRouter(cfg, logger, server.Services{
		Storage: store,
		Auth:    provider,
		Compute: computeBackend,
		Tokens:  tokens,
		Limiter: limiter,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  time.Minute,
	}

	go func() {
		logger.Info("Server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("Shutting down server", slog.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	logger.Info("Server stopped gracefully")
}

func buildStorage(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	switch cfg.Storage.Driver {
	case "s3":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Storage.Region))
		if err != nil {
			return nil, err
		}
		var opts []s3.Option
		if cfg.Storage.PresignTTL > 0 {
			opts = append(opts, s3.WithPresignedDownloads(cfg.Storage.PresignTTL))
		}
		return s3.New(awss3.NewFromConfig(awsCfg), cfg.Storage.Bucket, opts...), nil
	default:
		return fs.New(cfg.Storage.Root), nil
	}
}

func buildCompute(ctx context.Context, cfg *config.Config) (compute.Backend, error) {
	switch cfg.Compute.Driver {
	case "awsbatch":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Compute.Region))
		if err != nil {
			return nil, err
		}
		return awsbatch.New(
			batch.NewFromConfig(awsCfg),
			cloudwatchlogs.NewFromConfig(awsCfg),
			cfg.Compute.Queue,
			cfg.Compute.Profiles,
		), nil
	default:
		cli, err := dockerclient.NewClientWithOpts(
			dockerclient.FromEnv,
			dockerclient.WithAPIVersionNegotiation(),
		)
		if err != nil {
			return nil, err
		}
		return docker.New(cli, cfg.Compute.DefaultImage), nil
	}
}

func buildAuthProvider(cfg *config.Config) auth.Provider {
	if cfg.Auth.Provider == "github" {
		return github.New(github.Config{
			ClientID:     cfg.Auth.GitHubID,
			ClientSecret: cfg.Auth.GitHubSecret,
			CallbackURL:  cfg.Auth.CallbackURL,
		})
	}
	return mock.New()
}
