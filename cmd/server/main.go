package main

import (
	"context"
	"log"
	"net/http"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ayushman-7/AI-Model-deployment/internal/artifact"
	"github.com/ayushman-7/AI-Model-deployment/internal/config"
	"github.com/ayushman-7/AI-Model-deployment/internal/handlers"
	"github.com/ayushman-7/AI-Model-deployment/internal/logging"
	"github.com/ayushman-7/AI-Model-deployment/internal/model"
)

func main() {
	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	modelServer, err := setup(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer modelServer.Close()

	handler := handlers.NewHandler(modelServer, logger, cfg.Server.ExposeInternalErrors)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: handlers.NewRouter(handler, logger, cfg.Server.AllowedOrigin),
	}

	logger.Info("server starting",
		zap.String("addr", cfg.Server.Addr),
		zap.String("endpoint", "POST /predict"))

	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

// setup fetches the artifact if needed and loads it. Any error here must stop
// the process before it listens.
func setup(ctx context.Context, cfg config.Config, logger *zap.Logger) (*model.Server, error) {
	fetcher, err := artifact.NewFetcher(cfg.Artifact.URL)
	if err != nil {
		return nil, err
	}

	if cfg.Artifact.DownloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Artifact.DownloadTimeout)
		defer cancel()
	}

	logger.Info("checking model artifact",
		zap.String("path", cfg.Artifact.Path),
		zap.String("url", cfg.Artifact.URL))

	fetched, err := artifact.EnsureLocal(ctx, fetcher, cfg.Artifact.Path)
	if err != nil {
		return nil, errors.Wrap(err, "fetch model")
	}
	if fetched {
		logger.Info("model downloaded", zap.String("path", cfg.Artifact.Path))
	} else {
		logger.Info("model already present, skipping download", zap.String("path", cfg.Artifact.Path))
	}

	modelServer, err := model.NewServer(model.Options{
		Path:              cfg.Artifact.Path,
		SharedLibraryPath: cfg.Model.SharedLibraryPath,
		InputName:         cfg.Model.InputName,
		OutputName:        cfg.Model.OutputName,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("model loaded",
		zap.String("input", modelServer.Metadata.InputName),
		zap.Int64s("input_shape", modelServer.Metadata.InputShape),
		zap.String("output", modelServer.Metadata.OutputName),
		zap.Int64s("output_shape", modelServer.Metadata.OutputShape))

	return modelServer, nil
}
