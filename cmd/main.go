package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"skh-agent/handler"
	"skh-agent/internal/app"
	"skh-agent/internal/config"
)

func main() {
	ctx := context.Background()

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	// ---- Service ----
	svc, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to build assistant", zap.Error(err))
	}

	// ---- Handler ----
	h, err := handler.NewHandler(svc,
		handler.WithAllowedOrigin(cfg.AllowedOrigin),
		handler.WithLogger(logger),
	)
	if err != nil {
		logger.Fatal("failed to create handler", zap.Error(err))
	}

	lambda.Start(h.Handle)
}
