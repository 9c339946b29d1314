package main

import (
	"context"
	"flag"

	"github.com/you/dmarket-scanner/internal/bot"
	"github.com/you/dmarket-scanner/internal/config"
	"github.com/you/dmarket-scanner/internal/metrics"
	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config file")
	flag.Parse()

	logger, err := bot.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics.Serve(ctx, cfg.Metrics.ListenAddr, nil, logger)

	b := bot.New(cfg, logger)
	b.Run(ctx)
}
