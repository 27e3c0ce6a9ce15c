package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cafe/cafe/internal/config"
	"github.com/cafe/cafe/internal/query"
	"github.com/cafe/cafe/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadQuery()

	log := logger.NewLogger(cfg.ServiceName, cfg.LogLevel)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := query.Run(ctx, cfg, query.NewOpener(query.DefaultCredential), os.Stdout, log); err != nil {
		log.Error("Query failed", zap.Error(err))
		fmt.Println("Error: " + err.Error())
		log.Sync()
		stop()
		os.Exit(1)
	}
}
