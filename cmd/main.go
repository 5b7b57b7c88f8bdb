package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Sidbot007/StudentBidz/cmd/server"
	"github.com/Sidbot007/StudentBidz/internal/config"
	"github.com/Sidbot007/StudentBidz/internal/dependency"
	"github.com/Sidbot007/StudentBidz/pkg/logger"
)

func main() {
	cfg := config.Must()

	log := logger.NewLogger(cfg.Env)
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	log.Info("Initializing StudentBidz service...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	deps, err := dependency.NewDependencies(initCtx, cfg, log)
	cancel()
	if err != nil {
		log.Error("[Dependency] failed to initialize -> ", zap.Error(err))
		os.Exit(1)
	}

	srv := server.New(deps)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return deps.Services.Sweeper.Start(gctx) })

	runErr := g.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := deps.Close(closeCtx); err != nil {
		log.Error("[Dependency] close failed -> ", zap.Error(err))
	}

	if runErr != nil {
		log.Error("server failed to run", zap.Error(runErr))
		os.Exit(1)
	}
	log.Info("[SERVER] stopped")
}
