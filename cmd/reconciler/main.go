package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zephyrsocial/zephyr/backend/internal/cache"
	"github.com/zephyrsocial/zephyr/backend/internal/jobs"
	"github.com/zephyrsocial/zephyr/backend/internal/repositories"
	"github.com/zephyrsocial/zephyr/backend/pkg/config"
	"go.uber.org/zap"
)

func main() {
	once := flag.Bool("once", false, "run a single reconciliation sweep and exit")
	flag.Parse()

	cfg := config.Load()

	var logger *zap.Logger
	var err error
	if cfg.Env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.CloseDB()

	rdb, err := config.InitRedis(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}
	defer rdb.Close()

	postRepo := repositories.NewPostgresPostRepository(db.Postgres)
	viewsCache := cache.NewPostViewsCache(rdb, logger)
	reconciler := jobs.NewReconciler(postRepo, viewsCache, logger)

	if *once {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := reconciler.Run(ctx); err != nil {
			logger.Fatal("Reconciliation run failed", zap.Error(err))
		}
		return
	}

	scheduler := jobs.NewScheduler(reconciler, logger)
	if err := scheduler.Start(cfg.ReconcileSchedule); err != nil {
		logger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	// Block until interrupted, then let an in-flight run finish
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	scheduler.Stop()
}
