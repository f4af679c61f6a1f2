package main

import (
	"go.uber.org/zap"

	"error-collector/internal/config"
	"error-collector/internal/db"
	"error-collector/internal/notify"
	"error-collector/internal/worker"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	if cfg.RedisAddr == "" {
		log.Fatal("REDIS_ADDR is not set")
	}

	store := db.NewStore(db.MustOpen(cfg.DatabaseURL))
	notifier := &notify.Notifier{
		Enabled: cfg.ResolveServiceEnabled,
		URL:     cfg.ResolveServiceURL,
		Token:   cfg.ResolveServiceToken,
		Queue:   cfg.TrackerQueue,
		Log:     log,
	}

	if err := worker.Run(cfg.RedisAddr, store, notifier, log); err != nil {
		log.Fatal("worker", zap.Error(err))
	}
}
