package main

import (
	"context"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"error-collector/internal/config"
	"error-collector/internal/db"
	"error-collector/internal/extract"
	httpSrv "error-collector/internal/http"
	"error-collector/internal/migrations"
	"error-collector/internal/notify"
	"error-collector/internal/storage"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()

	if err := migrations.Run(cfg.DatabaseURL); err != nil {
		log.Fatal("migrations", zap.Error(err))
	}

	store := db.NewStore(db.MustOpen(cfg.DatabaseURL))

	var asq *asynq.Client
	if cfg.RedisAddr != "" {
		asq = asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	}

	var archive *storage.Client
	if cfg.ArchiveEnabled() {
		var err error
		archive, err = storage.New(context.Background(), cfg)
		if err != nil {
			log.Fatal("object storage", zap.Error(err))
		}
	}

	srv := httpSrv.NewServer(&httpSrv.Server{
		Store: store,
		Sentry: &extract.Sentry{
			FilterByProject: cfg.FilterByProject,
			ExpectedProject: cfg.ExpectedProject,
			Log:             log,
		},
		GlitchTip: &extract.GlitchTip{
			FilterByProject: cfg.FilterByProject,
			ExpectedProject: cfg.ExpectedProject,
			APIToken:        cfg.GlitchTipAPIToken,
			BaseURL:         cfg.GlitchTipBaseURL,
			Log:             log,
		},
		Notifier: &notify.Notifier{
			Enabled: cfg.ResolveServiceEnabled,
			URL:     cfg.ResolveServiceURL,
			Token:   cfg.ResolveServiceToken,
			Queue:   cfg.TrackerQueue,
			Log:     log,
		},
		Asynq:   asq,
		Archive: archive,
		Cfg:     cfg,
		Log:     log,
	})

	log.Info("listening", zap.String("addr", cfg.APIAddr))
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal("server", zap.Error(err))
	}
}
