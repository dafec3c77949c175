package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/veto-ceremony/server/internal/admin"
	"github.com/veto-ceremony/server/internal/bus"
	"github.com/veto-ceremony/server/internal/catalog"
	"github.com/veto-ceremony/server/internal/config"
	"github.com/veto-ceremony/server/internal/dispatch"
	"github.com/veto-ceremony/server/internal/httpapi"
	"github.com/veto-ceremony/server/internal/reaper"
	"github.com/veto-ceremony/server/internal/store"
	"github.com/veto-ceremony/server/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := newLogger(cfg.LogLevel)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat := catalog.New()
	st := store.New()
	b := bus.New()
	pub := dispatch.New(b, log)

	adminSurface, err := admin.New(st, cat, pub, log)
	if err != nil {
		log.Fatal("failed to start admin surface", zap.Error(err))
	}

	api := httpapi.NewAPI(adminSurface, cat, st, log)
	wsHandler := ws.NewHandler(st, b, log, cfg.DevOriginWide)
	handler := httpapi.SetupRoutes(api, wsHandler)

	r := reaper.New(st, pub, log, cfg.ReaperInterval)
	go r.Run(ctx)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("listening", zap.String("addr", cfg.Addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("server exited", zap.Error(err))
	}
}

func newLogger(level string) *zap.Logger {
	var zl zap.Config
	switch level {
	case "debug":
		zl = zap.NewDevelopmentConfig()
	default:
		zl = zap.NewProductionConfig()
	}
	log, err := zl.Build()
	if err != nil {
		panic(err)
	}
	return log
}
