// invoicegen serves the hotel utility invoice pipeline: workbook
// upload, PDF rendering, bulk download and email delivery.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/palmsuites/invoicegen/internal/config"
	"github.com/palmsuites/invoicegen/internal/email"
	"github.com/palmsuites/invoicegen/internal/invoice"
	"github.com/palmsuites/invoicegen/internal/logger"
	"github.com/palmsuites/invoicegen/internal/render"
	"github.com/palmsuites/invoicegen/internal/server"
	"github.com/palmsuites/invoicegen/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.NewConfig()
	if err != nil {
		logger.L.Fatalf("loading configuration: %v", err)
	}

	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		logger.L.Fatalf("building logger: %v", err)
	}
	logger.L = log

	for _, dir := range []string{cfg.Storage.UploadsDir, cfg.Storage.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("creating %s: %v", dir, err)
		}
	}

	tmpl, err := invoice.LoadTemplate(filepath.Join(cfg.Storage.AssetsDir, "invoice.html"))
	if err != nil {
		log.Fatalf("loading invoice template: %v", err)
	}
	assets := invoice.LoadAssets(cfg.Storage.AssetsDir)

	engine := render.NewEngine(render.Config{
		ChromePath: cfg.Render.ChromePath,
		Timeout:    time.Duration(cfg.Render.TimeoutSeconds) * time.Second,
		NoSandbox:  cfg.Render.NoSandbox,
	}, log)
	defer engine.Close()

	pipeline := invoice.NewPipeline(cfg, engine, tmpl, assets, log)
	emails := email.NewService(email.NewSender(cfg.Email), log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage.StartJanitor(ctx, cfg.Retention, cfg.Storage, log)

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: server.New(cfg, pipeline, emails, engine, log).Router(),
	}

	go func() {
		log.Infow("invoicegen listening", "address", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("shutdown incomplete", "error", err)
	}
}
