package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/automan-solutions/challandesk/internal/adapter/backend"
	"github.com/automan-solutions/challandesk/internal/adapter/templatecache"
	"github.com/automan-solutions/challandesk/internal/adapter/web"
	"github.com/automan-solutions/challandesk/internal/adapter/ws"
	"github.com/automan-solutions/challandesk/internal/config"
	"github.com/automan-solutions/challandesk/internal/logger"
	"github.com/automan-solutions/challandesk/internal/middleware"
	"github.com/automan-solutions/challandesk/internal/preview"
	"github.com/automan-solutions/challandesk/internal/service"
	"github.com/automan-solutions/challandesk/internal/session"
	"github.com/automan-solutions/challandesk/internal/telemetry"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "check-login" {
		if err := runCheckLogin(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := logger.New(cfg.Logging)
	slog.SetDefault(log)
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"backend", cfg.Backend.BaseURL,
		"log_level", cfg.Logging.Level,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	// --- Infrastructure ---

	cache, err := templatecache.New(cfg.Cache.MaxCostBytes, cfg.Cache.TTL)
	if err != nil {
		return fmt.Errorf("template cache: %w", err)
	}
	defer cache.Close()

	sessions := session.NewStore(cfg.Session.TTL)
	go sessions.Janitor(ctx, 10*time.Minute)

	client := backend.New(cfg.Backend)

	renderer, err := preview.NewRenderer()
	if err != nil {
		return fmt.Errorf("preview renderer: %w", err)
	}

	// --- Services and HTTP ---

	handlers := &web.Handlers{
		Log:          log,
		Backend:      client,
		Sessions:     sessions,
		Guard:        &middleware.Guard{Store: sessions, CookieName: cfg.Session.CookieName},
		Lists:        service.NewListService(client, log),
		Forms:        service.NewFormService(client, cache, log),
		Renderer:     renderer,
		Preview:      &ws.PreviewHandler{Renderer: renderer, Log: log},
		CookieName:   cfg.Session.CookieName,
		SecureCookie: cfg.Session.Secure,
	}

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(web.NewRouter(handlers), "challandesk"),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
