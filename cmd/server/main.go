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

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/plotsim/plotsim/internal/auth"
	"github.com/plotsim/plotsim/internal/compiler"
	"github.com/plotsim/plotsim/internal/config"
	"github.com/plotsim/plotsim/internal/db"
	"github.com/plotsim/plotsim/internal/export"
	"github.com/plotsim/plotsim/internal/geom"
	"github.com/plotsim/plotsim/internal/live"
	"github.com/plotsim/plotsim/internal/metrics"
	mw "github.com/plotsim/plotsim/internal/middleware"
	"github.com/plotsim/plotsim/internal/program"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("open database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		collector = metrics.NewCollector(reg)
	}

	authService := auth.NewService(store, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	style := export.DefaultStyle()
	style.Width, style.Height, style.Padding = cfg.SurfaceWidth, cfg.SurfaceHeight, cfg.ViewPadding
	exportHandler := export.NewHandler(style)

	opts := compiler.Options{FeedRate: cfg.FeedRate, SafeZ: cfg.SafeZ, DrawZ: cfg.DrawZ}
	programService := program.NewService(store, opts, collector)
	programHandler := program.NewHandler(programService, style)

	// Rooms load programs without an access check; the socket handler
	// checks access before registering.
	hub := live.NewHub(programService.Load, live.PlayerConfig{
		TickRate:     cfg.TickRate,
		DefaultSpeed: cfg.DefaultSpeed,
		View:         geom.NewViewTransform(cfg.SurfaceWidth, cfg.SurfaceHeight, cfg.ViewPadding),
	}, collector)
	go hub.Run()
	liveHandler := live.NewHandler(hub, authService, programService, mw.OriginHosts(cfg.Origins()))

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	// Auth routes (public)
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	if collector != nil {
		r.Handle("/metrics", collector.Handler()).Methods("GET")
	}

	// Export endpoints (public, used by the playground)
	r.HandleFunc("/export/svg", exportHandler.SVG).Methods("POST", "OPTIONS")
	r.HandleFunc("/export/draw", exportHandler.DrawCommands).Methods("POST", "OPTIONS")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	programHandler.Mount(r, api)

	// WebSocket endpoint
	r.HandleFunc("/ws/program/{programId}", liveHandler.ServeWS)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop rooms first so players release their engines
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "tickRate", cfg.TickRate, "metrics", cfg.MetricsEnabled)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
