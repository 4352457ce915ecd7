// ABOUTME: Entry point for the PatchRelay dependency-patch service and CLI.
// ABOUTME: Hosts the HTTP exporter started by the serve command.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jfeddern/PatchRelay/internal/config"
	"github.com/jfeddern/PatchRelay/internal/metrics"
	"github.com/jfeddern/PatchRelay/internal/server"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type Exporter struct {
	config *config.Config
	logger *logrus.Logger
	app    *application
}

func NewExporter(cfg *config.Config, logger *logrus.Logger) (*Exporter, error) {
	logger.WithFields(logrus.Fields{
		"port":             cfg.Port,
		"data_dir":         cfg.DataDir,
		"projects":         len(cfg.Projects),
		"persist_cache":    cfg.Cache.Persist,
		"refresh_interval": cfg.RefreshInterval,
		"mock":             cfg.Mock,
	}).Info("Initializing PatchRelay")

	app, err := newApplication(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create patch engine: %w", err)
	}

	return &Exporter{
		config: cfg,
		logger: logger,
		app:    app,
	}, nil
}

func (e *Exporter) routes() *http.ServeMux {
	eng := e.app.engine
	history := server.NewHistoryHandler(eng, e.logger)
	scans := server.NewScanHandler(eng, e.logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", e.securityMiddleware(metrics.CreateMetricsHandler(eng, e.logger)))
	mux.HandleFunc("/queue", e.securityMiddleware(server.CreateQueueHandler(eng, e.logger)))
	mux.HandleFunc("/state", e.securityMiddleware(history.State))
	mux.HandleFunc("/history", e.securityMiddleware(history.History))
	mux.HandleFunc("/history/commit-message", e.securityMiddleware(history.CommitMessage))
	mux.HandleFunc("/scan", e.securityMiddleware(scans.Scan))
	mux.HandleFunc("/invalidate", e.securityMiddleware(scans.Invalidate))
	mux.HandleFunc("/health", e.securityMiddleware(e.healthHandler))
	return mux
}

func (e *Exporter) Start(ctx context.Context) error {
	// Start the patch engine
	go e.app.engine.Start(ctx)
	if e.app.memory != nil {
		go e.app.memory.StartCleanup(ctx, 5*time.Minute)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", e.config.Port),
		Handler:           e.routes(),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		// A forced full rescan runs project by project
		WriteTimeout:   10 * time.Minute,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	go func() {
		<-ctx.Done()
		e.logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	e.logger.WithField("port", e.config.Port).Info("Starting HTTP server")

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (e *Exporter) securityMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Security headers
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; script-src 'none'; object-src 'none'; frame-ancestors 'none'")

		// Only allow specific HTTP methods
		if r.Method != http.MethodGet && r.Method != http.MethodHead && r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// Log the request
		e.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"remote_ip":  r.RemoteAddr,
			"user_agent": r.UserAgent(),
		}).Debug("HTTP request received")

		next(w, r)
	}
}

func (e *Exporter) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok"}`)
}
