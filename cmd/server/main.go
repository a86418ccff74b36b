package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"rig-studio/internal/platform/config"
	"rig-studio/internal/platform/logger"
	"rig-studio/internal/platform/metrics"
	"rig-studio/internal/rig"
	"rig-studio/internal/studio"
	"rig-studio/internal/timeline"
	"rig-studio/internal/transport"
)

const (
	shutdownTimeout = 10 * time.Second
	tickInterval    = 33 * time.Millisecond // ~30 playhead updates per second
)

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")
	rigURL := config.GetEnv("RIG_URL", "http://localhost:5000")
	dataDir := config.GetEnv("DATA_DIR", "data")
	rigConfigPath := config.GetEnv("RIG_CONFIG", filepath.Join(dataDir, "rig.yaml"))
	sampleInterval := config.GetEnvInt("SAMPLE_INTERVAL_MS", timeline.DefaultSampleIntervalMs)
	pollInterval := config.GetEnvDuration("RIG_POLL_INTERVAL", 2*time.Second)

	log := logger.New(logLevel, logFormat)

	rigStore, err := rig.Load(rigConfigPath)
	if err != nil {
		log.Error("load rig config", "error", err)
		os.Exit(1)
	}
	store, err := studio.NewStore(filepath.Join(dataDir, "animations"))
	if err != nil {
		log.Error("open animation store", "error", err)
		os.Exit(1)
	}

	remote := transport.New(rigURL)
	session := timeline.New(timeline.DefaultDurationMs, rigStore.Channels())
	ticker := timeline.NewIntervalTicker(tickInterval)
	clock := timeline.NewClock(session, remote, nil, ticker,
		logger.WithComponent(log, "clock"), sampleInterval)

	met := metrics.New()
	svc := studio.NewService(session, clock, rigStore, store, remote,
		filepath.Join(dataDir, "audio"), logger.WithComponent(log, "studio"), met)
	h := studio.NewHandler(svc, logger.WithComponent(log, "http"))

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		met.Handler(func() { met.SetAnimating(svc.Animating()) }).ServeHTTP(w, req)
	})
	h.Routes(r)

	pollCtx, pollCancel := context.WithCancel(context.Background())
	defer pollCancel()
	go func() {
		tick := time.NewTicker(pollInterval)
		defer tick.Stop()
		for {
			select {
			case <-pollCtx.Done():
				return
			case <-tick.C:
				svc.PollRemote(pollCtx)
			}
		}
	}()

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"rig_url", rigURL,
		"sample_interval_ms", sampleInterval,
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")
	pollCancel()
	clock.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
