package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/local/finsight/internal/analyzer"
	cfgpkg "github.com/local/finsight/internal/config"
	"github.com/local/finsight/internal/fetch"
	"github.com/local/finsight/internal/gemini"
	logpkg "github.com/local/finsight/internal/logger"
	"github.com/local/finsight/internal/metrics"
	"github.com/local/finsight/internal/statuscheck"
	"github.com/local/finsight/internal/store"
	"github.com/local/finsight/internal/web"
)

func main() {
	_ = godotenv.Load()
	cfg := cfgpkg.FromEnv()

	_ = logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Enabled && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.Flush,
	})
	defer logpkg.Close()

	metrics.Init()

	// Gemini client. A missing key does not prevent startup; the UI and
	// statuscheck surface the degraded state.
	var svc gemini.Service
	var anlz *analyzer.Analyzer
	client, err := gemini.NewClient(context.Background(), cfg.Gemini.APIKey)
	switch err {
	case nil:
		svc = client
		anlz, err = analyzer.New(svc, analyzer.Config{
			Models:       cfg.Gemini.Models(),
			PollInterval: cfg.Gemini.PollInterval,
			PollTimeout:  cfg.Gemini.PollTimeout,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build analyzer")
		}
	case gemini.ErrNoAPIKey:
		log.Warn().Msg("GEMINI_API_KEY not set; analysis disabled")
	default:
		log.Fatal().Err(err).Msg("failed to init gemini client")
	}

	// Session store: Redis when configured, in-process otherwise.
	var sessions store.Store
	if cfg.Session.RedisURL != "" {
		rs, err := store.NewRedis(cfg.Session.RedisURL, cfg.Session.TTL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis session store")
		}
		sessions = rs
	} else {
		sessions = store.NewMemory(cfg.Session.TTL)
	}
	defer sessions.Close()

	srvWeb, err := web.New(web.Options{
		Analyzer:  anlz,
		Sessions:  sessions,
		UploadDir: cfg.Server.UploadDir,
		MaxUpload: int64(cfg.Server.MaxUploadMB) << 20,
		Username:  cfg.Server.Username,
		Password:  cfg.Server.Password,
		Fetch: fetch.Options{
			HTTPTimeout: cfg.Fetch.Timeout,
			MaxBytes:    int64(cfg.Fetch.MaxSizeMB) << 20,
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init web server")
	}

	mux := http.NewServeMux()
	srvWeb.RegisterRoutes(mux)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	checker := statuscheck.New(svc, sessions, cfg.Server.UploadDir)
	mux.HandleFunc("/statusz", func(w http.ResponseWriter, r *http.Request) {
		summary := checker.Check(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if !summary.Healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(summary)
	})

	// Periodic sweep for temp files orphaned by crashed sessions.
	sweepStop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-sweepStop:
				return
			case <-ticker.C:
				fetch.CleanupTemps(cfg.Session.TTL, cfg.Server.UploadDir)
			}
		}
	}()
	defer close(sweepStop)

	srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: mux}
	go func() {
		log.Info().Msgf("HTTP server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	fmt.Println("shutdown complete")
}
