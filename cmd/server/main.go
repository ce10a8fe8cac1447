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

	"github.com/veil-waf/flowscan/internal/classify"
	"github.com/veil-waf/flowscan/internal/config"
	"github.com/veil-waf/flowscan/internal/db"
	"github.com/veil-waf/flowscan/internal/geoip"
	"github.com/veil-waf/flowscan/internal/handlers"
	"github.com/veil-waf/flowscan/internal/history"
	"github.com/veil-waf/flowscan/internal/metrics"
	"github.com/veil-waf/flowscan/internal/model"
	"github.com/veil-waf/flowscan/internal/ratelimit"
	"github.com/veil-waf/flowscan/internal/server"
	"github.com/veil-waf/flowscan/internal/sse"
	flowtls "github.com/veil-waf/flowscan/internal/tls"
	"github.com/veil-waf/flowscan/internal/ws"
)

// pruneInterval is how often expired verdict history is deleted.
const pruneInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := server.SetupLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Models load before anything listens; a broken artifact set is fatal.
	set, err := model.Load(cfg.ModelDir, logger)
	if err != nil {
		return fmt.Errorf("load models: %w", err)
	}
	defer set.Close()
	engine, err := classify.NewEngine(set)
	if err != nil {
		return err
	}

	recorderMetrics := metrics.New()
	pipeline := classify.NewPipeline(engine, recorderMetrics, logger)
	sseHub := sse.NewHub(logger)

	var store history.Store
	if cfg.HistoryEnabled() {
		database, err := db.Connect(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer database.Close()
		store = database

		pgListener := sse.NewPGListener(database.Pool, db.NotifyChannel, sseHub, logger)
		go server.RunWithRecovery(ctx, logger, "pg-listener", pgListener.Listen)
		go server.RunWithRecovery(ctx, logger, "history-prune", func(ctx context.Context) {
			database.PruneLoop(ctx, cfg.HistoryRetention, pruneInterval)
		})
	} else {
		logger.Info("verdict history disabled", "reason", "DATABASE_URL not set")
	}
	recorder := history.NewRecorder(store, sseHub, logger)
	if cfg.GeoIPDB != "" {
		geo, err := geoip.Open(cfg.GeoIPDB)
		if err != nil {
			return err
		}
		defer geo.Close()
		recorder.UseLocator(geo)
	}

	limiter := ratelimit.New(map[string]ratelimit.Bucket{
		ratelimit.Classify: {MaxRequests: cfg.ClassifyRate, Window: cfg.ClassifyWindow},
	})
	wsManager := ws.NewManager(pipeline, recorder, limiter, logger)
	defer wsManager.CloseAll()

	router := handlers.NewRouter(handlers.Routes{
		UI:         handlers.NewUIHandler(pipeline, recorder, logger),
		API:        handlers.NewAPIHandler(pipeline, recorder, logger),
		Stream:     handlers.NewStreamHandler(sseHub, recorder),
		Limiter:    limiter,
		WebSocket:  wsManager.HandleWS,
		Metrics:    recorderMetrics.Handler(),
		StaticDir:  cfg.StaticDir,
		TrustProxy: cfg.TrustProxy,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0, // SSE + WebSocket need unlimited write time
		IdleTimeout:       60 * time.Second,
	}

	domains := cfg.Domains()
	if len(domains) == 0 {
		return server.Serve(ctx, srv, srv.ListenAndServe, logger)
	}

	certs := flowtls.NewCertManager(domains, cfg.ACMEEmail, cfg.Production(), logger)
	srv.Addr = ":https"
	challenge := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           certs.ChallengeHandler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.Serve(ctx, challenge, challenge.ListenAndServe, logger); err != nil {
			logger.Error("http listener failed", "err", err)
		}
	}()
	return server.Serve(ctx, srv, certs.Listener(ctx, srv), logger)
}
