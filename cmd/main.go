package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/kira/internal/adapters/checkpoint"
	"github.com/okian/kira/internal/adapters/disburse"
	"github.com/okian/kira/internal/adapters/http/api"
	"github.com/okian/kira/internal/adapters/producer"
	service "github.com/okian/kira/internal/app"
	"github.com/okian/kira/internal/config"
	"github.com/okian/kira/pkg/logger"
	"github.com/okian/kira/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	serviceMetricsInterval = 5 * time.Second
	replayRetryInterval    = 200 * time.Millisecond
)

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString("kira: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithLevel(cfg.LogLevel)); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get().Named("main")

	svc, closeFn, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := svc.Start(ctx); err != nil {
		return err
	}

	go startServiceMetricsUpdater(ctx, svc)

	mux := http.NewServeMux()
	api.NewServer(svc,
		api.WithMaxLimit(cfg.MaxLeaderboardLimit),
		api.WithMaxBatch(cfg.MaxBatchSize),
	).Register(mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
		log.Error(ctx, "HTTP server failed", logger.Error(runErr))
	}
	log.Info(ctx, "shutting down")

	// Graceful shutdown with timeout. The HTTP server goes first so no new
	// events arrive while the queue drains.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(ctx, "service stop failed", logger.Error(err))
		runErr = errors.Join(runErr, err)
	}

	log.Info(ctx, "stopped")
	return runErr
}

// buildService translates cfg into service options. The returned func
// releases resources opened here and must run after Stop.
func buildService(ctx context.Context, cfg *config.Config) (*service.Service, func(), error) {
	closeFn := func() {}
	opts := []service.Option{
		service.WithLogger(logger.Get().Named("service")),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.EventQueueSize),
		service.WithShardCount(cfg.ShardCount),
		service.WithDedupeWindow(cfg.DedupeWindow),
		service.WithDedupeStripes(cfg.DedupeStripes),
		service.WithSweepInterval(cfg.DedupeSweepInterval),
		service.WithWeights(cfg.Weights, cfg.PlatformDefaults),
		service.WithMinClaimPoints(cfg.MinClaimPoints),
		service.WithTokenDecimals(cfg.TokenDecimals),
		service.WithDisburser(disburse.NewDryRun(logger.Get().Named("disburse"))),
	}

	if cfg.CheckpointPath != "" {
		store, err := checkpoint.Open(cfg.CheckpointPath)
		if err != nil {
			return nil, closeFn, err
		}
		opts = append(opts, service.WithCheckpoint(store))
		closeFn = func() {
			if err := store.Close(); err != nil {
				logger.Get().Error(ctx, "checkpoint close failed", logger.Error(err))
			}
		}
	}

	if len(cfg.ReplayFiles) > 0 {
		replays := make([]producer.Producer, 0, len(cfg.ReplayFiles))
		for _, path := range cfg.ReplayFiles {
			replays = append(replays, producer.NewReplay(path,
				producer.WithRetryIf(func(err error) bool { return errors.Is(err, service.ErrBackpressure) }),
				producer.WithRetryInterval(replayRetryInterval),
				producer.WithReplayLogger(logger.Get().Named("replay")),
			))
		}
		opts = append(opts, service.WithProducers(replays...))
	}

	return service.New(opts...), closeFn, nil
}

// startServiceMetricsUpdater refreshes gauges derived from service stats.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

func updateServiceMetrics(svc *service.Service) {
	stats := svc.GetStats()
	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if totalUsers, ok := stats["totalUsers"].(int); ok {
		metrics.UpdateUsersTotal(totalUsers)
	}
	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
}
