package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/dd0wney/cluso-depgraph/pkg/config"
	"github.com/dd0wney/cluso-depgraph/pkg/fetch"
	"github.com/dd0wney/cluso-depgraph/pkg/health"
	"github.com/dd0wney/cluso-depgraph/pkg/logging"
	"github.com/dd0wney/cluso-depgraph/pkg/metrics"
	"github.com/dd0wney/cluso-depgraph/pkg/polling"
	"github.com/dd0wney/cluso-depgraph/pkg/visualization"
)

type options struct {
	configPath    string
	apiURL        string
	fixture       string
	dagID         string
	partition     string
	direction     string
	expand        string
	interval      time.Duration
	graphInterval time.Duration
	metricsAddr   string
	logLevel      string
	once          bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "YAML config file")
	flag.StringVar(&opts.apiURL, "api", "", "API base URL (overrides config and DEPGRAPH_API_URL)")
	flag.StringVar(&opts.fixture, "fixture", "", "serve graphs from a YAML fixture instead of the API")
	flag.StringVar(&opts.dagID, "dag", "", "DAG id to watch (required)")
	flag.StringVar(&opts.partition, "partition", "", "partition key to watch (required)")
	flag.StringVar(&opts.direction, "direction", "LR", "layout direction: LR, RL, TB or BT")
	flag.StringVar(&opts.expand, "expand", "", "comma-separated group ids to expand")
	flag.DurationVar(&opts.interval, "interval", 0, "satisfaction refresh interval (overrides config)")
	flag.DurationVar(&opts.graphInterval, "graph-interval", -1, "graph refresh interval, 0 for invalidation only (overrides config)")
	flag.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /metrics and /health on this address (overrides config)")
	flag.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	flag.BoolVar(&opts.once, "once", false, "exit after the first ready or terminal update")
	flag.Parse()

	if err := run(opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "depgraph-watch: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(opts options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		data, err := os.ReadFile(opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := config.Parse(data, cfg); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(os.LookupEnv)

	if opts.apiURL != "" {
		cfg.API.BaseURL = opts.apiURL
	}
	if opts.fixture != "" {
		cfg.API.Fixture = opts.fixture
	}
	if opts.interval > 0 {
		cfg.Polling.Interval = opts.interval
	}
	if opts.graphInterval >= 0 {
		cfg.Polling.GraphInterval = opts.graphInterval
	}
	if opts.metricsAddr != "" {
		cfg.Metrics.Addr = opts.metricsAddr
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = strings.ToLower(opts.logLevel)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(opts options, out io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	key := polling.SubjectKey{DagID: opts.dagID, PartitionKey: opts.partition}
	if err := key.Validate(); err != nil {
		return err
	}
	dir, err := visualization.ParseDirection(opts.direction)
	if err != nil {
		return err
	}
	expanded := visualization.NewExpandedGroups(splitList(opts.expand)...)

	logger, closer, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer closer.Close()

	fetcher, err := cfg.NewFetcher(logger)
	if err != nil {
		return err
	}

	reg := metrics.NewRegistry()
	coord := polling.NewCoordinator(fetcher, cfg.CoordinatorOptions(logger, reg)...)
	defer coord.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Addr != "" {
		srv := newOpsServer(cfg, coord, fetcher, reg)
		go func() {
			logger.Info("ops server listening", logging.String("addr", cfg.Metrics.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("ops server failed", logging.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if hf, ok := fetcher.(*fetch.HTTPFetcher); ok {
		if summary, err := hf.RunSummary(ctx, key); err == nil {
			logger.Info("partitioned run",
				logging.Subject(key),
				logging.String("state", string(summary.State)),
				logging.Int("received", summary.TotalReceived),
				logging.Int("required", summary.TotalRequired),
			)
		}
	}

	printer := newPrinter(out)
	finished := make(chan struct{})
	var finishOnce sync.Once

	sub, err := coord.Subscribe(ctx, key, dir, expanded, func(u polling.Update) {
		if err := printer.print(u); err != nil {
			logger.Error("write update", logging.Error(err))
		}
		if u.State == polling.Terminated || (opts.once && u.State == polling.Ready) {
			finishOnce.Do(func() { close(finished) })
		}
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	logger.Info("watching",
		logging.Subject(key),
		logging.Direction(dir),
		logging.Duration("interval", cfg.Polling.Interval),
	)

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case <-finished:
	}
	return nil
}

func newOpsServer(cfg *config.Config, coord *polling.Coordinator, fetcher polling.Fetcher, reg *metrics.Registry) *http.Server {
	checker := health.NewChecker()
	checker.Register(health.Health, "views", health.ViewsCheck(coord.ViewCounts))
	checker.Register(health.Health, "memory", health.MemoryCheck(func() (uint64, uint64) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		return m.Alloc, m.Sys
	}))
	checker.Register(health.Readiness, "freshness", health.StalenessCheck(coord.LastSuccess, 3*cfg.Polling.Interval, nil))
	if hf, ok := fetcher.(*fetch.HTTPFetcher); ok {
		checker.Register(health.Readiness, "upstream", health.UpstreamCheck(hf.Ping))
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())
	checker.Mount(mux)
	mux.HandleFunc("/views", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(coord.Views())
	})

	return &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
