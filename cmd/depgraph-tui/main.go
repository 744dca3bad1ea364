package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dd0wney/cluso-depgraph/pkg/config"
	"github.com/dd0wney/cluso-depgraph/pkg/logging"
	"github.com/dd0wney/cluso-depgraph/pkg/metrics"
	"github.com/dd0wney/cluso-depgraph/pkg/polling"
	"github.com/dd0wney/cluso-depgraph/pkg/visualization"
)

type options struct {
	configPath string
	apiURL     string
	fixture    string
	dagID      string
	partition  string
	direction  string
	expand     string
	interval   time.Duration
	logFile    string
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
	flag.StringVar(&opts.logFile, "log-file", "depgraph-tui.log", "log file used when the config logs to a terminal stream")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "depgraph-tui: %v\n", err)
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
	// The alternate screen owns the terminal.
	switch cfg.Logging.Output {
	case "", "stderr", "stdout":
		cfg.Logging.Output = opts.logFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(opts options) error {
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
	var ids []string
	for _, part := range strings.Split(opts.expand, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, part)
		}
	}
	expanded := visualization.NewExpandedGroups(ids...)

	logger, closer, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer closer.Close()

	fetcher, err := cfg.NewFetcher(logger)
	if err != nil {
		return err
	}

	coord := polling.NewCoordinator(fetcher, cfg.CoordinatorOptions(logger, metrics.NewRegistry())...)
	defer coord.Close()

	p := tea.NewProgram(initialModel(coord, key, dir, expanded), tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub, err := coord.Subscribe(ctx, key, dir, expanded, func(u polling.Update) {
		p.Send(updateMsg(u))
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	logger.Info("tui started", logging.Subject(key), logging.Direction(dir))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
