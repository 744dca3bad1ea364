package config

import (
	"github.com/dd0wney/cluso-depgraph/pkg/fetch"
	"github.com/dd0wney/cluso-depgraph/pkg/logging"
	"github.com/dd0wney/cluso-depgraph/pkg/metrics"
	"github.com/dd0wney/cluso-depgraph/pkg/polling"
	"github.com/dd0wney/cluso-depgraph/pkg/visualization"
)

// NewFetcher builds the data source: the fixture file when one is set,
// the HTTP API otherwise.
func (c *Config) NewFetcher(logger logging.Logger) (polling.Fetcher, error) {
	if c.API.Fixture != "" {
		f, err := fetch.LoadFixture(c.API.Fixture)
		if err != nil {
			return nil, err
		}
		return f, nil
	}

	f, err := fetch.NewHTTPFetcher(c.API.BaseURL,
		fetch.WithToken(c.API.Token),
		fetch.WithTimeout(c.API.Timeout),
		fetch.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// CoordinatorOptions maps the polling and layout sections onto coordinator options
func (c *Config) CoordinatorOptions(logger logging.Logger, reg *metrics.Registry) []polling.Option {
	layout := c.Layout
	opts := []polling.Option{
		polling.WithLogger(logger),
		polling.WithInterval(c.Polling.Interval),
		polling.WithGraphInterval(c.Polling.GraphInterval),
		polling.WithLayout(visualization.NewLayeredLayout(&layout)),
	}
	if reg != nil {
		opts = append(opts, polling.WithMetrics(reg))
	}
	return opts
}
