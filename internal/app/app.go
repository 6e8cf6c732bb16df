// Package app wires the scraper pipeline from configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/doab-scraper/internal/config"
	"github.com/Sternrassler/doab-scraper/pkg/client"
	"github.com/Sternrassler/doab-scraper/pkg/doab"
	"github.com/Sternrassler/doab-scraper/pkg/logging"
	"github.com/Sternrassler/doab-scraper/pkg/pagination"
	"github.com/Sternrassler/doab-scraper/pkg/ratelimit"
	"github.com/Sternrassler/doab-scraper/pkg/scraper"
	"github.com/redis/go-redis/v9"
)

// NewScraper builds client, searcher, paginator and scraper from cfg.
// rdb may be nil, in which case the failure budget is disabled.
func NewScraper(cfg *config.Config, rdb *redis.Client) (*scraper.Scraper, error) {
	logger := logging.NewLogger("app")

	cc := cfg.ClientConfig()
	if cfg.Upstream.RequestsPerSecond > 0 {
		pacer := ratelimit.NewPacer(cfg.Upstream.RequestsPerSecond)
		cc.Pacer = pacer
		logger.Info().
			Float64("requests_per_second", float64(pacer.Limit())).
			Msg("Upstream request pacing enabled")
	}
	if rdb != nil {
		cc.Gate = ratelimit.NewTracker(rdb, cfg.TrackerConfig(), logging.NewLogger("ratelimit"))
	}

	c, err := client.New(cc)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	searcher := doab.NewSearcher(c, cfg.Upstream.BaseURL)
	paginator := pagination.NewPaginator(searcher, cfg.PaginationConfig())
	return scraper.New(paginator), nil
}

// ConnectRedis opens the Redis client named by cfg and pings it.
// It returns nil, nil when Redis is not configured.
func ConnectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	opts, err := cfg.RedisOptions()
	if err != nil || opts == nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}

	return rdb, nil
}
