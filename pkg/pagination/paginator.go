package pagination

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Sternrassler/doab-scraper/pkg/doab"
	"github.com/Sternrassler/doab-scraper/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	doabPagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "doab_pages_fetched_total",
		Help: "Total search result pages fetched",
	})

	doabRecordsDiscardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "doab_records_discarded_total",
		Help: "Records dropped because their publication year did not match",
	})
)

// Config holds paginator configuration.
type Config struct {
	// BatchSize is the page size requested from the upstream.
	BatchSize int
}

// DefaultConfig returns the default page size.
func DefaultConfig() Config {
	return Config{
		BatchSize: doab.DefaultBatchSize,
	}
}

// PageFetcher fetches one page of raw records. *doab.Searcher implements it.
type PageFetcher interface {
	FetchPage(ctx context.Context, params doab.SearchParams) ([]doab.RawRecord, error)
}

// Paginator collects year-filtered books from a PageFetcher.
type Paginator struct {
	fetcher PageFetcher
	config  Config
	logger  zerolog.Logger
}

// NewPaginator creates a new paginator.
func NewPaginator(fetcher PageFetcher, config Config) *Paginator {
	if config.BatchSize <= 0 {
		config.BatchSize = doab.DefaultBatchSize
	}

	return &Paginator{
		fetcher: fetcher,
		config:  config,
		logger:  logging.NewLogger("paginator"),
	}
}

// CollectYear returns up to remaining books published in exactly year, in
// upstream order. remaining <= 0 returns an empty result without fetching.
func (p *Paginator) CollectYear(ctx context.Context, query string, year, remaining int) ([]doab.Book, error) {
	start := time.Now()
	target := strconv.Itoa(year)
	books := make([]doab.Book, 0)
	offset := 0
	pages := 0

	for len(books) < remaining {
		records, err := p.fetcher.FetchPage(ctx, doab.SearchParams{
			Query:     query,
			Year:      year,
			Offset:    offset,
			BatchSize: p.config.BatchSize,
		})
		if err != nil {
			return nil, fmt.Errorf("collect year %d: %w", year, err)
		}
		pages++
		doabPagesFetchedTotal.Inc()

		if len(records) == 0 {
			break
		}

		for _, rec := range records {
			book := doab.Normalize(rec)
			if book.Year != target {
				doabRecordsDiscardedTotal.Inc()
				continue
			}

			books = append(books, book)
			if len(books) >= remaining {
				p.logDone(query, year, pages, len(books), start)
				return books, nil
			}
		}

		offset += p.config.BatchSize
	}

	p.logDone(query, year, pages, len(books), start)
	return books, nil
}

func (p *Paginator) logDone(query string, year, pages, collected int, start time.Time) {
	p.logger.Debug().
		Str("query", query).
		Int("year", year).
		Int("pages", pages).
		Int("collected", collected).
		Dur("duration", time.Since(start)).
		Msg("Year collection complete")
}
