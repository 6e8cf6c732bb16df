// Package scraper walks a range of publication years, newest first, and
// gathers at most a global limit of DOAB book records.
package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/doab-scraper/pkg/doab"
	"github.com/Sternrassler/doab-scraper/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// DefaultLimit is the global limit used when the caller supplies none.
const DefaultLimit = 50

var (
	doabScrapesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doab_scrapes_total",
		Help: "Total scrapes by outcome",
	}, []string{"outcome"})

	doabScrapeYearsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "doab_scrape_years_total",
		Help: "Total per-year collections started",
	})

	doabScrapeBooksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "doab_scrape_books_total",
		Help: "Total book records returned by scrapes",
	})

	doabScrapeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "doab_scrape_duration_seconds",
		Help:    "Scrape duration in seconds",
		Buckets: []float64{0.5, 1, 5, 15, 30, 60, 180, 600},
	})
)

// YearCollector collects up to remaining books for one year.
// *pagination.Paginator implements it.
type YearCollector interface {
	CollectYear(ctx context.Context, query string, year, remaining int) ([]doab.Book, error)
}

// Request is one scrape invocation.
type Request struct {
	Query     string
	StartYear int
	EndYear   int
	Limit     int
}

// Scraper is the multi-year orchestrator.
type Scraper struct {
	collector YearCollector
	logger    zerolog.Logger
}

// New creates a new scraper.
func New(collector YearCollector) *Scraper {
	return &Scraper{
		collector: collector,
		logger:    logging.NewLogger("scraper"),
	}
}

// Scrape runs ScrapeBooks for a Request.
func (s *Scraper) Scrape(ctx context.Context, req Request) ([]doab.Book, error) {
	return s.ScrapeBooks(ctx, req.Query, req.StartYear, req.EndYear, req.Limit)
}

// ScrapeBooks returns at most limit books published between startYear and
// endYear inclusive, newest year first and upstream order within a year.
// The years may be given in either order. Any collection error aborts the
// whole scrape; no partial result is returned.
func (s *Scraper) ScrapeBooks(ctx context.Context, query string, startYear, endYear, limit int) ([]doab.Book, error) {
	if startYear > endYear {
		startYear, endYear = endYear, startYear
	}

	start := time.Now()
	defer func() {
		doabScrapeDuration.Observe(time.Since(start).Seconds())
	}()

	logger := s.logger.With().
		Str("query", query).
		Int("start_year", startYear).
		Int("end_year", endYear).
		Int("limit", limit).
		Logger()
	logger.Info().Msg("Starting scrape")

	books := make([]doab.Book, 0)
	for year := endYear; year >= startYear; year-- {
		if len(books) >= limit {
			break
		}

		doabScrapeYearsTotal.Inc()
		yearBooks, err := s.collector.CollectYear(ctx, query, year, limit-len(books))
		if err != nil {
			doabScrapesTotal.WithLabelValues("error").Inc()
			logger.Error().Err(err).Int("year", year).Msg("Scrape failed")
			return nil, fmt.Errorf("scrape %q: %w", query, err)
		}

		logger.Debug().
			Int("year", year).
			Int("collected", len(yearBooks)).
			Int("remaining", limit-len(books)-len(yearBooks)).
			Msg("Year complete")

		books = append(books, yearBooks...)
	}

	if limit < 0 {
		limit = 0
	}
	if len(books) > limit {
		books = books[:limit]
	}

	doabScrapesTotal.WithLabelValues("success").Inc()
	doabScrapeBooksTotal.Add(float64(len(books)))
	logger.Info().
		Int("count", len(books)).
		Dur("duration", time.Since(start)).
		Msg("Scrape complete")

	return books, nil
}
