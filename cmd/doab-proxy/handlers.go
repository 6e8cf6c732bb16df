package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/doab-scraper/internal/config"
	"github.com/Sternrassler/doab-scraper/pkg/client"
	"github.com/Sternrassler/doab-scraper/pkg/doab"
	"github.com/Sternrassler/doab-scraper/pkg/logging"
	"github.com/Sternrassler/doab-scraper/pkg/metrics"
	"github.com/Sternrassler/doab-scraper/pkg/scraper"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// bookScraper runs one scrape. *scraper.Scraper implements it.
type bookScraper interface {
	Scrape(ctx context.Context, req scraper.Request) ([]doab.Book, error)
}

type scrapeResponse struct {
	Count int         `json:"count"`
	Books []doab.Book `json:"books"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// api holds the handler dependencies.
type api struct {
	scraper       bookScraper
	redis         *redis.Client
	defaultLimit  int
	maxYearSpan   int
	scrapeTimeout time.Duration
	logger        zerolog.Logger
}

func newRouter(s bookScraper, redisClient *redis.Client, cfg *config.Config) http.Handler {
	a := &api{
		scraper:       s,
		redis:         redisClient,
		defaultLimit:  cfg.Scrape.DefaultLimit,
		maxYearSpan:   cfg.Scrape.MaxYearSpan,
		scrapeTimeout: scrapeTimeout(cfg.Server.WriteTimeout),
		logger:        logging.NewLogger("doab-proxy"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", a.rootHandler)
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", a.readyHandler)
	mux.HandleFunc("/scrape", a.scrapeHandler)
	mux.Handle("/metrics", metrics.Handler())

	return corsMiddleware(cfg.Server.CORSOrigins)(mux)
}

func (a *api) rootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"message": "DOAB Scraper API is running!"})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyHandler reports 503 while Redis is configured but unreachable.
func (a *api) readyHandler(w http.ResponseWriter, r *http.Request) {
	if a.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.logger.Warn().Err(err).Msg("Readiness check failed")
			http.Error(w, "redis not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (a *api) scrapeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	req, err := parseScrapeRequest(r, a.defaultLimit, a.maxYearSpan)
	if err != nil {
		a.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	ctx := r.Context()
	if a.scrapeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.scrapeTimeout)
		defer cancel()
	}

	start := time.Now()
	books, err := a.scraper.Scrape(ctx, req)
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, client.ErrUpstreamBlocked):
			status = http.StatusServiceUnavailable
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			status = http.StatusGatewayTimeout
		}
		a.logger.Error().
			Err(err).
			Str("query", req.Query).
			Int("status", status).
			Msg("Scrape request failed")
		a.writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	a.logger.Info().
		Str("query", req.Query).
		Int("start_year", req.StartYear).
		Int("end_year", req.EndYear).
		Int("limit", req.Limit).
		Int("count", len(books)).
		Dur("duration", time.Since(start)).
		Msg("Scrape request served")

	a.writeJSON(w, http.StatusOK, scrapeResponse{Count: len(books), Books: books})
}

// scrapeTimeout leaves a tenth of the server write timeout for writing the
// response. Zero means no deadline.
func scrapeTimeout(writeTimeout time.Duration) time.Duration {
	if writeTimeout <= 0 {
		return 0
	}
	return writeTimeout - writeTimeout/10
}

func parseScrapeRequest(r *http.Request, defaultLimit, maxYearSpan int) (scraper.Request, error) {
	q := r.URL.Query()

	req := scraper.Request{
		Query: strings.TrimSpace(q.Get("query")),
		Limit: defaultLimit,
	}
	if req.Query == "" {
		return req, errors.New("query is required")
	}

	var err error
	if req.StartYear, err = intParam(q.Get("start_year"), "start_year", true); err != nil {
		return req, err
	}
	if req.EndYear, err = intParam(q.Get("end_year"), "end_year", true); err != nil {
		return req, err
	}
	if raw := q.Get("limit"); raw != "" {
		if req.Limit, err = intParam(raw, "limit", false); err != nil {
			return req, err
		}
	}

	lo, hi := req.StartYear, req.EndYear
	if lo > hi {
		lo, hi = hi, lo
	}
	if maxYearSpan > 0 && uint64(hi)-uint64(lo) >= uint64(maxYearSpan) {
		return req, fmt.Errorf("year range may cover at most %d years", maxYearSpan)
	}

	return req, nil
}

func intParam(raw, name string, required bool) (int, error) {
	if raw == "" {
		if required {
			return 0, fmt.Errorf("%s is required", name)
		}
		return 0, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}

func (a *api) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error().Err(err).Msg("Failed to write response")
	}
}

// corsMiddleware allows the configured origins; "*" allows any origin.
// Preflight requests are answered with 204.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	originSet := make(map[string]bool)
	for _, origin := range allowedOrigins {
		originSet[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" && (originSet["*"] || originSet[origin]) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
