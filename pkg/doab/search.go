package doab

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Sternrassler/doab-scraper/pkg/logging"
	"github.com/rs/zerolog"
)

// DefaultSearchURL is the DOAB REST search endpoint.
const DefaultSearchURL = "https://directory.doabooks.org/rest/search"

// DefaultBatchSize is the page size requested from the upstream.
const DefaultBatchSize = 100

// SearchParams describes one page request.
type SearchParams struct {
	Query     string
	Year      int
	Offset    int
	BatchSize int
}

// Values encodes the parameters for the search endpoint. The year is appended
// to the query text; the upstream has no dedicated year filter.
func (p SearchParams) Values() url.Values {
	return url.Values{
		"query":  {fmt.Sprintf("%s %d", p.Query, p.Year)},
		"expand": {"metadata"},
		"limit":  {strconv.Itoa(p.BatchSize)},
		"offset": {strconv.Itoa(p.Offset)},
	}
}

// Fetcher performs one GET. *client.Client implements it.
type Fetcher interface {
	Get(ctx context.Context, rawURL string, params url.Values, headers http.Header) (*http.Response, error)
}

// Searcher fetches and decodes search result pages.
type Searcher struct {
	fetcher Fetcher
	baseURL string
	logger  zerolog.Logger
}

// NewSearcher creates a searcher against baseURL (DefaultSearchURL when empty).
func NewSearcher(fetcher Fetcher, baseURL string) *Searcher {
	if baseURL == "" {
		baseURL = DefaultSearchURL
	}
	return &Searcher{
		fetcher: fetcher,
		baseURL: baseURL,
		logger:  logging.NewLogger("doab-search"),
	}
}

// FetchPage requests one page and returns its raw records.
func (s *Searcher) FetchPage(ctx context.Context, params SearchParams) ([]RawRecord, error) {
	headers := http.Header{"Accept": {"application/json"}}

	resp, err := s.fetcher.Get(ctx, s.baseURL, params.Values(), headers)
	if err != nil {
		return nil, fmt.Errorf("search %q year %d offset %d: %w", params.Query, params.Year, params.Offset, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read page body: %w", err)
	}

	records, err := ParsePage(body)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("query", params.Query).
		Int("year", params.Year).
		Int("offset", params.Offset).
		Int("records", len(records)).
		Msg("Fetched search page")

	return records, nil
}
