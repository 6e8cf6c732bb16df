package doab

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/doab-scraper/internal/testutil"
	"github.com/Sternrassler/doab-scraper/pkg/client"
)

func newTestClient(t *testing.T) *client.Client {
	t.Helper()
	cfg := client.DefaultConfig("doab-search-test/1.0")
	cfg.Timeout = 200 * time.Millisecond
	cfg.Retry.Delay = time.Millisecond
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	return c
}

func TestSearchParams_Values(t *testing.T) {
	params := SearchParams{Query: "Computer Science", Year: 2020, Offset: 200, BatchSize: 100}

	values := params.Values()

	expected := url.Values{
		"query":  {"Computer Science 2020"},
		"expand": {"metadata"},
		"limit":  {"100"},
		"offset": {"200"},
	}
	for key, want := range expected {
		if got := values.Get(key); got != want[0] {
			t.Errorf("%s = %q, want %q", key, got, want[0])
		}
	}
	if len(values) != len(expected) {
		t.Errorf("unexpected extra params: %v", values)
	}
}

func TestNewSearcher_DefaultURL(t *testing.T) {
	s := NewSearcher(newTestClient(t), "")
	if s.baseURL != DefaultSearchURL {
		t.Errorf("baseURL = %q, want %q", s.baseURL, DefaultSearchURL)
	}
}

func TestSearcher_FetchPage(t *testing.T) {
	mock := testutil.NewMockDOAB()
	defer mock.Close()

	mock.SetPage("Physics 2020", 100, `{"records":[{"title":"Optics","publicationDate":"2020-01-01"}]}`)

	searcher := NewSearcher(newTestClient(t), mock.URL())
	records, err := searcher.FetchPage(context.Background(), SearchParams{
		Query: "Physics", Year: 2020, Offset: 100, BatchSize: 100,
	})
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if title, _ := records[0].String("title"); title != "Optics" {
		t.Errorf("title = %q, want Optics", title)
	}

	req := mock.Requests()[0]
	if req.Get("expand") != "metadata" || req.Get("limit") != "100" || req.Get("offset") != "100" {
		t.Errorf("request params = %v", req)
	}
	if accept := mock.LastHeader().Get("Accept"); accept != "application/json" {
		t.Errorf("Accept = %q, want application/json", accept)
	}
}

func TestSearcher_FetchPage_UnknownPageIsEmpty(t *testing.T) {
	mock := testutil.NewMockDOAB()
	defer mock.Close()

	searcher := NewSearcher(newTestClient(t), mock.URL())
	records, err := searcher.FetchPage(context.Background(), SearchParams{Query: "Nothing", Year: 1999, BatchSize: 100})
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("len(records) = %d, want 0", len(records))
	}
}

func TestSearcher_FetchPage_InvalidJSON(t *testing.T) {
	mock := testutil.NewMockDOAB()
	defer mock.Close()

	mock.SetPage("Broken 2020", 0, `<html>maintenance</html>`)

	searcher := NewSearcher(newTestClient(t), mock.URL())
	_, err := searcher.FetchPage(context.Background(), SearchParams{Query: "Broken", Year: 2020, BatchSize: 100})
	if err == nil || !strings.Contains(err.Error(), "decode page") {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestSearcher_FetchPage_UpstreamStatus(t *testing.T) {
	mock := testutil.NewMockDOAB()
	defer mock.Close()
	mock.SetStatus(http.StatusBadGateway)

	searcher := NewSearcher(newTestClient(t), mock.URL())
	_, err := searcher.FetchPage(context.Background(), SearchParams{Query: "Physics", Year: 2020, BatchSize: 100})

	var upstreamErr *client.UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstreamErr.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d", upstreamErr.StatusCode)
	}
}
