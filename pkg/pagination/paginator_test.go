package pagination

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Sternrassler/doab-scraper/pkg/doab"
)

// fakeFetcher serves pages keyed by offset and records every request.
type fakeFetcher struct {
	pages map[int][]doab.RawRecord
	err   error
	calls []doab.SearchParams
}

func (f *fakeFetcher) FetchPage(ctx context.Context, params doab.SearchParams) ([]doab.RawRecord, error) {
	f.calls = append(f.calls, params)
	if f.err != nil {
		return nil, f.err
	}
	return f.pages[params.Offset], nil
}

func record(title, date string) doab.RawRecord {
	return doab.RawRecord{"title": title, "publicationDate": date}
}

func titles(books []doab.Book) []string {
	out := make([]string, len(books))
	for i, b := range books {
		out[i] = b.Title
	}
	return out
}

func TestNewPaginator_DefaultBatchSize(t *testing.T) {
	p := NewPaginator(&fakeFetcher{}, Config{})
	if p.config.BatchSize != doab.DefaultBatchSize {
		t.Errorf("BatchSize = %d, want %d", p.config.BatchSize, doab.DefaultBatchSize)
	}
}

func TestCollectYear_FiltersByYear(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[int][]doab.RawRecord{
		0: {record("A", "2020-01-01"), record("B", "2019-06-01"), record("C", "2020"), {}},
	}}
	p := NewPaginator(fetcher, Config{BatchSize: 4})

	books, err := p.CollectYear(context.Background(), "Physics", 2020, 10)
	if err != nil {
		t.Fatalf("CollectYear: %v", err)
	}

	if got := fmt.Sprint(titles(books)); got != "[A C]" {
		t.Errorf("titles = %s, want [A C]", got)
	}
	for _, b := range books {
		if b.Year != "2020" {
			t.Errorf("book %q has year %q", b.Title, b.Year)
		}
	}
}

func TestCollectYear_PaginatesUntilEmptyPage(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[int][]doab.RawRecord{
		0: {record("A", "2021"), record("x", "2000")},
		2: {record("B", "2021"), record("y", "2001")},
		4: {},
		6: {record("never", "2021")},
	}}
	p := NewPaginator(fetcher, Config{BatchSize: 2})

	books, err := p.CollectYear(context.Background(), "History", 2021, 10)
	if err != nil {
		t.Fatalf("CollectYear: %v", err)
	}

	if got := fmt.Sprint(titles(books)); got != "[A B]" {
		t.Errorf("titles = %s, want [A B]", got)
	}
	if len(fetcher.calls) != 3 {
		t.Fatalf("calls = %d, want 3 (stop at empty page)", len(fetcher.calls))
	}
	for i, call := range fetcher.calls {
		if call.Offset != i*2 || call.BatchSize != 2 || call.Year != 2021 || call.Query != "History" {
			t.Errorf("call %d = %+v", i, call)
		}
	}
}

func TestCollectYear_StopsMidPage(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[int][]doab.RawRecord{
		0:   {record("A", "2020"), record("B", "2020"), record("C", "2020")},
		100: {record("D", "2020")},
	}}
	p := NewPaginator(fetcher, DefaultConfig())

	books, err := p.CollectYear(context.Background(), "Physics", 2020, 2)
	if err != nil {
		t.Fatalf("CollectYear: %v", err)
	}

	if got := fmt.Sprint(titles(books)); got != "[A B]" {
		t.Errorf("titles = %s, want [A B]", got)
	}
	if len(fetcher.calls) != 1 {
		t.Errorf("calls = %d, want 1", len(fetcher.calls))
	}
}

func TestCollectYear_NoRemainingBudget(t *testing.T) {
	for _, remaining := range []int{0, -5} {
		fetcher := &fakeFetcher{}
		p := NewPaginator(fetcher, DefaultConfig())

		books, err := p.CollectYear(context.Background(), "Physics", 2020, remaining)
		if err != nil {
			t.Fatalf("CollectYear: %v", err)
		}
		if books == nil || len(books) != 0 {
			t.Errorf("remaining=%d: books = %v, want empty non-nil", remaining, books)
		}
		if len(fetcher.calls) != 0 {
			t.Errorf("remaining=%d: calls = %d, want 0", remaining, len(fetcher.calls))
		}
	}
}

func TestCollectYear_PropagatesFetchError(t *testing.T) {
	fetchErr := errors.New("retries exhausted")
	p := NewPaginator(&fakeFetcher{err: fetchErr}, DefaultConfig())

	books, err := p.CollectYear(context.Background(), "Physics", 2020, 5)
	if !errors.Is(err, fetchErr) {
		t.Errorf("expected wrapped fetch error, got %v", err)
	}
	if books != nil {
		t.Errorf("expected no partial results, got %v", books)
	}
}

func TestCollectYear_ErrorAfterPartialPage(t *testing.T) {
	calls := 0
	fetcher := pageFunc(func(params doab.SearchParams) ([]doab.RawRecord, error) {
		calls++
		if params.Offset == 0 {
			return []doab.RawRecord{record("A", "2020")}, nil
		}
		return nil, errors.New("timeout")
	})
	p := NewPaginator(fetcher, Config{BatchSize: 1})

	books, err := p.CollectYear(context.Background(), "Physics", 2020, 5)
	if err == nil {
		t.Fatal("expected error")
	}
	if books != nil {
		t.Errorf("partial results must be discarded, got %v", books)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

// pageFunc adapts a function to PageFetcher.
type pageFunc func(params doab.SearchParams) ([]doab.RawRecord, error)

func (f pageFunc) FetchPage(ctx context.Context, params doab.SearchParams) ([]doab.RawRecord, error) {
	return f(params)
}
