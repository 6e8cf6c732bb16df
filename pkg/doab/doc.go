// Package doab binds the Directory of Open Access Books search API.
//
// It covers the three things the scraper needs from the upstream:
//
//   - SearchParams: one page request (query text, year hint, offset, batch size)
//   - RawRecord / ParsePage: permissive decoding of a page body, which is either
//     a bare JSON list or an object with a "records" field
//   - Normalize: the per-field decision table that flattens a RawRecord into a Book
//
// Example usage:
//
//	searcher := doab.NewSearcher(httpClient, doab.DefaultSearchURL)
//	records, err := searcher.FetchPage(ctx, doab.SearchParams{
//		Query:     "Computer Science",
//		Year:      2020,
//		BatchSize: doab.DefaultBatchSize,
//	})
//	for _, rec := range records {
//		book := doab.Normalize(rec)
//		if book.Year == "2020" {
//			// keep
//		}
//	}
//
// Normalization never fails: missing, null or mistyped fields fall through to
// the next source and finally to NotAvailable.
package doab
