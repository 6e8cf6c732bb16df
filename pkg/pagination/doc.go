// Package pagination walks offset-paginated DOAB search results for one
// publication year.
//
// The upstream only accepts the year as a text hint appended to the query, so
// every page is filtered locally on the normalized Year field. Pages are
// fetched strictly one after another:
//
//	paginator := pagination.NewPaginator(searcher, pagination.DefaultConfig())
//	books, err := paginator.CollectYear(ctx, "Computer Science", 2020, 50)
//
// CollectYear:
//   - requests pages at offset 0, batch, 2*batch, ... until a page is empty
//   - keeps only records whose extracted year equals the target year
//   - returns as soon as `remaining` books were collected, mid-page if needed
//   - propagates fetch errors without partial results
package pagination
