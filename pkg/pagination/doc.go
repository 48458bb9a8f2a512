// Package pagination walks a company's filing history across the EDGAR
// submissions pages.
//
// The first page (submissions/CIK##########.json) holds the most recent
// filings under filings.recent as parallel arrays, plus an ordered list of
// continuation pages under filings.files. Each continuation page holds the
// same parallel arrays at its top level.
//
// # Basic Usage
//
//	agg := pagination.NewAggregator(edgarClient, endpoint.Default())
//
//	descriptors, err := agg.Collect(ctx, req)
//	if err != nil {
//		var ierr *pagination.IntegrityError
//		if errors.As(err, &ierr) {
//			// the archive returned arrays of different lengths
//		}
//		return err
//	}
//
// Pages are fetched one at a time, in listed order, and each page at most
// once. Collection stops as soon as the request limit is reached, even in
// the middle of a page.
//
// # Metrics
//
//   - edgar_pagination_pages_total{kind} - Pages fetched (first, continuation)
//   - edgar_pagination_descriptors_total - Filings selected for download
package pagination
