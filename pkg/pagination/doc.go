// Package pagination resolves Canvas link-header pagination.
//
// Canvas list endpoints return one page per response and advertise the
// following page in an RFC 8288 Link header:
//
//	Link: <https://canvas.example.edu/api/v1/courses?page=2&per_page=10>; rel="next",
//	      <https://canvas.example.edu/api/v1/courses?page=1&per_page=10>; rel="first"
//
// A Resolver follows rel="next" links one page at a time, appending each
// page's items to an accumulator, until no further link is present or
// MaxPages pages have been collected. Pages are never fetched in parallel:
// the next URL is only known once the previous response has arrived.
//
// Example usage:
//
//	resolver := pagination.NewResolver(fetcher, logger)
//	result, err := resolver.Resolve(ctx, firstURL, resp.Header, resp.Body)
//	// result.Items holds every element of every page, first page first
//
// Reaching MaxPages is not an error; the partial result is returned with
// Truncated set and a warning logged.
package pagination
