package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// MaxPages bounds how many pages a single list call collects, guarding
// against malformed or cyclic Link chains.
const MaxPages = 1000

// ErrInvalidPage is returned when a page body is not a JSON array.
var ErrInvalidPage = errors.New("page body is not a JSON array")

var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canvas_pages_fetched_total",
		Help: "Follow-up pages fetched while resolving link-header pagination",
	})

	paginationTruncatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canvas_pagination_truncated_total",
		Help: "List calls that stopped at the page ceiling",
	})
)

// PageFetcher fetches a single page by absolute URL. Implementations are
// expected to apply their own retry policy; any error is returned to the
// caller of Resolve unchanged.
type PageFetcher interface {
	FetchPage(ctx context.Context, pageURL string) (header http.Header, body []byte, err error)
}

// PageFetcherFunc adapts a function to PageFetcher.
type PageFetcherFunc func(ctx context.Context, pageURL string) (http.Header, []byte, error)

// FetchPage calls f.
func (f PageFetcherFunc) FetchPage(ctx context.Context, pageURL string) (http.Header, []byte, error) {
	return f(ctx, pageURL)
}

// Result is the accumulated collection of a resolved list call.
type Result struct {
	// Items holds every element of every page, in server order.
	Items []json.RawMessage

	// Pages is the number of pages collected, including the first.
	Pages int

	// Truncated is set when collection stopped at the page ceiling.
	Truncated bool
}

// JSON encodes the accumulated items as a single JSON array.
func (r *Result) JSON() ([]byte, error) {
	if len(r.Items) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(r.Items)
}

// Resolver follows rel="next" links until the collection is complete.
type Resolver struct {
	fetcher  PageFetcher
	maxPages int
	logger   zerolog.Logger
}

// NewResolver creates a resolver that fetches follow-up pages with fetcher.
func NewResolver(fetcher PageFetcher, logger zerolog.Logger) *Resolver {
	return &Resolver{
		fetcher:  fetcher,
		maxPages: MaxPages,
		logger:   logger,
	}
}

// Resolve collects the first page (already fetched from firstURL) and every
// page reachable through rel="next" links. Relative links are resolved
// against the URL of the page that advertised them.
func (r *Resolver) Resolve(ctx context.Context, firstURL string, header http.Header, body []byte) (*Result, error) {
	items, err := decodePage(body)
	if err != nil {
		return nil, fmt.Errorf("page 1: %w", err)
	}

	result := &Result{Items: items, Pages: 1}
	current := firstURL
	next := NextLink(header.Get("Link"))

	for next != "" && result.Pages < r.maxPages {
		pageURL, err := resolveReference(current, next)
		if err != nil {
			return nil, err
		}

		page := result.Pages + 1
		r.logger.Debug().
			Int("page", page).
			Str("url", pageURL).
			Msg("Fetching page")

		pageHeader, pageBody, err := r.fetcher.FetchPage(ctx, pageURL)
		if err != nil {
			return nil, err
		}

		pageItems, err := decodePage(pageBody)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		result.Items = append(result.Items, pageItems...)
		result.Pages = page
		pagesFetchedTotal.Inc()

		current = pageURL
		next = NextLink(pageHeader.Get("Link"))
	}

	// A collection that fills the ceiling exactly is reported as truncated
	// too; the caller cannot tell it apart from a longer one.
	if result.Pages >= r.maxPages {
		result.Truncated = true
		paginationTruncatedTotal.Inc()
		r.logger.Warn().
			Int("max_pages", r.maxPages).
			Int("items", len(result.Items)).
			Str("url", firstURL).
			Msg("Reached maximum page limit, some data may be missing")
	}

	return result, nil
}

func decodePage(body []byte) ([]json.RawMessage, error) {
	if !isArray(body) {
		return nil, ErrInvalidPage
	}
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPage, err)
	}
	return items, nil
}

func resolveReference(current, next string) (string, error) {
	ref, err := url.Parse(next)
	if err != nil {
		return "", fmt.Errorf("invalid next link %q: %w", next, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	base, err := url.Parse(current)
	if err != nil {
		return "", fmt.Errorf("invalid page url %q: %w", current, err)
	}
	return base.ResolveReference(ref).String(), nil
}
