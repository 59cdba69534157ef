package client

import (
	"net/http"

	"github.com/rs/zerolog"
)

// loggingTransport logs every outbound request before handing it to base.
// It never modifies the request.
type loggingTransport struct {
	base   http.RoundTripper
	logger zerolog.Logger
}

func newLoggingTransport(base http.RoundTripper, logger zerolog.Logger) *loggingTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &loggingTransport{base: base, logger: logger}
}

// RoundTrip implements http.RoundTripper.
func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.logger.Info().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("attempt", RetryCount(req.Context())).
		Msg("Canvas API request")

	return t.base.RoundTrip(req)
}
