package client

import (
	"context"
	"net/http"
	"time"
)

// TokenSource yields the bearer token for a request. An empty token sends no
// Authorization header.
type TokenSource func(ctx context.Context) (string, error)

// StaticToken returns a TokenSource that always yields tok.
func StaticToken(tok string) TokenSource {
	return func(context.Context) (string, error) { return tok, nil }
}

// Option applies a configuration option to the RequestClient.
type Option func(*RequestClient)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *RequestClient) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds every request. Zero disables the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *RequestClient) {
		if d >= 0 {
			c.timeout = d
		}
	}
}

// WithLocale sets the Accept-Language header.
func WithLocale(locale string) Option {
	return func(c *RequestClient) {
		c.locale = locale
	}
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *RequestClient) {
		c.token = ts
	}
}

// WithToken sends a fixed bearer token.
func WithToken(tok string) Option {
	return WithTokenSource(StaticToken(tok))
}
