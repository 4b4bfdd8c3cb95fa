// Package client talks to the wormhole API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ciwomuli/eve-wormhole/internal/domain/types"
	"github.com/ciwomuli/eve-wormhole/pkg/metrics"
)

const (
	defaultTimeout  = 10 * time.Second
	maxResponseSize = 8 << 20
)

// RequestClient sends requests to the API and unwraps the response envelope.
type RequestClient struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	locale  string
	token   TokenSource
}

// NewRequestClient creates a client rooted at baseURL.
func NewRequestClient(baseURL string, opts ...Option) (*RequestClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrBaseURL, baseURL)
	}
	c := &RequestClient{
		base:    u,
		http:    http.DefaultClient,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get sends a GET request without a body.
func (c *RequestClient) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post sends a POST request carrying body.
func (c *RequestClient) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Do sends one request and returns the envelope data. json.RawMessage and
// []byte bodies are sent as-is, nil sends no body, anything else is encoded
// as JSON.
func (c *RequestClient) Do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	target, err := c.resolve(path)
	if err != nil {
		return nil, err
	}
	payload, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	var reader io.Reader = http.NoBody
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.locale != "" {
		req.Header.Set("Accept-Language", c.locale)
	}
	if c.token != nil {
		tok, err := c.token(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrToken, err)
		}
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.record(target.Path, method, "error", start)
		return nil, fmt.Errorf("%s %s: %w", method, target.Path, err)
	}
	defer resp.Body.Close()
	c.record(target.Path, method, strconv.Itoa(resp.StatusCode), start)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return unwrap(resp.StatusCode, raw)
}

func (c *RequestClient) record(path, method, status string, start time.Time) {
	metrics.RecordClientRequest(path, method, status, float64(time.Since(start).Microseconds())/1000)
}

func (c *RequestClient) resolve(path string) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse path %q: %w", path, err)
	}
	u := *c.base
	u.Path = strings.TrimSuffix(c.base.Path, "/") + "/" + strings.TrimPrefix(ref.Path, "/")
	u.RawPath = ""
	u.RawQuery = ref.RawQuery
	u.Fragment = ""
	return &u, nil
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return b, nil
	case []byte:
		return b, nil
	default:
		out, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		return out, nil
	}
}

func unwrap(status int, raw []byte) (json.RawMessage, error) {
	var env types.Envelope
	decodeErr := json.Unmarshal(raw, &env)

	if status < 200 || status > 299 {
		if decodeErr != nil || env.Message == "" {
			return nil, &ResponseError{Status: status, Code: types.CodeError, Message: http.StatusText(status)}
		}
		return nil, &ResponseError{Status: status, Code: env.Code, Kind: env.Error, Message: env.Message}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, decodeErr)
	}
	if env.Code != types.CodeOK {
		return nil, &ResponseError{Status: status, Code: env.Code, Kind: env.Error, Message: env.Message}
	}
	return env.Data, nil
}
