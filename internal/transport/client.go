// Package transport is the HTTP capability used for listings, size probes
// and ranged transfers. It never retries; callers decide that.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrRangeNotSupported = errors.New("http: server ignored range request")
	ErrNotFound          = errors.New("http: resource not found")
	ErrForbidden         = errors.New("http: access forbidden")
	ErrServerError       = errors.New("http: server error")
	ErrUnknownSize       = errors.New("http: no content length")
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36"

const defaultAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8"

type Options struct {
	// Timeout bounds a size probe and the wait for response headers.
	// Default: 30s
	Timeout time.Duration

	// IdleTimeout aborts a body read after this long without data.
	// Default: 30s
	IdleTimeout time.Duration

	UserAgent string

	// RateLimit caps the combined body bandwidth in bytes per second. Zero means unlimited.
	RateLimit int64

	MaxIdleConnsPerHost int
}

func DefaultOptions() Options {
	return Options{
		Timeout:             30 * time.Second,
		IdleTimeout:         30 * time.Second,
		UserAgent:           DefaultUserAgent,
		MaxIdleConnsPerHost: 16,
	}
}

type Client struct {
	client  *http.Client
	opts    Options
	header  http.Header // never mutated after NewClient
	limiter *rate.Limiter
}

func NewClient(opts Options) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MaxIdleConnsPerHost <= 0 {
		opts.MaxIdleConnsPerHost = 16
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConnsPerHost:   opts.MaxIdleConnsPerHost,
		MaxIdleConns:          opts.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: opts.Timeout,
		ForceAttemptHTTP2:     true,
		DisableCompression:    true, // sizes must match the bytes on disk
	}

	header := make(http.Header)
	header.Set("User-Agent", opts.UserAgent)
	header.Set("Accept", defaultAccept)

	c := &Client{
		client: &http.Client{Transport: transport},
		opts:   opts,
		header: header,
	}

	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), int(max(opts.RateLimit, 32*1024)))
	}

	return c
}

func (c *Client) newRequest(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header = c.header.Clone()
	return req, nil
}

// HeadSize returns the remote Content-Length of url.
func (c *Client) HeadSize(ctx context.Context, url string) (int64, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	req, err := c.newRequest(ctx, http.MethodHead, url)
	if err != nil {
		return 0, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if err := checkStatusCode(resp.StatusCode); err != nil {
		return 0, err
	}
	if resp.ContentLength < 0 {
		return 0, ErrUnknownSize
	}

	return resp.ContentLength, nil
}

// GetRange streams url starting at byte start. With start > 0 the server
// must answer 206; a full 200 response yields ErrRangeNotSupported.
func (c *Client) GetRange(ctx context.Context, url string, start int64) (io.ReadCloser, error) {
	return c.get(ctx, url, start, c.limiter)
}

// Get streams url in full. Listing pages are not counted against the
// bandwidth cap.
func (c *Client) Get(ctx context.Context, url string) (io.ReadCloser, error) {
	return c.get(ctx, url, 0, nil)
}

func (c *Client) get(ctx context.Context, url string, start int64, limiter *rate.Limiter) (io.ReadCloser, error) {
	wctx, wd := newWatchdog(ctx, c.opts.IdleTimeout)

	req, err := c.newRequest(wctx, http.MethodGet, url)
	if err != nil {
		wd.Stop()
		return nil, err
	}
	if start > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", start))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		err = idleCause(wctx, c.opts.IdleTimeout, err)
		wd.Stop()
		return nil, err
	}

	if err := checkRangeStatus(resp.StatusCode, start); err != nil {
		resp.Body.Close()
		wd.Stop()
		return nil, err
	}

	return &body{rc: resp.Body, ctx: wctx, wd: wd, limiter: limiter}, nil
}

func checkRangeStatus(code int, start int64) error {
	if start == 0 {
		return checkStatusCode(code)
	}

	switch code {
	case http.StatusPartialContent:
		return nil
	case http.StatusOK, http.StatusRequestedRangeNotSatisfiable:
		return ErrRangeNotSupported
	default:
		if err := checkStatusCode(code); err != nil {
			return err
		}
		return fmt.Errorf("unexpected status code for range request: %d", code)
	}
}

// checkStatusCode returns an appropriate error for non-success status codes.
func checkStatusCode(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusForbidden, code == http.StatusUnauthorized:
		return fmt.Errorf("%w: %d", ErrForbidden, code)
	case code >= 500:
		return fmt.Errorf("%w: %d", ErrServerError, code)
	default:
		return fmt.Errorf("unexpected status code: %d", code)
	}
}
