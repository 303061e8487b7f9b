package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = 1200 * time.Millisecond
)

// Page is a fetched and parsed HTML document.
type Page struct {
	URL  string
	Body []byte
	Doc  *goquery.Document
}

// Fetcher returns a parsed page or an error that should abort the run.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// StatusError is returned once every attempt for URL has failed.
type StatusError struct {
	URL        string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("GET %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
	}
	return fmt.Sprintf("GET %s failed after %d attempts: HTTP %d %s",
		e.URL, e.Attempts, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

type Client struct {
	transport   Transport
	maxAttempts int
	backoff     time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	logger      *slog.Logger
}

type ClientOption func(*Client)

func WithMaxAttempts(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBackoff sets the base delay; attempt n waits n*d before the next one.
func WithBackoff(d time.Duration) ClientOption {
	return func(c *Client) {
		if d >= 0 {
			c.backoff = d
		}
	}
}

func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSleep replaces the backoff sleeper, mostly for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) ClientOption {
	return func(c *Client) {
		if fn != nil {
			c.sleep = fn
		}
	}
}

func NewClient(transport Transport, opts ...ClientOption) *Client {
	c := &Client{
		transport:   transport,
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
		sleep:       sleepContext,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Fetch(ctx context.Context, url string) (*Page, error) {
	var (
		lastStatus int
		lastErr    error
	)
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err := c.transport.Get(ctx, url)
		switch {
		case err != nil:
			lastStatus, lastErr = 0, err
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
		case resp.StatusCode != http.StatusOK:
			lastStatus, lastErr = resp.StatusCode, nil
		default:
			return parsePage(url, resp)
		}

		if attempt == c.maxAttempts {
			break
		}
		wait := c.backoff * time.Duration(attempt)
		c.logger.Warn("fetch failed, retrying",
			"url", url, "attempt", attempt, "status", lastStatus, "err", lastErr, "wait", wait)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	return nil, &StatusError{
		URL:        url,
		StatusCode: lastStatus,
		Attempts:   c.maxAttempts,
		Err:        lastErr,
	}
}

func parsePage(url string, resp *Response) (*Page, error) {
	body, err := decodeBody(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("can't decode %s: %w", url, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("can't parse %s: %w", url, err)
	}
	return &Page{URL: url, Body: body, Doc: doc}, nil
}

// decodeBody converts legacy encodings to UTF-8. Bodies that already are valid
// UTF-8 are returned untouched, since colly converts declared charsets itself.
func decodeBody(body []byte, contentType string) ([]byte, error) {
	if utf8.Valid(body) {
		return body, nil
	}
	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(reader)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
