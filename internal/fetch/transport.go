package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly"
)

// Response is the raw result of a single GET attempt.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport performs exactly one GET, whatever the status code.
type Transport interface {
	Get(ctx context.Context, url string) (*Response, error)
}

type TransportOptions struct {
	UserAgent      string
	AcceptLanguage string
	Referer        string
	Timeout        time.Duration
	CookieURL      string
	Cookies        []*http.Cookie
}

// CollyTransport drives a synchronous colly collector. Every Get works on a
// clone so callbacks never leak between requests; clones share the cookie jar.
// colly does not carry the context into the HTTP request, so ctx is only
// checked before the visit and an in-flight request runs until it completes or
// hits the request timeout, even after cancellation.
type CollyTransport struct {
	collector *colly.Collector
	opts      TransportOptions
}

func NewCollyTransport(opts TransportOptions) (*CollyTransport, error) {
	c := colly.NewCollector(
		colly.UserAgent(opts.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.IgnoreRobotsTxt = true
	c.ParseHTTPErrorResponse = true
	if opts.Timeout > 0 {
		c.SetRequestTimeout(opts.Timeout)
	}

	if len(opts.Cookies) > 0 {
		if err := c.SetCookies(opts.CookieURL, opts.Cookies); err != nil {
			return nil, fmt.Errorf("can't install cookies for %s: %w", opts.CookieURL, err)
		}
	}

	return &CollyTransport{collector: c, opts: opts}, nil
}

func (t *CollyTransport) Get(ctx context.Context, url string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := t.collector.Clone()
	c.OnRequest(func(r *colly.Request) {
		if t.opts.UserAgent != "" {
			r.Headers.Set("User-Agent", t.opts.UserAgent)
		}
		if t.opts.AcceptLanguage != "" {
			r.Headers.Set("Accept-Language", t.opts.AcceptLanguage)
		}
		if t.opts.Referer != "" {
			r.Headers.Set("Referer", t.opts.Referer)
		}
	})

	var resp *Response
	c.OnResponse(func(r *colly.Response) {
		header := http.Header{}
		if r.Headers != nil {
			header = r.Headers.Clone()
		}
		resp = &Response{
			StatusCode: r.StatusCode,
			Header:     header,
			Body:       r.Body,
		}
	})

	if err := c.Visit(url); err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("no response received for %s", url)
	}
	return resp, nil
}
