package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"flashcard_spider/internal/extract"
	"flashcard_spider/internal/fetch"
	"flashcard_spider/internal/models"
	"flashcard_spider/internal/urlutil"
)

var ErrNotLoggedIn = errors.New("not logged in: the listing asks for a login, check the cookie")

type Options struct {
	ListURL string
	BaseURL string
	// Pages is the last page to fetch; 0 reads it from the pagination control.
	Pages int
	// Delay is the pause between the end of one page fetch and the start of the next.
	Delay time.Duration
}

type Result struct {
	Records  []models.Record
	LastPage int
	Title    string
}

// Crawler walks the pages of a single listing in order.
type Crawler struct {
	fetcher fetch.Fetcher
	opts    Options
	sleep   func(ctx context.Context, d time.Duration) error
	logger  *slog.Logger
}

func NewCrawler(fetcher fetch.Fetcher, opts Options, logger *slog.Logger) *Crawler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Crawler{
		fetcher: fetcher,
		opts:    opts,
		sleep:   pause,
		logger:  logger,
	}
}

func (c *Crawler) Crawl(ctx context.Context) (*Result, error) {
	first, err := c.fetch(ctx, 1)
	if err != nil {
		return nil, err
	}
	if extract.NeedsLogin(first.Doc) {
		return nil, ErrNotLoggedIn
	}

	lastPage := c.opts.Pages
	if lastPage <= 0 {
		lastPage = extract.LastPage(first.Doc)
		c.logger.Info("detected last page", "last_page", lastPage)
	}

	res := &Result{
		Records:  []models.Record{},
		LastPage: lastPage,
		Title:    extract.ListingTitle(first.Body, c.opts.ListURL),
	}
	res.Records = append(res.Records, c.parse(first, 1, lastPage, len(res.Records))...)

	for page := 2; page <= lastPage; page++ {
		if err := c.sleep(ctx, c.opts.Delay); err != nil {
			return nil, err
		}
		p, err := c.fetch(ctx, page)
		if err != nil {
			return nil, err
		}
		res.Records = append(res.Records, c.parse(p, page, lastPage, len(res.Records))...)
	}
	return res, nil
}

func (c *Crawler) fetch(ctx context.Context, page int) (*fetch.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pageURL := urlutil.PageURL(c.opts.ListURL, page)
	p, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page, err)
	}
	return p, nil
}

func (c *Crawler) parse(p *fetch.Page, page, lastPage, before int) []models.Record {
	records := extract.ParseBlocks(p.Doc, page, c.opts.BaseURL)
	c.logger.Info("page parsed",
		"page", page, "of", lastPage, "items", len(records), "total", before+len(records))
	return records
}

func pause(ctx context.Context, d time.Duration) error {
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
