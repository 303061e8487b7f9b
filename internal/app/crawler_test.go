package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"flashcard_spider/internal/fetch"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

const listURL = "https://study4.com/flashcards/lists/354/"

type fakeFetcher struct {
	pages map[string]string
	errs  map[string]error
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*fetch.Page, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	body, ok := f.pages[url]
	if !ok {
		return nil, &fetch.StatusError{URL: url, StatusCode: 404, Attempts: 3}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	return &fetch.Page{URL: url, Body: []byte(body), Doc: doc}, nil
}

func listingPage(lastPage int, words ...string) string {
	var b strings.Builder
	b.WriteString(`<html><head><title>Flashcards</title></head><body><div class="termlist">`)
	for _, w := range words {
		fmt.Fprintf(&b, `<div class="termlist-item contentblock"><h2 class="h3">%s <span>(noun)</span></h2></div>`, w)
	}
	b.WriteString(`</div><ul class="pagination">`)
	for i := 1; i <= lastPage; i++ {
		fmt.Fprintf(&b, `<li class="page-item"><a class="page-link" href="?page=%d">%d</a></li>`, i, i)
	}
	b.WriteString(`</ul></body></html>`)
	return b.String()
}

func pageURL(n int) string {
	if n == 1 {
		return listURL
	}
	return fmt.Sprintf("%s?page=%d", listURL, n)
}

func TestCrawlFetchesPagesInOrder(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		pageURL(1): listingPage(3, "alpha", "beta"),
		pageURL(2): listingPage(3, "gamma"),
		pageURL(3): listingPage(3),
	}}

	res, err := NewCrawler(f, Options{ListURL: listURL, BaseURL: "https://study4.com", Pages: 3}, nil).
		Crawl(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{pageURL(1), pageURL(2), pageURL(3)}, f.calls)
	require.Equal(t, 3, res.LastPage)
	require.Len(t, res.Records, 3)

	got := make([]string, 0, len(res.Records))
	for _, r := range res.Records {
		got = append(got, fmt.Sprintf("%s@%d", r.Word, r.Page))
	}
	require.Equal(t, []string{"alpha@1", "beta@1", "gamma@2"}, got)
	require.Equal(t, "noun", res.Records[0].PartOfSpeech)
}

func TestCrawlDetectsLastPage(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		pageURL(1): listingPage(2, "alpha"),
		pageURL(2): listingPage(2, "beta"),
	}}

	res, err := NewCrawler(f, Options{ListURL: listURL}, nil).Crawl(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, res.LastPage)
	require.Len(t, f.calls, 2)
	require.Len(t, res.Records, 2)
}

func TestCrawlStopsWhenNotLoggedIn(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		pageURL(1): `<html><body><a href="/login/">Đăng nhập</a></body></html>`,
	}}

	res, err := NewCrawler(f, Options{ListURL: listURL, Pages: 5}, nil).Crawl(context.Background())
	require.ErrorIs(t, err, ErrNotLoggedIn)
	require.Nil(t, res)
	require.Len(t, f.calls, 1)
}

func TestCrawlLoginGuardOnlyOnFirstPage(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		pageURL(1): listingPage(2, "alpha"),
		pageURL(2): `<html><body>Please login</body></html>`,
	}}

	res, err := NewCrawler(f, Options{ListURL: listURL, Pages: 2}, nil).Crawl(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
}

func TestCrawlAbortsOnFetchError(t *testing.T) {
	boom := errors.New("boom")
	f := &fakeFetcher{
		pages: map[string]string{
			pageURL(1): listingPage(4, "alpha"),
			pageURL(2): listingPage(4, "beta"),
		},
		errs: map[string]error{pageURL(3): boom},
	}

	res, err := NewCrawler(f, Options{ListURL: listURL, Pages: 4}, nil).Crawl(context.Background())
	require.ErrorIs(t, err, boom)
	require.Nil(t, res)
	require.Equal(t, []string{pageURL(1), pageURL(2), pageURL(3)}, f.calls)
}

func TestCrawlReturnsStatusError(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{}}

	_, err := NewCrawler(f, Options{ListURL: listURL, Pages: 1}, nil).Crawl(context.Background())
	var statusErr *fetch.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, 404, statusErr.StatusCode)
}

func TestCrawlHonoursCancelledContext(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		pageURL(1): listingPage(3, "alpha"),
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCrawler(f, Options{ListURL: listURL, Pages: 3, Delay: 50}, nil).Crawl(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, f.calls)
}

type slowFetcher struct {
	fakeFetcher
	latency time.Duration
	starts  []time.Time
	ends    []time.Time
}

func (f *slowFetcher) Fetch(ctx context.Context, url string) (*fetch.Page, error) {
	f.starts = append(f.starts, time.Now())
	time.Sleep(f.latency)
	p, err := f.fakeFetcher.Fetch(ctx, url)
	f.ends = append(f.ends, time.Now())
	return p, err
}

func TestCrawlPausesAfterSlowFetches(t *testing.T) {
	const delay = 80 * time.Millisecond
	f := &slowFetcher{
		fakeFetcher: fakeFetcher{pages: map[string]string{
			pageURL(1): listingPage(3, "alpha"),
			pageURL(2): listingPage(3, "beta"),
			pageURL(3): listingPage(3, "gamma"),
		}},
		latency: 2 * delay,
	}

	_, err := NewCrawler(f, Options{ListURL: listURL, Pages: 3, Delay: delay}, nil).Crawl(context.Background())
	require.NoError(t, err)
	require.Len(t, f.starts, 3)

	for i := 1; i < len(f.starts); i++ {
		gap := f.starts[i].Sub(f.ends[i-1])
		require.GreaterOrEqual(t, gap, delay, "gap before fetch %d", i+1)
	}
}

func TestCrawlPausesOnlyBetweenPages(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		pageURL(1): listingPage(3, "alpha"),
		pageURL(2): listingPage(3, "beta"),
		pageURL(3): listingPage(3, "gamma"),
	}}

	var pauses []time.Duration
	c := NewCrawler(f, Options{ListURL: listURL, Pages: 3, Delay: 500 * time.Millisecond}, nil)
	c.sleep = func(_ context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return nil
	}

	_, err := c.Crawl(context.Background())
	require.NoError(t, err)
	require.Equal(t, []time.Duration{500 * time.Millisecond, 500 * time.Millisecond}, pauses)
}

type cancellingFetcher struct {
	fakeFetcher
	cancel context.CancelFunc
}

func (f *cancellingFetcher) Fetch(ctx context.Context, url string) (*fetch.Page, error) {
	defer f.cancel()
	return f.fakeFetcher.Fetch(ctx, url)
}

func TestCrawlStopsWhenPauseIsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := &cancellingFetcher{
		fakeFetcher: fakeFetcher{pages: map[string]string{
			pageURL(1): listingPage(2, "alpha"),
			pageURL(2): listingPage(2, "beta"),
		}},
		cancel: cancel,
	}

	_, err := NewCrawler(f, Options{ListURL: listURL, Pages: 2, Delay: time.Hour}, nil).Crawl(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, []string{pageURL(1)}, f.calls)
}
