package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"flashcard_spider/internal/config"
	"flashcard_spider/internal/db"
	"flashcard_spider/internal/fetch"
	"flashcard_spider/internal/models"
	"flashcard_spider/internal/output"
	"flashcard_spider/internal/session"
)

var ErrDisallowed = errors.New("robots.txt disallows the listing")

// Run performs one complete scrape of the configured listing and writes the
// outputs. Nothing is written unless every page was fetched.
func Run(ctx context.Context, cfg *config.SpiderConfig, logger *slog.Logger, stdout io.Writer) error {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	listURL := cfg.ListURL()
	cookies := session.ParseCookieString(cfg.Auth.Cookie)
	if len(cookies) == 0 {
		logger.Warn("cookie string is empty, the listing will probably ask for a login",
			"env", config.CookieEnv)
	} else {
		logger.Info("using cookies", "names", cookies.Names())
	}

	transport, err := fetch.NewCollyTransport(fetch.TransportOptions{
		UserAgent:      cfg.HTTP.UserAgent,
		AcceptLanguage: cfg.HTTP.AcceptLanguage,
		Referer:        listURL,
		Timeout:        cfg.Timeout(),
		CookieURL:      cfg.Site.BaseURL,
		Cookies:        cookies,
	})
	if err != nil {
		return err
	}
	client := fetch.NewClient(transport,
		fetch.WithMaxAttempts(cfg.HTTP.MaxAttempts),
		fetch.WithBackoff(cfg.Backoff()),
		fetch.WithLogger(logger),
	)

	if cfg.HTTP.RespectRobots {
		allowed, err := client.RobotsAllowed(ctx, listURL, cfg.HTTP.UserAgent)
		if err != nil {
			return err
		}
		if !allowed {
			return fmt.Errorf("%w: %s", ErrDisallowed, listURL)
		}
	}

	var sink *db.MongoDB
	if cfg.Mongo.Connection != "" {
		sink, err = db.NewMongoDB(ctx, cfg.Mongo, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := sink.Close(context.Background()); err != nil {
				logger.Warn("can't close MongoDB", "err", err)
			}
		}()
	}

	logger.Info("starting crawl", "list", listURL, "pages", cfg.LastPage(), "delay", cfg.Delay())
	started := time.Now()

	crawler := NewCrawler(client, Options{
		ListURL: listURL,
		BaseURL: cfg.Site.BaseURL,
		Pages:   cfg.LastPage(),
		Delay:   cfg.Delay(),
	}, logger)

	res, crawlErr := crawler.Crawl(ctx)
	if sink != nil {
		run := newCrawlRun(cfg, listURL, started, res, crawlErr)
		if err := sink.SaveRun(ctx, run); err != nil {
			logger.Warn("can't save crawl run", "err", err)
		}
	}
	if crawlErr != nil {
		return crawlErr
	}

	writer := &output.Writer{Dir: cfg.Output.Dir, Name: cfg.OutputName(), Logger: logger}
	if err := writer.WriteRecords(res.Records); err != nil {
		return err
	}

	var stats *models.Stats
	if cfg.Output.Stats {
		s := output.ComputeStats(res.Records, cfg.Site.ListID, listURL, res.Title)
		if err := writer.WriteStats(s); err != nil {
			return err
		}
		stats = &s
	}

	if sink != nil {
		if err := sink.SaveRecords(ctx, cfg.Site.ListID, res.Records); err != nil {
			return err
		}
	}

	logger.Info("crawl finished", "records", len(res.Records), "took", time.Since(started).Round(time.Millisecond))
	output.WriteSummary(stdout, len(res.Records), stats)
	return nil
}

func newCrawlRun(cfg *config.SpiderConfig, listURL string, started time.Time, res *Result, err error) models.CrawlRun {
	run := models.CrawlRun{
		ListID:     cfg.Site.ListID,
		SourceURL:  listURL,
		StartedAt:  started.Unix(),
		FinishedAt: time.Now().Unix(),
		Status:     "success",
	}
	if res != nil {
		run.PagesFetched = res.LastPage
		run.RecordCount = len(res.Records)
	}
	if err != nil {
		run.Status = "error"
		run.ErrorMessage = err.Error()
	}
	return run
}
