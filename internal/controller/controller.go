// Package controller orchestrates crawl sessions: it drives the Crawling
// Engine, normalizes the returned pages, persists them, and keeps the
// session record current throughout.
package controller

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pagemill/pagemill/internal/crawl"
	"github.com/pagemill/pagemill/internal/normalizer"
	"github.com/pagemill/pagemill/internal/progress"
)

// progressEvery is how many persisted pages pass between intermediate
// session progress writes.
const progressEvery = 10

// StatusReporter is the persistence surface the controller writes through.
// Session updates are fire-and-forget; page writes report their errors.
type StatusReporter interface {
	UpdateSession(ctx context.Context, siteID string, update crawl.SessionUpdate)
	UpsertPage(ctx context.Context, record crawl.PageRecord) error
}

// Controller runs crawl sessions. One Controller serves all sites; callers
// are expected not to start two concurrent runs for the same site.
type Controller struct {
	engine     crawl.Engine
	reporter   StatusReporter
	classifier crawl.Classifier
	archiver   crawl.Archiver
	clock      crawl.Clock
	emitter    progress.Emitter
	logger     *zap.Logger
}

// New wires a Controller. Engine, reporter, and clock are required; the
// classifier, archiver, and emitter may be nil when those stages are
// disabled.
func New(
	engine crawl.Engine,
	rep StatusReporter,
	classifier crawl.Classifier,
	archiver crawl.Archiver,
	clk crawl.Clock,
	emitter progress.Emitter,
	logger *zap.Logger,
) (*Controller, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if rep == nil {
		return nil, fmt.Errorf("reporter is required")
	}
	if clk == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		engine:     engine,
		reporter:   rep,
		classifier: classifier,
		archiver:   archiver,
		clock:      clk,
		emitter:    emitter,
		logger:     logger,
	}, nil
}

// RunCrawl executes one crawl session for a site. The session row moves
// through crawling to complete with the final page count; when
// classification is requested it then passes through classifying and lands
// back on complete. A fatal engine failure ends the run at error with the
// message persisted. Individual page failures are skipped and never fail
// the run.
func (c *Controller) RunCrawl(ctx context.Context, siteID, seedURL string, opts crawl.CrawlOptions) (crawl.Summary, error) {
	if siteID == "" {
		return crawl.Summary{}, fmt.Errorf("site id is required")
	}
	if seedURL == "" {
		return crawl.Summary{}, fmt.Errorf("seed url is required")
	}
	runID := progress.NewRunID()
	started := c.clock.Now()
	logger := c.logger.With(zap.String("site_id", siteID))

	// A new run resets the visible session state: counter back to zero and
	// any stale error message cleared.
	zero := 0
	noError := ""
	c.reporter.UpdateSession(ctx, siteID, crawl.SessionUpdate{
		Status:       crawl.StatusCrawling,
		PagesCrawled: &zero,
		PageLimit:    &opts.PageLimit,
		ErrorMessage: &noError,
	})
	c.emit(progress.Event{
		RunID: runID, SiteID: siteID, TS: started, Stage: progress.StageSessionStart,
	})

	result, err := c.engine.CrawlSite(ctx, crawl.CrawlRequest{
		SeedURL:      seedURL,
		PageLimit:    opts.PageLimit,
		ExcludePaths: opts.ExcludePaths,
	})
	if err != nil {
		return crawl.Summary{}, c.failRun(ctx, runID, siteID, started, fmt.Errorf("crawl site %s: %w", siteID, err))
	}
	if result.Status != crawl.EngineStatusCompleted {
		return crawl.Summary{}, c.failRun(ctx, runID, siteID, started,
			fmt.Errorf("crawl site %s: engine returned status %q", siteID, result.Status))
	}
	logger.Info("engine crawl finished",
		zap.String("status", result.Status),
		zap.Int("pages", len(result.Pages)),
	)

	pages := 0
	for _, raw := range result.Pages {
		record, err := normalizer.Normalize(raw, siteID, c.clock.Now())
		if err != nil {
			c.skipPage(runID, siteID, raw.Metadata.SourceURL, "normalize failed", err)
			continue
		}
		if err := c.reporter.UpsertPage(ctx, record); err != nil {
			c.skipPage(runID, siteID, record.URL, "persist failed", err)
			continue
		}
		c.archivePage(ctx, siteID, record.URL, raw)

		pages++
		c.emit(progress.Event{
			RunID: runID, SiteID: siteID, TS: c.clock.Now(),
			Stage: progress.StagePageDone, URL: record.URL, Pages: int64(pages),
		})
		if pages%progressEvery == 0 {
			n := pages
			c.reporter.UpdateSession(ctx, siteID, crawl.SessionUpdate{
				Status:       crawl.StatusCrawling,
				PagesCrawled: &n,
			})
		}
	}

	final := pages
	c.reporter.UpdateSession(ctx, siteID, crawl.SessionUpdate{
		Status:       crawl.StatusComplete,
		PagesCrawled: &final,
	})

	// The crawl is already marked complete before classification starts;
	// the session passes through classifying and returns to complete.
	if opts.RunClassifier && c.classifier != nil {
		c.runClassifier(ctx, runID, siteID, pages, logger)
		c.reporter.UpdateSession(ctx, siteID, crawl.SessionUpdate{
			Status:       crawl.StatusComplete,
			PagesCrawled: &final,
		})
	}
	c.emit(progress.Event{
		RunID: runID, SiteID: siteID, TS: c.clock.Now(),
		Stage: progress.StageSessionDone, Pages: int64(pages),
		Dur: c.clock.Now().Sub(started),
	})
	logger.Info("crawl session complete", zap.Int("pages_processed", pages))

	return crawl.Summary{Success: true, PagesProcessed: pages}, nil
}

// ScrapePage fetches, normalizes, and persists a single page without
// touching the site's session record.
func (c *Controller) ScrapePage(ctx context.Context, siteID string, req crawl.ScrapeRequest) (crawl.PageRecord, error) {
	if siteID == "" {
		return crawl.PageRecord{}, fmt.Errorf("site id is required")
	}
	raw, err := c.engine.ScrapePage(ctx, req)
	if err != nil {
		return crawl.PageRecord{}, fmt.Errorf("scrape %s: %w", req.URL, err)
	}
	record, err := normalizer.Normalize(raw, siteID, c.clock.Now())
	if err != nil {
		return crawl.PageRecord{}, fmt.Errorf("normalize %s: %w", req.URL, err)
	}
	if err := c.reporter.UpsertPage(ctx, record); err != nil {
		return crawl.PageRecord{}, err
	}
	c.archivePage(ctx, siteID, record.URL, raw)
	return record, nil
}

// failRun records a fatal engine failure. The pages counter is left alone
// so the session keeps whatever progress the previous run reported.
func (c *Controller) failRun(ctx context.Context, runID [16]byte, siteID string, started time.Time, err error) error {
	msg := err.Error()
	c.reporter.UpdateSession(ctx, siteID, crawl.SessionUpdate{
		Status:       crawl.StatusError,
		ErrorMessage: &msg,
	})
	c.emit(progress.Event{
		RunID: runID, SiteID: siteID, TS: c.clock.Now(),
		Stage: progress.StageSessionError, Reason: msg,
		Dur: c.clock.Now().Sub(started),
	})
	c.logger.Error("crawl session failed", zap.String("site_id", siteID), zap.Error(err))
	return err
}

func (c *Controller) skipPage(runID [16]byte, siteID, pageURL, reason string, err error) {
	c.logger.Warn("skipping page",
		zap.String("site_id", siteID),
		zap.String("url", pageURL),
		zap.String("reason", reason),
		zap.Error(err),
	)
	c.emit(progress.Event{
		RunID: runID, SiteID: siteID, TS: c.clock.Now(),
		Stage: progress.StagePageSkip, URL: pageURL, Reason: reason,
	})
}

// archivePage stores the rawest HTML variant available. Best-effort only.
func (c *Controller) archivePage(ctx context.Context, siteID, pageURL string, raw crawl.RawPageResult) {
	if c.archiver == nil {
		return
	}
	html := raw.RawHTML
	if html == "" {
		html = raw.HTML
	}
	if html == "" {
		return
	}
	if _, err := c.archiver.SavePage(ctx, siteID, pageURL, []byte(html)); err != nil {
		c.logger.Warn("page archive failed",
			zap.String("site_id", siteID),
			zap.String("url", pageURL),
			zap.Error(err),
		)
	}
}

func (c *Controller) runClassifier(ctx context.Context, runID [16]byte, siteID string, pages int, logger *zap.Logger) {
	n := pages
	c.reporter.UpdateSession(ctx, siteID, crawl.SessionUpdate{
		Status:       crawl.StatusClassifying,
		PagesCrawled: &n,
	})
	c.emit(progress.Event{
		RunID: runID, SiteID: siteID, TS: c.clock.Now(), Stage: progress.StageClassifyStart,
	})
	// Classification is fire-and-forget: a broker hiccup must not turn a
	// finished crawl into a failed one.
	if err := c.classifier.Classify(ctx, siteID); err != nil {
		logger.Warn("classifier trigger failed", zap.Error(err))
	}
	c.emit(progress.Event{
		RunID: runID, SiteID: siteID, TS: c.clock.Now(), Stage: progress.StageClassifyDone,
	})
}

func (c *Controller) emit(evt progress.Event) {
	if c.emitter == nil {
		return
	}
	c.emitter.Emit(evt)
}
