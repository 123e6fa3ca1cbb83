package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"infiniscroll/config"
	"infiniscroll/dom"
	"infiniscroll/engine"
	"infiniscroll/fetcher"
	"infiniscroll/sites"
)

// Consecutive failed cycles before the crawl gives up.
const maxFailures = 2

type crawlOptions struct {
	URL     string
	Config  *config.Config
	Fetcher fetcher.PageFetcher
	Logger  *zap.Logger
	Out     io.Writer
}

type crawlSummary struct {
	Cycles    int
	Merged    int
	Exhausted bool
}

// crawl loads the first page, keeps triggering load cycles on it and
// writes the merged document to opts.Out.
func crawl(ctx context.Context, opts crawlOptions) (crawlSummary, error) {
	var sum crawlSummary
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	cfg := opts.Config

	profile := sites.ForURL(opts.URL)
	if profile == nil {
		return sum, fmt.Errorf("no site profile matches %s", opts.URL)
	}

	doc, err := opts.Fetcher.Page(ctx, opts.URL)
	if err != nil {
		return sum, fmt.Errorf("fetching first page: %w", err)
	}
	log.Info("loaded first page", zap.String("site", profile.Name), zap.String("url", opts.URL))

	cycles := make(chan engine.Cycle, 4)
	eng := engine.New(doc, profile, opts.Fetcher,
		engine.WithLogger(log),
		engine.WithThreshold(cfg.Scroll.ThresholdPx),
		engine.WithDebounce(cfg.Debounce()),
		engine.WithCooldown(cfg.Cooldown()),
		engine.WithNativeAffordance(cfg.Affordance.Enabled),
		engine.WithCycleHook(func(c engine.Cycle) {
			select {
			case cycles <- c:
			default:
			}
		}),
	)
	eng.Start()
	defer eng.Stop()

	// Upper bound on one cycle.
	wait := time.Duration(cfg.Fetcher.TimeoutSeconds)*time.Second + cfg.Cooldown() + 5*time.Second

	failures := 0
loop:
	for sum.Cycles < cfg.Crawl.MaxPages {
		kind, err := eng.Strategy()
		if err != nil {
			return sum, err
		}
		if kind == engine.NoStrategy {
			sum.Exhausted = true
			break
		}

		eng.Trigger()

		var c engine.Cycle
		select {
		case c = <-cycles:
		case <-time.After(wait):
			log.Warn("no load cycle finished in time", zap.Duration("waited", wait))
			break loop
		case <-ctx.Done():
			return sum, ctx.Err()
		}
		sum.Cycles++

		switch c.Outcome {
		case engine.Merged, engine.Clicked:
			failures = 0
			if c.Outcome == engine.Merged {
				sum.Merged++
			}
		case engine.Exhausted:
			sum.Merged++
			sum.Exhausted = true
			break loop
		case engine.NoContent:
			log.Info("next page had no results", zap.String("url", c.URL))
			break loop
		case engine.Failed:
			failures++
			if errors.Is(c.Err, fetcher.ErrBlocked) || failures >= maxFailures {
				log.Warn("giving up", zap.Int("failures", failures), zap.Error(c.Err))
				break loop
			}
		}
	}

	var out string
	var renderErr error
	if err := eng.Inspect(func(d *dom.Document) { out, renderErr = d.HTML() }); err != nil {
		return sum, err
	}
	if renderErr != nil {
		return sum, fmt.Errorf("rendering document: %w", renderErr)
	}
	if _, err := io.WriteString(opts.Out, out); err != nil {
		return sum, fmt.Errorf("writing output: %w", err)
	}
	return sum, nil
}
