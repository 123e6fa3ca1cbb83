package engine

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"infiniscroll/dom"
	"infiniscroll/merger"
)

// StrategyKind selects how a load cycle gets more results.
type StrategyKind int

const (
	// NoStrategy means pagination is over: no pointer and no control.
	NoStrategy StrategyKind = iota
	// NativeAffordance clicks the host page's own "more results" control.
	NativeAffordance
	// LinkFetch fetches the pagination pointer and merges the result.
	LinkFetch
)

func (k StrategyKind) String() string {
	switch k {
	case NativeAffordance:
		return "native"
	case LinkFetch:
		return "link-fetch"
	default:
		return "none"
	}
}

// Strategy is resolved once at the start of each cycle.
type Strategy struct {
	Kind    StrategyKind
	Control *html.Node // NativeAffordance
	URL     string     // LinkFetch
}

// Outcome is how a load cycle ended.
type Outcome int

const (
	Merged Outcome = iota
	Exhausted
	NoContent
	Failed
	Clicked
)

func (o Outcome) String() string {
	switch o {
	case Merged:
		return "merged"
	case Exhausted:
		return "exhausted"
	case NoContent:
		return "no-content"
	case Failed:
		return "failed"
	case Clicked:
		return "clicked"
	}
	return "unknown"
}

// Cycle reports a finished load cycle. It is delivered after the fetch
// gate is idle again.
type Cycle struct {
	ID       string
	Strategy StrategyKind
	URL      string
	Outcome  Outcome
	Page     string // separator label of the merged page
	Moved    int
	Err      error
	Duration time.Duration
}

// attempt starts a load cycle unless one is already in flight or
// pagination is over.
func (e *Engine) attempt(source string) {
	if !e.gate.TryBegin() {
		e.log.Debug("load already in flight, dropping trigger", zap.String("source", source))
		return
	}

	s := e.resolve()
	switch s.Kind {
	case NativeAffordance:
		e.activate(s)
	case LinkFetch:
		e.fetch(s)
	default:
		e.gate.End()
		e.log.Debug("no more pages", zap.String("source", source))
	}
}

func (e *Engine) resolve() Strategy {
	if e.native {
		if c := e.moreControl(); c != nil {
			return Strategy{Kind: NativeAffordance, Control: c}
		}
	}
	if next, ok := e.state.Next(); ok {
		return Strategy{Kind: LinkFetch, URL: next}
	}
	return Strategy{Kind: NoStrategy}
}

// moreControl finds a visible element labelled like a "more results"
// control.
func (e *Engine) moreControl() *html.Node {
	if e.profile.MoreCandidates == "" || len(e.profile.MoreLabels) == 0 {
		return nil
	}
	var found *html.Node
	e.doc.Find(e.profile.MoreCandidates).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		n := s.Nodes[0]
		text := s.Text()
		for _, label := range e.profile.MoreLabels {
			if strings.Contains(text, label) && e.doc.Visible(n) {
				found = n
				return false
			}
		}
		return true
	})
	return found
}

// activate clicks the host page's control. Its loading is invisible to
// us, so the gate is simply held for the cooldown period; this is an
// approximation, not a completion signal.
func (e *Engine) activate(s Strategy) {
	c := Cycle{ID: newCycleID(), Strategy: s.Kind, Outcome: Clicked}
	start := time.Now()

	e.doc.Click(s.Control)
	e.log.Info("clicked more results control", zap.String("cycle", c.ID))

	e.cooldownTimer = time.AfterFunc(e.cooldown, func() {
		e.post(func() {
			e.gate.End()
			c.Duration = time.Since(start)
			e.report(c)
		})
	})
}

// fetch retrieves the next page off the engine goroutine and posts the
// result back for merging.
func (e *Engine) fetch(s Strategy) {
	c := Cycle{ID: newCycleID(), Strategy: s.Kind, URL: s.URL}
	start := time.Now()
	ind := merger.ShowIndicator(e.doc, e.profile)

	e.log.Debug("fetching next page", zap.String("cycle", c.ID), zap.String("url", s.URL))

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		page, err := e.fetcher.Page(e.ctx, s.URL)
		e.post(func() {
			c.Duration = time.Since(start)
			e.finish(c, ind, page, err)
		})
	}()
}

func (e *Engine) finish(c Cycle, ind *merger.Indicator, page *dom.Document, err error) {
	defer func() {
		e.gate.End()
		e.report(c)
	}()

	if err != nil {
		ind.Dismiss()
		c.Outcome = Failed
		c.Err = err
		return
	}

	res := e.merger.Merge(e.doc, page, c.URL, e.state, ind)
	c.Page = res.Page
	c.Moved = res.Moved
	switch res.Outcome {
	case merger.Continued:
		ind.Dismiss()
		c.Outcome = Merged
	case merger.Exhausted:
		c.Outcome = Exhausted
	default:
		ind.Dismiss()
		c.Outcome = NoContent
	}
}
