// Package engine drives infinite scrolling on a live results document.
//
// All document access happens on one goroutine that drains the engine's
// event queue. Scroll events, mutation notifications, timer expiries and
// fetch completions are posted onto that queue, so merges are strictly
// sequential and the document needs no locking.
package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"infiniscroll/dom"
	"infiniscroll/fetcher"
	"infiniscroll/links"
	"infiniscroll/merger"
	"infiniscroll/pagination"
	"infiniscroll/sites"
)

// Default trigger timing.
const (
	DefaultThreshold = 800
	DefaultDebounce  = 100 * time.Millisecond
	DefaultCooldown  = 2000 * time.Millisecond
)

var (
	// ErrStopped is returned by calls made after the engine stopped.
	ErrStopped = errors.New("engine stopped")
	// ErrNotStarted is returned by calls made before Start.
	ErrNotStarted = errors.New("engine not started")
)

// Viewport is a scroll position report from the host.
type Viewport struct {
	ScrollY        int
	Height         int
	DocumentHeight int
}

// DistanceToBottom is how far the bottom edge of the viewport is from the
// end of the document.
func (v Viewport) DistanceToBottom() int {
	return v.DocumentHeight - (v.ScrollY + v.Height)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithThreshold sets the distance to bottom, in pixels, at which a load
// cycle starts.
func WithThreshold(px int) Option {
	return func(e *Engine) { e.threshold = px }
}

// WithDebounce sets the quiet period applied to scroll bursts.
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) { e.debounce = d }
}

// WithCooldown sets how long a native "more" click holds the fetch gate.
func WithCooldown(d time.Duration) Option {
	return func(e *Engine) { e.cooldown = d }
}

// WithNativeAffordance enables or disables clicking the host page's own
// "more results" control.
func WithNativeAffordance(enabled bool) Option {
	return func(e *Engine) { e.native = enabled }
}

// WithCycleHook registers fn to run when a load cycle ends. Hooks run on
// the engine goroutine and must not call Inspect.
func WithCycleHook(fn func(Cycle)) Option {
	return func(e *Engine) {
		if fn != nil {
			e.hooks = append(e.hooks, fn)
		}
	}
}

// Engine is the trigger monitor and load cycle coordinator for one
// document.
type Engine struct {
	doc     *dom.Document
	profile *sites.Profile
	fetcher fetcher.PageFetcher
	state   *pagination.State
	gate    *pagination.Gate
	links   *links.Normalizer
	merger  *merger.Merger
	log     *zap.Logger

	threshold int
	debounce  time.Duration
	cooldown  time.Duration
	native    bool
	hooks     []func(Cycle)

	queue   chan func()
	mutated chan struct{}

	// Owned by the loop goroutine.
	scrollSeq     uint64
	scrollTimer   *time.Timer
	cooldownTimer *time.Timer
	unobserve     func()

	ctx       context.Context
	cancel    context.CancelFunc
	started   atomic.Bool
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// New attaches an engine to doc. The pagination pointer is read from the
// document's native next-page link now, as on page load.
func New(doc *dom.Document, profile *sites.Profile, f fetcher.PageFetcher, opts ...Option) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		doc:       doc,
		profile:   profile,
		fetcher:   f,
		state:     pagination.NewState(doc, profile),
		gate:      pagination.NewGate(),
		log:       zap.NewNop(),
		threshold: DefaultThreshold,
		debounce:  DefaultDebounce,
		cooldown:  DefaultCooldown,
		native:    true,
		queue:     make(chan func(), 64),
		mutated:   make(chan struct{}, 1),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.links = links.New(profile, e.log)
	e.merger = merger.New(profile, e.log)
	return e
}

// Start normalizes the document's links, subscribes to its mutations and
// begins processing events.
func (e *Engine) Start() {
	e.startOnce.Do(func() {
		e.unobserve = e.doc.Observe(func([]dom.Mutation) {
			select {
			case e.mutated <- struct{}{}:
			default:
				// A pass is already pending
			}
		})
		e.wg.Add(1)
		go e.loop()
		e.started.Store(true)
	})
}

// Stop shuts the engine down and waits for in-flight work. A pending
// fetch is canceled.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.cancel()
		e.wg.Wait()
	})
}

func (e *Engine) loop() {
	defer e.wg.Done()
	defer e.shutdown()

	e.links.Run(e.doc)

	for {
		select {
		case <-e.ctx.Done():
			return
		case fn := <-e.queue:
			// Queued work observes a normalized document
			e.drainMutations()
			fn()
		case <-e.mutated:
			e.links.Run(e.doc)
		}
	}
}

func (e *Engine) drainMutations() {
	select {
	case <-e.mutated:
		e.links.Run(e.doc)
	default:
	}
}

func (e *Engine) shutdown() {
	if e.scrollTimer != nil {
		e.scrollTimer.Stop()
	}
	if e.cooldownTimer != nil {
		e.cooldownTimer.Stop()
	}
	if e.unobserve != nil {
		e.unobserve()
	}
}

// post schedules fn on the engine goroutine. It reports false, dropping
// fn, before Start and once the engine is stopping.
func (e *Engine) post(fn func()) bool {
	if !e.started.Load() {
		return false
	}
	select {
	case <-e.ctx.Done():
		return false
	default:
	}
	select {
	case e.queue <- fn:
		return true
	case <-e.ctx.Done():
		return false
	}
}

// do runs fn on the engine goroutine and waits for it.
func (e *Engine) do(fn func()) error {
	if !e.started.Load() {
		return ErrNotStarted
	}
	done := make(chan struct{})
	if !e.post(func() {
		fn()
		close(done)
	}) {
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-e.ctx.Done():
		return ErrStopped
	}
}

// Scroll reports a scroll position. Only the last report of a burst is
// evaluated, once the debounce period passes without another one. Reports
// made before Start are dropped.
func (e *Engine) Scroll(v Viewport) {
	e.post(func() { e.onScroll(v) })
}

func (e *Engine) onScroll(v Viewport) {
	e.scrollSeq++
	seq := e.scrollSeq
	if e.scrollTimer != nil {
		e.scrollTimer.Stop()
	}
	e.scrollTimer = time.AfterFunc(e.debounce, func() {
		e.post(func() {
			// A later scroll superseded this one
			if seq != e.scrollSeq {
				return
			}
			if v.DistanceToBottom() <= e.threshold {
				e.attempt("scroll")
			}
		})
	})
}

// Trigger attempts a load cycle immediately, as if the user had reached
// the bottom of the page. It is dropped before Start.
func (e *Engine) Trigger() {
	e.post(func() { e.attempt("trigger") })
}

// Inspect runs fn against the live document on the engine goroutine and
// waits for it to return.
func (e *Engine) Inspect(fn func(*dom.Document)) error {
	return e.do(func() { fn(e.doc) })
}

// FetchState reports whether a load cycle is in flight.
func (e *Engine) FetchState() (pagination.FetchState, error) {
	var s pagination.FetchState
	err := e.do(func() { s = e.gate.State() })
	return s, err
}

// Strategy reports how the next load cycle would get more results. It
// starts nothing. NoStrategy means pagination is over and a trigger will
// not produce a cycle.
func (e *Engine) Strategy() (StrategyKind, error) {
	var k StrategyKind
	err := e.do(func() { k = e.resolve().Kind })
	return k, err
}

// Pagination reports the next fetch target and whether pagination is
// exhausted.
func (e *Engine) Pagination() (next string, exhausted bool, err error) {
	err = e.do(func() {
		next, _ = e.state.Next()
		exhausted = e.state.Exhausted()
	})
	return next, exhausted, err
}

func (e *Engine) report(c Cycle) {
	fields := []zap.Field{
		zap.String("cycle", c.ID),
		zap.Stringer("strategy", c.Strategy),
		zap.Stringer("outcome", c.Outcome),
		zap.Duration("took", c.Duration),
	}
	if c.URL != "" {
		fields = append(fields, zap.String("url", c.URL))
	}
	if c.Err != nil {
		e.log.Warn("load cycle failed", append(fields, zap.Error(c.Err))...)
	} else {
		e.log.Info("load cycle finished", append(fields, zap.Int("moved", c.Moved))...)
	}
	for _, h := range e.hooks {
		h(c)
	}
}

func newCycleID() string {
	return uuid.NewString()
}
