// Package fetcher retrieves the next results page and parses it into a
// detached document, over plain HTTP or through headless Chrome.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"infiniscroll/dom"
)

// PageFetcher retrieves a results page as a detached document.
type PageFetcher interface {
	Page(ctx context.Context, url string) (*dom.Document, error)
}

// ErrBlocked is returned when the host answered with a bot challenge
// instead of results.
var ErrBlocked = errors.New("blocked response")

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetching %s: status %d", e.URL, e.Status)
}

// Options configures the fetcher behavior.
type Options struct {
	UserAgent      string
	TimeoutSeconds int
	ChromePath     string // Path to Chrome binary (empty = auto-detect)
	UseBrowser     bool
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		TimeoutSeconds: 30,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.UserAgent == "" {
		o.UserAgent = d.UserAgent
	}
	if o.TimeoutSeconds <= 0 {
		o.TimeoutSeconds = d.TimeoutSeconds
	}
	return o
}

// Timeout returns the configured timeout duration.
func (o Options) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// New returns the fetcher selected by opts.
func New(opts Options) PageFetcher {
	if opts.UseBrowser {
		return NewBrowser(opts)
	}
	return NewHTTP(opts)
}

// parse turns a fetched body into a detached document, rejecting
// challenge pages.
func parse(body, finalURL string) (*dom.Document, error) {
	if blocked, reason := IsBlockedResponse(body); blocked {
		return nil, fmt.Errorf("%w: %s", ErrBlocked, reason)
	}
	doc, err := dom.ParseString(body, finalURL)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", finalURL, err)
	}
	return doc, nil
}

func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}

// IsBlockedResponse checks if the HTML indicates a blocked/challenged page.
func IsBlockedResponse(html string) (bool, string) {
	if contains(html, "unusual traffic from your computer") ||
		contains(html, "detected unusual traffic") {
		return true, "Google CAPTCHA"
	}
	if contains(html, "recaptcha") && len(html) < 10000 {
		return true, "reCAPTCHA challenge"
	}
	if contains(html, "Just a moment...") ||
		contains(html, "Checking your browser") ||
		contains(html, "cf-browser-verification") {
		return true, "Cloudflare challenge"
	}
	if contains(html, "Before you continue") && contains(html, "consent.google") {
		return true, "Google consent page"
	}
	return false, ""
}
