package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"infiniscroll/dom"
)

// HTTP fetches pages with a plain GET request.
type HTTP struct {
	opts   Options
	client *http.Client
}

// NewHTTP creates an HTTP fetcher.
func NewHTTP(opts Options) *HTTP {
	opts = opts.withDefaults()
	return &HTTP{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout()},
	}
}

// Page implements PageFetcher.
func (f *HTTP) Page(ctx context.Context, url string) (*dom.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	// Resolve relative links against the URL after redirects
	return parse(string(body), resp.Request.URL.String())
}
