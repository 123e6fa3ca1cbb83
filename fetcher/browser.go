package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"infiniscroll/dom"
)

// Browser renders pages in headless Chrome before parsing them. It is
// slower than HTTP but sees result pages that need JavaScript.
type Browser struct {
	opts Options
}

// NewBrowser creates a headless Chrome fetcher.
func NewBrowser(opts Options) *Browser {
	return &Browser{opts: opts.withDefaults()}
}

// stealthScript masks the most common automation fingerprints.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
window.chrome = { runtime: {}, loadTimes: function() {}, csi: function() {}, app: {} };
Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
Object.defineProperty(navigator, 'plugins', {
    get: () => [
        { name: 'Chrome PDF Plugin', filename: 'internal-pdf-viewer', description: 'Portable Document Format' },
        { name: 'Chrome PDF Viewer', filename: 'mhjfbmdgcfjbbpaeojofohoefgiehjai', description: '' },
    ],
});
`

// consentButtons are tried in order on Google's cookie wall.
var consentButtons = []string{
	`#L2AGLb`,
	`button[id*="accept"]`,
	`button[aria-label*="Accept"]`,
}

// userDataDir keeps cookies (notably the consent cookie) between fetches.
func userDataDir() string {
	dir, _ := os.UserCacheDir()
	return filepath.Join(dir, "infiniscroll-chrome-profile")
}

func (b *Browser) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoFirstRun,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("password-store", "basic"),
		chromedp.Flag("use-mock-keychain", true),
		chromedp.Flag("headless", "new"),
		chromedp.UserAgent(b.opts.UserAgent),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserDataDir(userDataDir()),
	}
	if b.opts.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(b.opts.ChromePath))
	}
	return opts
}

// timeout gives browser fetches extra room over plain HTTP.
func (b *Browser) timeout() time.Duration {
	t := b.opts.Timeout()
	if t < 30*time.Second {
		return 45 * time.Second
	}
	return t + 15*time.Second
}

// Page implements PageFetcher.
func (b *Browser) Page(ctx context.Context, targetURL string) (*dom.Document, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, b.allocatorOptions()...)
	defer allocCancel()

	ctx, cancel := context.WithTimeout(allocCtx, b.timeout())
	defer cancel()

	ctx, cancel = chromedp.NewContext(ctx)
	defer cancel()

	var body, finalURL string
	err := chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
		network.SetExtraHTTPHeaders(network.Headers(map[string]interface{}{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
		})),
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return acceptConsent(ctx, targetURL)
		}),
		chromedp.OuterHTML("html", &body, chromedp.ByQuery),
		chromedp.Location(&finalURL),
	)
	if err != nil {
		return nil, fmt.Errorf("browser fetch %s: %w", targetURL, err)
	}

	return parse(body, finalURL)
}

// acceptConsent dismisses Google's consent interstitial and returns to the
// requested page. Pages without one are left untouched.
func acceptConsent(ctx context.Context, targetURL string) error {
	var title, location string
	if err := chromedp.Title(&title).Do(ctx); err != nil {
		return nil
	}
	if err := chromedp.Location(&location).Do(ctx); err != nil {
		return nil
	}
	if !strings.Contains(title, "Before you continue") && !isConsentHost(location) {
		return nil
	}

	for _, sel := range consentButtons {
		var exists bool
		err := chromedp.Evaluate(`document.querySelector('`+sel+`') !== null`, &exists).Do(ctx)
		if err != nil || !exists {
			continue
		}
		if err := chromedp.Click(sel, chromedp.ByQuery).Do(ctx); err != nil {
			continue
		}
		break
	}

	if err := chromedp.Sleep(time.Second).Do(ctx); err != nil {
		return err
	}
	if err := chromedp.Navigate(targetURL).Do(ctx); err != nil {
		return err
	}
	return chromedp.WaitReady("body", chromedp.ByQuery).Do(ctx)
}

func isConsentHost(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	return strings.HasPrefix(u.Host, "consent.")
}
