package scraper

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"
)

// ChromeRenderer loads pages in a headless Chrome instance so that prices
// injected by client-side scripts become visible to the markup scan.
type ChromeRenderer struct {
	userAgent  string
	navTimeout time.Duration
	settle     time.Duration
}

// NewChromeRenderer creates a renderer. navTimeout bounds the whole
// navigation; settle is a fixed delay after load for scripts to finish.
func NewChromeRenderer(userAgent string, navTimeout, settle time.Duration) *ChromeRenderer {
	return &ChromeRenderer{
		userAgent:  userAgent,
		navTimeout: navTimeout,
		settle:     settle,
	}
}

// Render opens the URL and returns the rendered HTML. The browser is released
// on every exit path via the deferred cancels.
func (r *ChromeRenderer) Render(ctx context.Context, url string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.UserAgent(r.userAgent))

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancelRun := context.WithTimeout(browserCtx, r.navTimeout)
	defer cancelRun()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(r.settle),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", errors.Wrap(err, "failed to render page")
	}
	return html, nil
}
