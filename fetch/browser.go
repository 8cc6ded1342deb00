package fetch

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/chromedp/chromedp"
	"github.com/pevans/blogscout"
)

// loadMoreJS attempts one click of a "load more"-style control, matched by
// its text, aria-label, or class/id. Returns whether anything was clicked.
const loadMoreJS = `(() => {
	const phrases = ['load more', 'show more', 'view more', 'more posts', 'more articles', 'more results'];
	const els = Array.from(document.querySelectorAll('button, a, [role="button"]'));
	const target = els.find(el => {
		const text = (el.innerText || '').trim().toLowerCase();
		const aria = (el.getAttribute('aria-label') || '').toLowerCase();
		const cls = ((typeof el.className === 'string' ? el.className : '') + ' ' + (el.id || '')).toLowerCase();
		return phrases.some(p => text === p || text.startsWith(p) || aria.includes(p)) ||
			/load[-_]?more|show[-_]?more|infinite/.test(cls);
	});
	if (target) { target.click(); return true; }
	return false;
})()`

const scrollToBottomJS = `window.scrollTo(0, document.body.scrollHeight)`
const pageHeightJS = `document.body.scrollHeight`

// Browser drives a headless Chrome instance to exhaust JavaScript-driven
// infinite-scroll listings: click load-more if present, scroll to the
// bottom, wait, and stop once the page height stabilizes.
type Browser struct {
	cfg    blogscout.Config
	logger *log.Logger
}

// NewBrowser builds the headless-browser tier.
func NewBrowser(cfg blogscout.Config, logger *log.Logger) *Browser {
	return &Browser{cfg: cfg, logger: logger}
}

// FetchScrolled loads a page, repeatedly triggers load-more/scroll cycles,
// and returns the fully rendered DOM. Iterations are bounded by
// ScrollMaxIterations, and scrolling ends early once the page height holds
// steady for ScrollStableIterations consecutive rounds.
func (b *Browser) FetchScrolled(ctx context.Context, targetURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Headless,
		chromedp.UserAgent(b.cfg.UserAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	timeoutCtx, timeoutCancel := context.WithTimeout(browserCtx, b.cfg.BrowserTimeout)
	defer timeoutCancel()

	if err := chromedp.Run(timeoutCtx,
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body"),
	); err != nil {
		return "", fmt.Errorf("failed to load %s: %w", targetURL, err)
	}

	lastHeight := int64(0)
	stable := 0

	for iteration := 0; iteration < b.cfg.ScrollMaxIterations; iteration++ {
		var clicked bool
		if err := chromedp.Run(timeoutCtx, chromedp.Evaluate(loadMoreJS, &clicked)); err != nil {
			b.logger.Debug("load-more click failed", "url", targetURL, "err", err)
		}

		var height int64
		if err := chromedp.Run(timeoutCtx,
			chromedp.Evaluate(scrollToBottomJS, nil),
			chromedp.Sleep(b.cfg.ScrollWait),
			chromedp.Evaluate(pageHeightJS, &height),
		); err != nil {
			return "", fmt.Errorf("failed to scroll %s: %w", targetURL, err)
		}

		if height == lastHeight && !clicked {
			stable++
			if stable >= b.cfg.ScrollStableIterations {
				b.logger.Debug("page height stable, stopping scroll",
					"url", targetURL, "iterations", iteration+1)
				break
			}
		} else {
			stable = 0
		}
		lastHeight = height
	}

	var html string
	if err := chromedp.Run(timeoutCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("failed to capture DOM for %s: %w", targetURL, err)
	}
	return html, nil
}
