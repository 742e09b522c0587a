package mandates

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var browserSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "scholar_browser_sessions_active",
	Help: "Headless browser sessions currently open",
})

// Browser opens page-rendering sessions.
type Browser interface {
	NewSession(ctx context.Context) (Session, error)
}

// Session renders pages. Close must be called exactly once when done.
type Session interface {
	// Render navigates to url and returns the rendered HTML.
	Render(url, lang string) (string, error)
	Close()
}

// DefaultUserAgent is a desktop Chrome user agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// hides the usual automation fingerprints; installed before navigation so it
// runs ahead of the page's own scripts
const stealthScript = `
	Object.defineProperty(navigator, 'webdriver', {
		get: () => undefined,
	});
	window.chrome = { runtime: {} };
	Object.defineProperty(navigator, 'plugins', {
		get: () => [1, 2, 3, 4, 5],
	});
`

// BrowserConfig configures the headless Chrome browser.
type BrowserConfig struct {
	Headless  bool
	UserAgent string
	Timeout   time.Duration
}

// DefaultBrowserConfig returns a headless configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Headless:  true,
		UserAgent: DefaultUserAgent,
		Timeout:   60 * time.Second,
	}
}

// ChromeBrowser drives a local Chrome through the DevTools protocol.
type ChromeBrowser struct {
	options []chromedp.ExecAllocatorOption
	timeout time.Duration
}

// NewChromeBrowser creates a browser with stealth flags applied.
func NewChromeBrowser(cfg BrowserConfig) *ChromeBrowser {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.Flag("disable-extensions", true),
	)
	if !cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	return &ChromeBrowser{options: opts, timeout: cfg.Timeout}
}

// NewSession starts Chrome and opens a tab.
func (b *ChromeBrowser) NewSession(ctx context.Context) (Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, b.options...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	timeoutCtx, timeoutCancel := context.WithTimeout(taskCtx, b.timeout)

	cancel := func() {
		timeoutCancel()
		taskCancel()
		allocCancel()
	}

	// starts the browser process
	if err := chromedp.Run(timeoutCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	browserSessionsActive.Inc()
	return &chromeSession{ctx: timeoutCtx, cancel: cancel}, nil
}

type chromeSession struct {
	ctx    context.Context
	cancel func()
}

func (s *chromeSession) Render(url, lang string) (string, error) {
	var html string
	if err := chromedp.Run(s.ctx, renderActions(url, lang, &html)...); err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	return html, nil
}

func renderActions(url, lang string, html *string) []chromedp.Action {
	return []chromedp.Action{
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": lang}),
		stealthAction(stealthScript),
		navigateAction(url),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", html),
	}
}

// stealthAction registers a script that runs in every new document.
type stealthAction string

func (a stealthAction) Do(ctx context.Context) error {
	_, err := page.AddScriptToEvaluateOnNewDocument(string(a)).Do(ctx)
	return err
}

// navigateAction loads a URL in the current tab.
type navigateAction string

func (a navigateAction) Do(ctx context.Context) error {
	return chromedp.Navigate(string(a)).Do(ctx)
}

func (s *chromeSession) Close() {
	s.cancel()
	browserSessionsActive.Dec()
}
