package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

const defaultNavigateTimeout = 60 * time.Second

var blockedResources = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.svg", "*.ico",
	"*.mp4", "*.webm",
	"*.woff", "*.woff2", "*.ttf", "*.eot", "*.otf",
	"*google-analytics*", "*googletagmanager*", "*doubleclick*",
}

var ErrNotNavigated = errors.New("no page loaded")

type ChromeOptions struct {
	Headless bool
	Width    int
	Height   int
	// Env is passed to the browser process, e.g. DISPLAY for a headful run.
	Env         []string
	ExecPath    string
	UserDataDir string
	UserAgent   string
	// Cookie is a Cookie header value set on the target URL before loading.
	Cookie string
	// Timeout bounds each Navigate and HTML call.
	Timeout       time.Duration
	PageLoadDelay time.Duration
	BlockMedia    bool
	Logger        zerolog.Logger
}

// Chrome is a browser session backed by one Chrome process and one tab.
type Chrome struct {
	opts ChromeOptions
	log  zerolog.Logger

	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc

	navigated bool
	location  string

	closeOnce sync.Once
	closeErr  error
}

// NewChrome starts Chrome and opens a blank tab. The browser lives until
// Close is called or ctx is cancelled.
func NewChrome(ctx context.Context, opts ChromeOptions) (*Chrome, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultNavigateTimeout
	}
	log := opts.Logger

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, AllocatorOptions(opts)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			log.Debug().Msgf("chrome: "+format, args...)
		}),
	)

	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	log.Debug().Bool("headless", opts.Headless).Int("width", opts.Width).Int("height", opts.Height).Msg("browser started")

	return &Chrome{
		opts:        opts,
		log:         log,
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
	}, nil
}

// bound derives a context from the tab that is cancelled by ctx or by the
// per-call timeout, whichever comes first.
func (c *Chrome) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithTimeout(c.tabCtx, c.opts.Timeout)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (c *Chrome) setup(url string) chromedp.Tasks {
	tasks := chromedp.Tasks{network.Enable()}
	if c.opts.UserAgent != "" {
		tasks = append(tasks, chromedp.ActionFunc(func(ctx context.Context) error {
			return emulation.SetUserAgentOverride(c.opts.UserAgent).Do(ctx)
		}))
	}
	if c.opts.BlockMedia {
		tasks = append(tasks, chromedp.ActionFunc(func(ctx context.Context) error {
			return network.SetBlockedURLs(blockedResources).Do(ctx)
		}))
	}
	if pairs := cookiePairs(c.opts.Cookie); len(pairs) > 0 {
		cookies := make([]*network.CookieParam, 0, len(pairs))
		for _, kv := range pairs {
			cookies = append(cookies, &network.CookieParam{Name: kv[0], Value: kv[1], URL: url})
		}
		tasks = append(tasks, network.SetCookies(cookies))
	}
	return tasks
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := c.bound(ctx)
	defer cancel()

	if err := chromedp.Run(runCtx, c.setup(url)); err != nil {
		return fmt.Errorf("prepare tab: %w", err)
	}

	resp, err := chromedp.RunResponse(runCtx, chromedp.Navigate(url))
	if err != nil {
		return fmt.Errorf("load %s: %w", url, err)
	}
	if resp != nil && resp.Status >= 400 {
		return fmt.Errorf("load %s: HTTP %d %s", url, resp.Status, resp.StatusText)
	}

	tasks := chromedp.Tasks{
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if c.opts.PageLoadDelay > 0 {
		tasks = append(tasks, chromedp.Sleep(c.opts.PageLoadDelay))
	}
	tasks = append(tasks, chromedp.Location(&c.location))

	if err := chromedp.Run(runCtx, tasks); err != nil {
		return fmt.Errorf("wait for %s: %w", url, err)
	}

	c.navigated = true
	c.log.Debug().Str("url", url).Str("final_url", c.location).Msg("page loaded")
	return nil
}

// cookiePairs splits a Cookie header into name/value pairs.
func cookiePairs(header string) [][2]string {
	var out [][2]string
	for part := range strings.SplitSeq(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || name == "" {
			continue
		}
		out = append(out, [2]string{name, value})
	}
	return out
}

// Location is the URL of the loaded page after redirects.
func (c *Chrome) Location() string { return c.location }

func (c *Chrome) HTML(ctx context.Context) (string, error) {
	if !c.navigated {
		return "", ErrNotNavigated
	}

	runCtx, cancel := c.bound(ctx)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}

	c.log.Debug().Int("html_len", len(html)).Msg("page read")
	return html, nil
}

// Close shuts down the tab, then the browser process. It is safe to call
// more than once.
func (c *Chrome) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = chromedp.Cancel(c.tabCtx)
		c.tabCancel()
		c.allocCancel()
		if errors.Is(c.closeErr, context.Canceled) {
			c.closeErr = nil
		}
		c.log.Debug().Msg("browser closed")
	})
	return c.closeErr
}
