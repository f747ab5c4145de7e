package browser

import (
	"os"

	"github.com/chromedp/chromedp"
)

var chromePaths = []string{
	"/headless-shell/headless-shell",
	"/usr/bin/chromium-browser",
	"/usr/bin/chromium",
	"/usr/bin/google-chrome",
	"/usr/bin/google-chrome-stable",
}

// AllocatorOptions returns exec allocator options for a local or container
// Chrome. Headful browsers draw on the display named in opts.Env.
func AllocatorOptions(opts ChromeOptions) []chromedp.ExecAllocatorOption {
	out := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("metrics-recording-only", true),
		chromedp.Flag("password-store", "basic"),
		chromedp.Flag("use-mock-keychain", true),
		chromedp.WindowSize(opts.Width, opts.Height),
	)

	if opts.Headless {
		out = append(out, chromedp.Flag("headless", "new"))
	} else {
		out = append(out, chromedp.Flag("headless", false))
	}

	if len(opts.Env) > 0 {
		out = append(out, chromedp.Env(opts.Env...))
	}

	if opts.UserDataDir != "" {
		out = append(out, chromedp.UserDataDir(opts.UserDataDir))
	}

	if opts.ExecPath != "" {
		return append(out, chromedp.ExecPath(opts.ExecPath))
	}
	for _, p := range chromePaths {
		if _, err := os.Stat(p); err == nil {
			out = append(out, chromedp.ExecPath(p))
			break
		}
	}

	return out
}
