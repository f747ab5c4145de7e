// Package browser provides page sessions for the extractor: a Chrome tab
// driven through the DevTools protocol, or a plain HTTP fetch.
package browser

import (
	"context"
	"fmt"

	"github.com/mlinder314/runscrape/internal/util"
)

type Session interface {
	Navigate(ctx context.Context, url string) error
	HTML(ctx context.Context) (string, error)
	// Location is the URL of the loaded page after redirects.
	Location() string
	Close() error
}

var (
	_ Session = (*Chrome)(nil)
	_ Session = (*HTTP)(nil)
)

const (
	DriverChrome = "chrome"
	DriverHTTP   = "http"
)

// Open starts a session for driver. Chrome options carry the surface size and
// environment; the HTTP session uses only the shared fields.
func Open(ctx context.Context, driver string, opts ChromeOptions, cookie, cookieFile string) (Session, error) {
	switch driver {
	case "", DriverChrome:
		opts.Cookie = util.JoinCookies(cookie, cookieFile)
		return NewChrome(ctx, opts)
	case DriverHTTP:
		return NewHTTP(HTTPOptions{
			Timeout:    opts.Timeout,
			UserAgent:  opts.UserAgent,
			Cookie:     cookie,
			CookieFile: cookieFile,
			Logger:     opts.Logger,
		})
	default:
		return nil, fmt.Errorf("unknown driver %q", driver)
	}
}
