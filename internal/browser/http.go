package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mlinder314/runscrape/internal/util"

	"github.com/rs/zerolog"
)

const maxBodySize = 16 << 20

type HTTPOptions struct {
	Timeout    time.Duration
	UserAgent  string
	Cookie     string
	CookieFile string
	Transport  http.RoundTripper
	Logger     zerolog.Logger
}

// HTTP is a session that fetches pages without a browser. It sees only the
// HTML the server sends, so it suits listings rendered server side.
type HTTP struct {
	client *http.Client
	log    zerolog.Logger

	html     string
	location string
	loaded   bool
}

func NewHTTP(opts HTTPOptions) (*HTTP, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultNavigateTimeout
	}

	client, err := util.NewHTTPClient(util.HTTPClientOptions{
		Timeout:    opts.Timeout,
		UserAgent:  opts.UserAgent,
		Cookie:     opts.Cookie,
		CookieFile: opts.CookieFile,
		Transport:  opts.Transport,
		Logger:     opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &HTTP{client: client, log: opts.Logger}, nil
}

func (h *HTTP) Navigate(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("load %s: %w", url, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("load %s: HTTP %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read %s: %w", url, err)
	}

	h.html = string(body)
	h.location = resp.Request.URL.String()
	h.loaded = true

	h.log.Debug().Str("url", url).Str("final_url", h.location).Int("html_len", len(h.html)).Msg("page fetched")
	return nil
}

func (h *HTTP) Location() string { return h.location }

func (h *HTTP) HTML(context.Context) (string, error) {
	if !h.loaded {
		return "", ErrNotNavigated
	}
	return h.html, nil
}

func (h *HTTP) Close() error {
	h.client.CloseIdleConnections()
	return nil
}
