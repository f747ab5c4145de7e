package util

import (
	"bufio"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/rs/zerolog"
)

const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

type HTTPClientOptions struct {
	Timeout    time.Duration
	UserAgent  string
	Cookie     string
	CookieFile string
	Transport  http.RoundTripper
	Logger     zerolog.Logger
}

// NewHTTPClient builds the client used by the plain HTTP session. Requests go
// through the cloudflare header/TLS shim before reaching the base transport.
func NewHTTPClient(opts HTTPClientOptions) (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	var baseTransport http.RoundTripper
	if opts.Transport != nil {
		baseTransport = opts.Transport
	} else {
		baseTransport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		}
	}

	client := &http.Client{
		Timeout: opts.Timeout,
		Transport: roundTripper{
			base:         cloudflarebp.AddCloudFlareByPass(baseTransport),
			ua:           PickUserAgent(opts.UserAgent),
			cookieHeader: JoinCookies(opts.Cookie, opts.CookieFile),
			log:          opts.Logger,
		},
		Jar: jar,
	}

	opts.Logger.Debug().
		Dur("timeout", opts.Timeout).
		Str("cookie_file", opts.CookieFile).
		Msg("HTTP client initialized")

	return client, nil
}

type roundTripper struct {
	base         http.RoundTripper
	ua           string
	cookieHeader string
	log          zerolog.Logger
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if rt.ua != "" {
		req.Header.Set("User-Agent", rt.ua)
	}

	if rt.cookieHeader != "" && req.Header.Get("Cookie") == "" {
		req.Header.Set("Cookie", rt.cookieHeader)
	}

	rt.log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Msg("HTTP request")

	return rt.base.RoundTrip(req)
}

// JoinCookies merges an inline cookie header with the first non-empty line of
// a cookie file.
func JoinCookies(inline, file string) string {
	s := strings.TrimSpace(inline)
	if file == "" {
		return s
	}

	f, err := os.Open(file)
	if err != nil {
		return s
	}
	defer func() {
		_ = f.Close()
	}()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if s == "" {
			return line
		}
		return s + "; " + line
	}

	return s
}

func PickUserAgent(override string) string {
	if override != "" {
		return override
	}

	return DefaultUserAgent
}
