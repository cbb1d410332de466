package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"nw_quizbot/internal/config"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

const MaxHops = 15

// Page is a fetched document with its body decoded to UTF-8.
type Page struct {
	URL  string
	Body []byte
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.StatusCode)
}

type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= MaxHops {
				return fmt.Errorf("stopped after %d redirects (MaxHops exceeded)", MaxHops)
			}
			return nil
		},
	}
}

func NewHTTPFetcher(cfg config.HTTPConfig) *HTTPFetcher {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	return &HTTPFetcher{
		client:    NewHTTPClient(timeout),
		userAgent: cfg.UserAgent,
		timeout:   timeout,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, urlStr string) (*Page, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: urlStr, StatusCode: resp.StatusCode}
	}

	body, err := decodeBody(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	return &Page{URL: resp.Request.URL.String(), Body: body}, nil
}

// decodeBody converts Shift_JIS / EUC-JP pages (declared in the header or a
// meta tag) to UTF-8.
func decodeBody(r io.Reader, contentType string) ([]byte, error) {
	utf8Reader, err := charset.NewReader(r, contentType)
	if err != nil {
		utf8Reader = r
	}
	return io.ReadAll(utf8Reader)
}

func decodeBytes(body []byte, contentType string) ([]byte, error) {
	return decodeBody(bytes.NewReader(body), contentType)
}

// NewFetcher builds the fetcher chain described by cfg.
func NewFetcher(cfg config.HTTPConfig, log *zap.Logger) Fetcher {
	var f Fetcher
	switch cfg.Fetcher {
	case config.FetcherColly:
		f = NewCollyFetcher(cfg)
	default:
		f = NewHTTPFetcher(cfg)
	}
	if cfg.RespectRobots {
		f = NewRobotsGuard(f, NewHTTPClient(time.Duration(cfg.TimeoutSec)*time.Second), cfg.UserAgent, log)
	}
	return f
}
