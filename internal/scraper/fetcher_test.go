package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/japanese"

	"nw_quizbot/internal/config"
)

func testHTTPConfig(fetcher string) config.HTTPConfig {
	return config.HTTPConfig{
		Fetcher:    fetcher,
		TimeoutSec: 5,
		UserAgent:  "nw-quizbot-test",
	}
}

func newSiteServer(t *testing.T) *httptest.Server {
	t.Helper()
	sjis, err := japanese.ShiftJIS.NewEncoder().String(mixedTextHTML)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, indexHTML)
	})
	mux.HandleFunc("/kakomon/r06_haru/am2_7.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=Shift_JIS")
		fmt.Fprint(w, sjis)
	})
	mux.HandleFunc("/ua", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, r.UserAgent())
	})
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPFetcher_DecodesShiftJIS(t *testing.T) {
	srv := newSiteServer(t)
	f := NewHTTPFetcher(testHTTPConfig(config.FetcherHTTP))

	page, err := f.Fetch(context.Background(), srv.URL+"/kakomon/r06_haru/am2_7.html")
	require.NoError(t, err)
	require.Contains(t, string(page.Body), "リンク状態型である")
}

func TestHTTPFetcher_SetsUserAgent(t *testing.T) {
	srv := newSiteServer(t)
	f := NewHTTPFetcher(testHTTPConfig(config.FetcherHTTP))

	page, err := f.Fetch(context.Background(), srv.URL+"/ua")
	require.NoError(t, err)
	require.Equal(t, "nw-quizbot-test", string(page.Body))
}

func TestHTTPFetcher_StatusError(t *testing.T) {
	srv := newSiteServer(t)
	f := NewHTTPFetcher(testHTTPConfig(config.FetcherHTTP))

	_, err := f.Fetch(context.Background(), srv.URL+"/missing")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusNotFound, se.StatusCode)
}

func TestHTTPFetcher_RedirectLoop(t *testing.T) {
	srv := newSiteServer(t)
	f := NewHTTPFetcher(testHTTPConfig(config.FetcherHTTP))

	_, err := f.Fetch(context.Background(), srv.URL+"/loop")
	require.Error(t, err)
	require.Contains(t, err.Error(), "MaxHops")
}

func TestExtractor_OverHTTP(t *testing.T) {
	srv := newSiteServer(t)
	f := NewHTTPFetcher(testHTTPConfig(config.FetcherHTTP))
	e := NewExtractor(f, srv.URL+"/", "https://bot.example.com", zap.NewNop())

	quiz, err := e.Extract(context.Background())
	require.NoError(t, err)
	require.Equal(t, srv.URL+"/kakomon/r06_haru/am2_7.html", quiz.SourceURL)
	require.Len(t, quiz.Options, 4)
	require.True(t, quiz.Options[2].IsCorrect)
}

func TestExtractor_IndexServerDown(t *testing.T) {
	srv := newSiteServer(t)
	base := srv.URL + "/"
	srv.Close()

	e := NewExtractor(NewHTTPFetcher(testHTTPConfig(config.FetcherHTTP)), base, "", zap.NewNop())
	_, err := e.Extract(context.Background())
	require.True(t, IsReason(err, IndexFetchFailed))
}

func TestCollyFetcher(t *testing.T) {
	srv := newSiteServer(t)
	f := NewCollyFetcher(testHTTPConfig(config.FetcherColly))

	page, err := f.Fetch(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	require.Contains(t, string(page.Body), "本日の一問")

	// the same URL can be fetched again
	_, err = f.Fetch(context.Background(), srv.URL+"/")
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusNotFound, se.StatusCode)
}

func TestCollyFetcher_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCollyFetcher(testHTTPConfig(config.FetcherColly)).Fetch(ctx, "http://127.0.0.1:1/")
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewFetcher(t *testing.T) {
	require.IsType(t, &HTTPFetcher{}, NewFetcher(testHTTPConfig(config.FetcherHTTP), nil))
	require.IsType(t, &CollyFetcher{}, NewFetcher(testHTTPConfig(config.FetcherColly), nil))

	cfg := testHTTPConfig(config.FetcherHTTP)
	cfg.RespectRobots = true
	require.IsType(t, &RobotsGuard{}, NewFetcher(cfg, nil))
}

func TestRobotsGuard(t *testing.T) {
	var robotsHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		robotsHits.Add(1)
		fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	inner := NewHTTPFetcher(testHTTPConfig(config.FetcherHTTP))
	g := NewRobotsGuard(inner, srv.Client(), "nw-quizbot-test", zap.NewNop())

	page, err := g.Fetch(context.Background(), srv.URL+"/public/am2_1.html")
	require.NoError(t, err)
	require.Equal(t, "ok", string(page.Body))

	_, err = g.Fetch(context.Background(), srv.URL+"/private/am2_1.html")
	require.ErrorIs(t, err, ErrDisallowed)

	require.Equal(t, int32(1), robotsHits.Load())
}

type failingTransport struct {
	calls atomic.Int32
}

func (f *failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	f.calls.Add(1)
	return nil, errors.New("connection reset")
}

func TestRobotsGuard_UnavailableAllows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	rt := &failingTransport{}
	g := NewRobotsGuard(NewHTTPFetcher(testHTTPConfig(config.FetcherHTTP)), &http.Client{Transport: rt}, "nw-quizbot-test", nil)

	for i := 0; i < 2; i++ {
		page, err := g.Fetch(context.Background(), srv.URL+"/private/x")
		require.NoError(t, err)
		require.Equal(t, "ok", string(page.Body))
	}
	// not cached, so retried on every fetch
	require.Equal(t, int32(2), rt.calls.Load())
}

func TestTitleReader(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/aji/3min/05.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head><title>
			IPアドレスのしくみ
		</title></head><body><p>短い本文</p></body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	r := NewTitleReader(NewHTTPFetcher(testHTTPConfig(config.FetcherHTTP)))

	title, err := r.FetchTitle(context.Background(), srv.URL+"/aji/3min/05.html")
	require.NoError(t, err)
	require.Equal(t, "IPアドレスのしくみ", title)

	_, err = r.FetchTitle(context.Background(), srv.URL+"/aji/3min/99.html")
	require.Error(t, err)
}
