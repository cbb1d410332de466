package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nw_quizbot/internal/config"

	"github.com/gocolly/colly"
	"github.com/gocolly/colly/extensions"
)

// CollyFetcher serves Fetch through a colly collector. Every call works on a
// clone so callbacks never leak between fetches.
type CollyFetcher struct {
	collector *colly.Collector
}

func NewCollyFetcher(cfg config.HTTPConfig) *CollyFetcher {
	c := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
	)
	c.AllowURLRevisit = true
	c.IgnoreRobotsTxt = true
	c.SetRequestTimeout(time.Duration(cfg.TimeoutSec) * time.Second)

	return &CollyFetcher{collector: c}
}

func (f *CollyFetcher) Fetch(ctx context.Context, urlStr string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := f.collector.Clone()
	c.AllowURLRevisit = true
	extensions.RandomUserAgent(c)

	var (
		page     *Page
		fetchErr error
	)
	c.OnResponse(func(r *colly.Response) {
		// colly converts header-declared charsets itself; only sniff the rest
		body := r.Body
		if ct := r.Headers.Get("Content-Type"); !strings.Contains(strings.ToLower(ct), "charset") {
			decoded, err := decodeBytes(r.Body, ct)
			if err != nil {
				fetchErr = err
				return
			}
			body = decoded
		}
		page = &Page{URL: r.Request.URL.String(), Body: body}
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = &StatusError{URL: urlStr, StatusCode: r.StatusCode}
			return
		}
		fetchErr = err
	})

	if err := c.Visit(urlStr); err != nil && fetchErr == nil {
		fetchErr = err
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if page == nil {
		return nil, fmt.Errorf("GET %s: no response", urlStr)
	}
	return page, nil
}
