package scraper

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
)

// TitleReader looks up a page's article title through a Fetcher.
type TitleReader struct {
	fetcher Fetcher
}

func NewTitleReader(fetcher Fetcher) *TitleReader {
	return &TitleReader{fetcher: fetcher}
}

func (t *TitleReader) FetchTitle(ctx context.Context, pageURL string) (string, error) {
	page, err := t.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return "", err
	}
	parsedURL, err := url.Parse(page.URL)
	if err != nil {
		return "", err
	}

	article, err := readability.FromReader(bytes.NewReader(page.Body), parsedURL)
	if err == nil && strings.TrimSpace(article.Title) != "" {
		return normalizeText(article.Title), nil
	}

	// readability refuses short pages; fall back to <title>
	doc, derr := ParseDocument(page.Body)
	if derr != nil {
		return "", derr
	}
	if title := firstText(doc, "title"); title != "" {
		return normalizeText(title), nil
	}
	return "", err
}

func normalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
