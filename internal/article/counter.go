package article

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"nw_quizbot/internal/config"
	"nw_quizbot/internal/db"
	"nw_quizbot/internal/models"

	"go.uber.org/zap"
)

// Article is one entry of the numbered beginner series.
type Article struct {
	Index int
	Total int
	URL   string
	Title string
}

type TitleFetcher interface {
	FetchTitle(ctx context.Context, url string) (string, error)
}

// Counter walks the article series one step per Next call, keeping its
// position in the teams collection under models.ArticleCounterID. Positions
// past Total wrap to the start.
type Counter struct {
	store   db.Collection
	baseURL string
	total   int
	titles  TitleFetcher
	log     *zap.Logger

	mu sync.Mutex
}

// NewCounter builds a Counter; titles may be nil to skip title lookups.
func NewCounter(store db.Collection, cfg config.ArticleConfig, titles TitleFetcher, log *zap.Logger) *Counter {
	if log == nil {
		log = zap.NewNop()
	}
	total := cfg.Total
	if total <= 0 {
		total = config.DefaultArticleTotal
	}
	return &Counter{
		store:   store,
		baseURL: cfg.BaseURL,
		total:   total,
		titles:  titles,
		log:     log,
	}
}

// FormatURL pads index to two digits: 5 -> 05.html, 42 -> 42.html.
func FormatURL(baseURL string, index int) string {
	return fmt.Sprintf("%s/3min/%02d.html", strings.TrimSuffix(baseURL, "/"), index)
}

// Next returns the current article and advances the stored counter.
// Failing to read the counter aborts; failing to save it is only logged.
func (c *Counter) Next(ctx context.Context) (Article, error) {
	index, err := c.advance(ctx)
	if err != nil {
		return Article{}, err
	}
	// outside c.mu: title lookups hit the network
	return c.article(ctx, index), nil
}

// advance reads and bumps the stored counter under c.mu.
func (c *Counter) advance(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	no, err := c.load(ctx)
	if err != nil {
		return 0, err
	}

	index := no % c.total
	if index != no {
		c.log.Info("article counter wrapped", zap.Int("stored", no), zap.Int("index", index))
	}

	rec, err := db.Encode(models.ArticleCounter{ID: models.ArticleCounterID, No: index + 1})
	if err == nil {
		err = c.store.Save(ctx, rec)
	}
	if err != nil {
		c.log.Error("failed to save article counter", zap.Int("no", index+1), zap.Error(err))
	}
	return index, nil
}

// Random picks any article without moving the counter.
func (c *Counter) Random(ctx context.Context) Article {
	return c.article(ctx, rand.Intn(c.total))
}

func (c *Counter) load(ctx context.Context) (int, error) {
	rec, err := c.store.Get(ctx, models.ArticleCounterID)
	if errors.Is(err, db.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read article counter: %w", err)
	}

	var counter models.ArticleCounter
	if err := db.Decode(rec, &counter); err != nil {
		return 0, fmt.Errorf("decode article counter: %w", err)
	}
	if counter.No < 0 {
		return 0, nil
	}
	return counter.No, nil
}

func (c *Counter) article(ctx context.Context, index int) Article {
	a := Article{
		Index: index,
		Total: c.total,
		URL:   FormatURL(c.baseURL, index),
	}
	if c.titles != nil {
		title, err := c.titles.FetchTitle(ctx, a.URL)
		if err != nil {
			c.log.Warn("article title unavailable", zap.String("url", a.URL), zap.Error(err))
		} else {
			a.Title = title
		}
	}
	return a
}
