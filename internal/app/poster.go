package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"nw_quizbot/internal/render"

	"go.uber.org/zap"
)

// Poster delivers a rendered message to the chat platform.
type Poster interface {
	Post(ctx context.Context, msg render.Message) error
}

// WebhookPoster sends messages to an incoming-webhook URL.
type WebhookPoster struct {
	url    string
	client *http.Client
}

func NewWebhookPoster(url string, client *http.Client) *WebhookPoster {
	return &WebhookPoster{url: url, client: client}
}

func (p *WebhookPoster) Post(ctx context.Context, msg render.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return nil
}

// LogPoster writes messages to the log instead of sending them.
type LogPoster struct {
	log *zap.Logger
}

func NewLogPoster(log *zap.Logger) *LogPoster {
	return &LogPoster{log: log}
}

func (p *LogPoster) Post(_ context.Context, msg render.Message) error {
	p.log.Info("dry run: message not sent",
		zap.String("channel", msg.Channel),
		zap.String("text", msg.Text),
		zap.Int("attachments", len(msg.Attachments)),
	)
	return nil
}
