package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"nw_quizbot/internal/article"
	"nw_quizbot/internal/config"
	"nw_quizbot/internal/db"
	"nw_quizbot/internal/scraper"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 15 * time.Second
)

type BotApp struct {
	config *config.BotConfig
	log    *zap.Logger
	store  *db.Storage
	bot    *Bot
	cron   *cron.Cron
	server *http.Server
	wg     sync.WaitGroup
}

func NewBotApp(cfg *config.BotConfig, log *zap.Logger) (*BotApp, error) {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	store, err := db.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	fetcher := scraper.NewFetcher(cfg.HTTP, log)
	extractor := scraper.NewExtractor(fetcher, cfg.Site.BaseURL, cfg.Proxy.PublicURL, log.Named("extractor"))

	var titles article.TitleFetcher
	if cfg.Article.FetchTitle {
		titles = scraper.NewTitleReader(fetcher)
	}
	counter := article.NewCounter(store.Teams, cfg.Article, titles, log.Named("article"))

	client := scraper.NewHTTPClient(time.Duration(cfg.HTTP.TimeoutSec) * time.Second)
	var poster Poster
	if cfg.Chat.WebhookURL != "" {
		poster = NewWebhookPoster(cfg.Chat.WebhookURL, client)
	} else {
		log.Warn("chat.webhook_url is empty, messages will only be logged")
		poster = NewLogPoster(log.Named("poster"))
	}

	bot := NewBot(extractor, counter, poster, store, cfg.Chat.Channel, log.Named("bot"))

	scheduler, err := NewScheduler(cfg.Schedule, bot, log.Named("cron"))
	if err != nil {
		_ = store.Close(ctx)
		return nil, err
	}

	if cfg.Server.TriggerToken == "" {
		log.Warn("server.trigger_token is empty, /trigger requests will be refused")
	}
	if cfg.Chat.SigningSecret == "" {
		log.Warn("chat.signing_secret is empty, interactive callbacks will be refused")
	}
	creds := Credentials{TriggerToken: cfg.Server.TriggerToken, SigningSecret: cfg.Chat.SigningSecret}
	srv := NewServer(bot, cfg.Site.BaseURL, creds, client, log.Named("http"))
	return &BotApp{
		config: cfg,
		log:    log,
		store:  store,
		bot:    bot,
		cron:   scheduler,
		server: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           srv.Routes(),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Run serves until SIGINT/SIGTERM or a server failure, then shuts down.
func (a *BotApp) Run() error {
	a.log.Info("starting bot",
		zap.String("site", a.config.Site.BaseURL),
		zap.String("storage", a.config.Storage.Driver),
		zap.String("channel", a.config.Chat.Channel),
		zap.String("addr", a.config.Server.Addr),
	)

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	if _, err := a.bot.SyncTeams(ctx); err != nil {
		a.log.Error("team sync failed", zap.Error(err))
	}
	cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	serverErr := make(chan error, 1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	a.cron.Start()

	var runErr error
	select {
	case sig := <-sigChan:
		a.log.Info("signal received, shutting down", zap.Stringer("signal", sig))
	case runErr = <-serverErr:
		a.log.Error("http server failed", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Close(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Close waits for running jobs, stops the server and closes storage.
func (a *BotApp) Close(ctx context.Context) error {
	select {
	case <-a.cron.Stop().Done():
	case <-ctx.Done():
		a.log.Warn("scheduled jobs still running at shutdown")
	}

	var errs []error
	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	a.wg.Wait()
	if err := a.store.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close storage: %w", err))
	}
	return errors.Join(errs...)
}
