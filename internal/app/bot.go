package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"nw_quizbot/internal/article"
	"nw_quizbot/internal/db"
	"nw_quizbot/internal/grader"
	"nw_quizbot/internal/models"
	"nw_quizbot/internal/render"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// quizTimeout bounds a shared quiz post once it no longer follows any one
// caller's context.
const quizTimeout = 2 * time.Minute

type QuizSource interface {
	Extract(ctx context.Context) (*models.Quiz, error)
}

type ArticleSource interface {
	Next(ctx context.Context) (article.Article, error)
	Random(ctx context.Context) article.Article
}

// Bot turns triggers into chat messages. It holds no connection state; a
// Poster delivers what it renders.
type Bot struct {
	quizzes  QuizSource
	articles ArticleSource
	poster   Poster
	store    *db.Storage
	channel  string
	log      *zap.Logger

	flight singleflight.Group
	userMu sync.Mutex
	now    func() time.Time
}

func NewBot(quizzes QuizSource, articles ArticleSource, poster Poster, store *db.Storage, channel string, log *zap.Logger) *Bot {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bot{
		quizzes:  quizzes,
		articles: articles,
		poster:   poster,
		store:    store,
		channel:  channel,
		log:      log,
		now:      time.Now,
	}
}

// PostQuiz extracts the latest question and posts it. Calls that overlap an
// in-flight post for the same channel share its result instead of posting
// the quiz twice. The shared post outlives the caller that started it, so
// one cancelled request does not fail the others waiting on it.
func (b *Bot) PostQuiz(ctx context.Context) error {
	_, err, shared := b.flight.Do("quiz:"+b.channel, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), quizTimeout)
		defer cancel()
		return nil, b.postQuiz(ctx)
	})
	if shared {
		b.log.Debug("quiz post coalesced", zap.String("channel", b.channel))
	}
	return err
}

func (b *Bot) postQuiz(ctx context.Context) error {
	start := b.now()
	quiz, err := b.quizzes.Extract(ctx)
	if err != nil {
		b.log.Error("quiz extraction failed", zap.String("channel", b.channel), zap.Error(err))
		return err
	}

	msg := render.Quiz(quiz)
	msg.Channel = b.channel
	if err := b.poster.Post(ctx, msg); err != nil {
		b.log.Error("failed to post quiz", zap.String("number", quiz.Number), zap.Error(err))
		return err
	}
	b.log.Info("quiz posted",
		zap.String("channel", b.channel),
		zap.String("number", quiz.Number),
		zap.String("url", quiz.SourceURL),
		zap.Duration("took", b.now().Sub(start)),
	)

	b.saveChannel(ctx, models.ChannelState{
		ID:             b.channel,
		LastQuizNumber: quiz.Number,
		LastQuizURL:    quiz.SourceURL,
		PostedAt:       b.now().Unix(),
	})
	return nil
}

// PostArticle posts the next article of the series.
func (b *Bot) PostArticle(ctx context.Context) error {
	a, err := b.articles.Next(ctx)
	if err != nil {
		b.log.Error("article counter unavailable", zap.Error(err))
		return err
	}
	return b.postArticle(ctx, a)
}

func (b *Bot) PostRandomArticle(ctx context.Context) error {
	return b.postArticle(ctx, b.articles.Random(ctx))
}

func (b *Bot) postArticle(ctx context.Context, a article.Article) error {
	msg := render.Article(a)
	msg.Channel = b.channel
	if err := b.poster.Post(ctx, msg); err != nil {
		b.log.Error("failed to post article", zap.String("url", a.URL), zap.Error(err))
		return err
	}
	b.log.Info("article posted", zap.Int("index", a.Index), zap.String("url", a.URL))
	return nil
}

// HandleClick grades an answer and returns the reply for the clicked message.
func (b *Bot) HandleClick(ctx context.Context, click grader.Click) render.Message {
	res := grader.Grade(click)
	b.log.Info("answer graded", zap.String("user", click.UserID), zap.Stringer("verdict", res.Verdict))
	if click.UserID != "" {
		b.recordAnswer(ctx, res)
	}
	return render.GradeReply(res)
}

// SyncTeams loads the stored teams and reports how many are usable.
func (b *Bot) SyncTeams(ctx context.Context) (int, error) {
	teams, err := b.store.Teams.All(ctx)
	var partial *db.PartialError
	if err != nil && !errors.As(err, &partial) {
		return 0, fmt.Errorf("load teams: %w", err)
	}
	if partial != nil {
		b.log.Warn("some teams could not be loaded", zap.Int("failed", len(partial.Failed)), zap.Error(partial))
	}

	n := 0
	for id := range teams {
		if id == models.ArticleCounterID {
			continue
		}
		n++
	}
	b.log.Info("teams loaded", zap.Int("count", n))
	return n, nil
}

func (b *Bot) saveChannel(ctx context.Context, state models.ChannelState) {
	rec, err := db.Encode(state)
	if err == nil {
		err = b.store.Channels.Save(ctx, rec)
	}
	if err != nil {
		b.log.Warn("failed to save channel state", zap.String("channel", state.ID), zap.Error(err))
	}
}

func (b *Bot) recordAnswer(ctx context.Context, res grader.Result) {
	b.userMu.Lock()
	defer b.userMu.Unlock()

	score := models.UserScore{ID: res.UserID}
	rec, err := b.store.Users.Get(ctx, res.UserID)
	switch {
	case err == nil:
		if err := db.Decode(rec, &score); err != nil {
			b.log.Warn("resetting unreadable user score", zap.String("user", res.UserID), zap.Error(err))
			score = models.UserScore{ID: res.UserID}
		}
	case !errors.Is(err, db.ErrNotFound):
		b.log.Warn("failed to load user score", zap.String("user", res.UserID), zap.Error(err))
		return
	}

	score.Answered++
	if res.Verdict == grader.Correct {
		score.Correct++
	}
	score.LastSeen = b.now().Unix()

	rec, err = db.Encode(score)
	if err == nil {
		err = b.store.Users.Save(ctx, rec)
	}
	if err != nil {
		b.log.Warn("failed to save user score", zap.String("user", res.UserID), zap.Error(err))
	}
}
