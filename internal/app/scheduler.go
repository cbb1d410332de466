package app

import (
	"context"
	"fmt"
	"time"

	"nw_quizbot/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const jobTimeout = 2 * time.Minute

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}

// NewScheduler registers the quiz and article jobs. Expressions carry a
// seconds field; a job still running when its next tick fires is skipped.
func NewScheduler(cfg config.ScheduleConfig, bot *Bot, log *zap.Logger) (*cron.Cron, error) {
	loc := time.Local
	if cfg.Timezone != "" {
		var err error
		if loc, err = time.LoadLocation(cfg.Timezone); err != nil {
			return nil, fmt.Errorf("schedule timezone: %w", err)
		}
	}

	clog := cronLogger{log: log.Sugar()}
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(loc),
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)

	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{"quiz", cfg.Quiz, bot.PostQuiz},
		{"article", cfg.Article, bot.PostArticle},
	}
	for _, j := range jobs {
		j := j
		if _, err := c.AddFunc(j.spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			if err := j.run(ctx); err != nil {
				log.Warn("scheduled job failed", zap.String("job", j.name), zap.Error(err))
			}
		}); err != nil {
			return nil, fmt.Errorf("schedule %s %q: %w", j.name, j.spec, err)
		}
		log.Info("job scheduled", zap.String("job", j.name), zap.String("spec", j.spec), zap.String("tz", loc.String()))
	}
	return c, nil
}
