package app

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nw_quizbot/internal/config"
)

func TestNewScheduler(t *testing.T) {
	bot, _ := newTestBot(&stubQuizzes{}, &stubArticles{}, &mockPoster{})

	c, err := NewScheduler(config.ScheduleConfig{
		Timezone: "Asia/Tokyo",
		Quiz:     "0 0 9 * * 1-5",
		Article:  "0 0 13,18 * * 1-5",
	}, bot, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, c.Entries(), 2)
	require.Equal(t, "Asia/Tokyo", c.Location().String())
}

func TestNewScheduler_Errors(t *testing.T) {
	bot, _ := newTestBot(&stubQuizzes{}, &stubArticles{}, &mockPoster{})

	_, err := NewScheduler(config.ScheduleConfig{Timezone: "Mars/Olympus", Quiz: "0 0 9 * * *", Article: "0 0 9 * * *"}, bot, zap.NewNop())
	require.ErrorContains(t, err, "timezone")

	// five fields are rejected once seconds are enabled
	_, err = NewScheduler(config.ScheduleConfig{Quiz: "0 9 * * 1-5", Article: "0 0 13 * * *"}, bot, zap.NewNop())
	require.ErrorContains(t, err, "schedule quiz")
}
