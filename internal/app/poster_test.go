package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nw_quizbot/internal/render"
)

func TestWebhookPoster(t *testing.T) {
	var got render.Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	msg := render.Message{Channel: "ipa-nw", Text: "問7", Attachments: []render.Attachment{{Title: "prompt"}}}
	require.NoError(t, NewWebhookPoster(srv.URL, srv.Client()).Post(context.Background(), msg))
	require.Equal(t, msg, got)
}

func TestWebhookPoster_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewWebhookPoster(srv.URL, srv.Client()).Post(context.Background(), render.Message{Text: "x"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "HTTP 400")
	require.Contains(t, err.Error(), "invalid_payload")
}

func TestLogPoster(t *testing.T) {
	require.NoError(t, NewLogPoster(zap.NewNop()).Post(context.Background(), render.Message{Text: "x"}))
}
