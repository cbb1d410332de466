package app

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"nw_quizbot/internal/grader"
	"nw_quizbot/internal/render"
	urlrewrite "nw_quizbot/internal/url_rewrite"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BotService is what the HTTP surface drives.
type BotService interface {
	PostQuiz(ctx context.Context) error
	PostArticle(ctx context.Context) error
	PostRandomArticle(ctx context.Context) error
	HandleClick(ctx context.Context, click grader.Click) render.Message
}

const (
	// Slack rejects replays older than five minutes; so do we.
	maxSignatureSkew   = 5 * time.Minute
	maxInteractiveBody = 1 << 20
)

// Credentials authenticate callers of the HTTP surface. An empty value
// refuses every request to the endpoint it guards.
type Credentials struct {
	TriggerToken  string
	SigningSecret string
}

type Server struct {
	bot      BotService
	siteBase string
	creds    Credentials
	client   *http.Client
	log      *zap.Logger
	now      func() time.Time
}

// interactionPayload is the part of a Slack interactive_message callback we read.
type interactionPayload struct {
	CallbackID string `json:"callback_id"`
	Actions    []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"actions"`
	User struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"user"`
	OriginalMessage struct {
		Text string `json:"text"`
	} `json:"original_message"`
}

func NewServer(bot BotService, siteBase string, creds Credentials, client *http.Client, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{bot: bot, siteBase: siteBase, creds: creds, client: client, log: log, now: time.Now}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/image", s.handleImage)
	r.With(s.verifySignature).Post("/interactive", s.handleInteractive)

	r.Route("/trigger", func(r chi.Router) {
		r.Use(s.requireToken)
		r.Post("/quiz", s.trigger(s.bot.PostQuiz))
		r.Post("/article", s.trigger(s.bot.PostArticle))
		r.Post("/article/random", s.trigger(s.bot.PostRandomArticle))
	})
	return r
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request, reason string) {
	s.log.Warn("request refused",
		zap.String("path", r.URL.Path),
		zap.String("reason", reason),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

// requireToken accepts "Authorization: Bearer <token>" or X-Trigger-Token.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.creds.TriggerToken == "" {
			s.unauthorized(w, r, "trigger token not configured")
			return
		}
		token := r.Header.Get("X-Trigger-Token")
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			token = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.creds.TriggerToken)) != 1 {
			w.Header().Set("WWW-Authenticate", "Bearer")
			s.unauthorized(w, r, "bad trigger token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// verifySignature checks Slack's request signature over the raw body and
// puts the body back for the handler.
func (s *Server) verifySignature(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.creds.SigningSecret == "" {
			s.unauthorized(w, r, "signing secret not configured")
			return
		}
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxInteractiveBody))
		if err != nil {
			http.Error(w, "body too large", http.StatusRequestEntityTooLarge)
			return
		}
		if err := s.checkSignature(r.Header, body); err != nil {
			s.unauthorized(w, r, err.Error())
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkSignature(h http.Header, body []byte) error {
	ts := h.Get("X-Slack-Request-Timestamp")
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return errors.New("missing request timestamp")
	}
	if skew := s.now().Sub(time.Unix(sec, 0)); skew > maxSignatureSkew || skew < -maxSignatureSkew {
		return fmt.Errorf("request timestamp %s is %s off", ts, skew.Round(time.Second))
	}
	want := signBody(s.creds.SigningSecret, ts, body)
	if !hmac.Equal([]byte(h.Get("X-Slack-Signature")), []byte(want)) {
		return errors.New("signature mismatch")
	}
	return nil
}

// signBody computes Slack's v0 signature: HMAC-SHA256 of "v0:<ts>:<body>".
func signBody(secret, ts string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "v0:%s:", ts)
	mac.Write(body)
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

// handleImage streams an image from the quiz site with its original
// Content-Type. Other hosts are refused so the endpoint is not an open proxy.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		http.Error(w, "Error", http.StatusBadRequest)
		return
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		http.Error(w, "bad url", http.StatusBadRequest)
		return
	}
	if !urlrewrite.SameHost(raw, s.siteBase) {
		http.Error(w, "host not allowed", http.StatusForbidden)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, raw, nil)
	if err != nil {
		http.Error(w, "bad url", http.StatusBadRequest)
		return
	}
	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Warn("image fetch failed", zap.String("url", raw), zap.Error(err))
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		http.Error(w, "upstream returned "+resp.Status, http.StatusBadGateway)
		return
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		s.log.Warn("image stream interrupted", zap.String("url", raw), zap.Error(err))
	}
}

func (s *Server) handleInteractive(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	var p interactionPayload
	if err := json.Unmarshal([]byte(r.PostFormValue("payload")), &p); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	if p.CallbackID != grader.CallbackID {
		w.WriteHeader(http.StatusOK)
		return
	}
	if len(p.Actions) == 0 {
		http.Error(w, "no action", http.StatusBadRequest)
		return
	}

	reply := s.bot.HandleClick(r.Context(), grader.Click{
		Token:        p.Actions[0].Name,
		UserID:       p.User.ID,
		OriginalText: p.OriginalMessage.Text,
	})
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(reply); err != nil {
		s.log.Warn("failed to write grading reply", zap.Error(err))
	}
}

func (s *Server) trigger(run func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := run(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
