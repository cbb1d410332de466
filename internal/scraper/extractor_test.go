package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nw_quizbot/internal/models"
	urlrewrite "nw_quizbot/internal/url_rewrite"
)

type fakeFetcher struct {
	pages map[string]string
	errs  map[string]error
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*Page, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	body, ok := f.pages[url]
	if !ok {
		return nil, &StatusError{URL: url, StatusCode: 404}
	}
	return &Page{URL: url, Body: []byte(body)}, nil
}

const (
	testBase     = "http://www.nw-siken.com/"
	testQuestion = "http://www.nw-siken.com/kakomon/r06_haru/am2_7.html"
	testProxy    = "https://bot.example.com"
)

func newTestExtractor(f Fetcher) *Extractor {
	return NewExtractor(f, testBase, testProxy, zap.NewNop())
}

func TestExtractor_MixedTextOptions(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{testBase: indexHTML, testQuestion: mixedTextHTML}}

	quiz, err := newTestExtractor(f).Extract(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{testBase, testQuestion}, f.calls)

	require.Equal(t, "問7", quiz.Number)
	require.Equal(t, testQuestion, quiz.SourceURL)
	require.False(t, quiz.ImageChoice)
	require.Empty(t, quiz.Images)

	require.Len(t, quiz.Options, 4)
	labels := make([]string, 0, 4)
	for _, o := range quiz.Options {
		labels = append(labels, o.Label)
		require.Nil(t, o.Image)
	}
	require.Equal(t, []string{"ア", "イ", "ウ", "エ"}, labels)
	require.True(t, quiz.Options[2].IsCorrect)
	require.Equal(t, 1, quiz.CorrectCount())

	require.Contains(t, quiz.PromptText, "OSPFに関する記述のうち")
	require.Contains(t, quiz.PromptText, "ア. 距離ベクトル型である")
	require.Contains(t, quiz.PromptText, "ウ. リンク状態型である")
}

func TestExtractor_MixedImageOptions(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{testBase: indexHTML, testQuestion: mixedImageHTML}}

	quiz, err := newTestExtractor(f).Extract(context.Background())
	require.NoError(t, err)

	require.True(t, quiz.ImageChoice)
	require.Len(t, quiz.Options, 4)

	require.Nil(t, quiz.Options[0].Image)
	require.Nil(t, quiz.Options[1].Image)
	require.NotNil(t, quiz.Options[2].Image)
	require.Equal(t, "http://www.nw-siken.com/kakomon/r06_haru/img/am2_3_u.png", quiz.Options[2].Image.ResolvedURL)
	require.Equal(t, urlrewrite.ProxyURL(testProxy, quiz.Options[2].Image.ResolvedURL), quiz.Options[2].Image.ProxiedURL)

	// an empty id attribute still marks the answer
	require.True(t, quiz.Options[2].IsCorrect)
	require.False(t, quiz.Options[3].IsCorrect)

	require.Len(t, quiz.Images, 1)
	require.Equal(t, "img/am2_3_q.png", quiz.Images[0].RelativeSrc)
	require.Equal(t, "http://www.nw-siken.com/kakomon/r06_haru/img/am2_3_q.png", quiz.Images[0].ResolvedURL)

	require.Contains(t, quiz.PromptText, "ア. R1を経由する")
	require.NotContains(t, quiz.PromptText, "ウ.")
}

func TestExtractor_ListLayout(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{testBase: indexHTML, testQuestion: listHTML}}

	quiz, err := newTestExtractor(f).Extract(context.Background())
	require.NoError(t, err)

	require.Equal(t, "問2", quiz.Number)
	require.False(t, quiz.ImageChoice)
	require.Len(t, quiz.Options, 4)
	require.Equal(t, "イ", quiz.Options[1].Label)
	require.Equal(t, "UDP", quiz.Options[1].Text)
	require.True(t, quiz.Options[1].IsCorrect)
	require.Equal(t, 1, quiz.CorrectCount())
	require.Contains(t, quiz.PromptText, "イ. UDP")
}

func TestExtractor_NoCorrectMarkerIsNotAnError(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{testBase: indexHTML, testQuestion: noMarkerHTML}}

	quiz, err := newTestExtractor(f).Extract(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, quiz.CorrectCount())
}

func TestExtractor_IndexUnreachable(t *testing.T) {
	f := &fakeFetcher{errs: map[string]error{testBase: errors.New("dial tcp: connection refused")}}

	quiz, err := newTestExtractor(f).Extract(context.Background())
	require.Nil(t, quiz)
	require.True(t, IsReason(err, IndexFetchFailed))
	require.Equal(t, []string{testBase}, f.calls)
}

func TestExtractor_IndexLayoutChanged(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{testBase: indexMovedHTML}}

	_, err := newTestExtractor(f).Extract(context.Background())
	require.True(t, IsReason(err, IndexFetchFailed))
	require.ErrorIs(t, err, ErrLinkNotFound)
}

func TestExtractor_QuestionUnreachable(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{testBase: indexHTML}}

	_, err := newTestExtractor(f).Extract(context.Background())
	require.True(t, IsReason(err, QuestionFetchFailed))

	var se *StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, 404, se.StatusCode)
}

func TestExtractor_MissingOptions(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{testBase: indexHTML, testQuestion: noOptionsHTML}}

	quiz, err := newTestExtractor(f).Extract(context.Background())
	require.Nil(t, quiz)
	require.True(t, IsReason(err, ParseFailed))
	require.ErrorIs(t, err, models.ErrNoOptions)
}

func TestExtractor_UnresolvableImagesAreDropped(t *testing.T) {
	index := `<div class="ansbg"></div><div class="img_margin"><a href="/q/latest.html">latest</a></div>`
	latest := "http://www.nw-siken.com/q/latest.html"
	f := &fakeFetcher{pages: map[string]string{testBase: index, latest: mixedImageHTML}}

	quiz, err := newTestExtractor(f).Extract(context.Background())
	require.NoError(t, err)
	require.True(t, quiz.ImageChoice)
	require.Nil(t, quiz.Options[2].Image)
	require.Empty(t, quiz.Images)
}

func TestExtractionError_Message(t *testing.T) {
	err := &ExtractionError{Reason: ParseFailed, URL: "http://x/am2_1.html", Err: fmt.Errorf("boom")}
	require.Equal(t, "parse failed (http://x/am2_1.html): boom", err.Error())
}

func TestDetectLayout(t *testing.T) {
	for _, tc := range []struct {
		html string
		want layout
	}{
		{mixedTextHTML, layoutMixed},
		{mixedImageHTML, layoutMixed},
		{listHTML, layoutList},
		{noOptionsHTML, layoutUnknown},
	} {
		doc, err := ParseDocument([]byte(tc.html))
		require.NoError(t, err)
		require.Equal(t, tc.want, detectLayout(doc), tc.want.String())
	}
}
