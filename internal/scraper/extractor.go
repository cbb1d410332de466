package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nw_quizbot/internal/models"
	urlrewrite "nw_quizbot/internal/url_rewrite"

	"go.uber.org/zap"
)

type Reason int

const (
	IndexFetchFailed Reason = iota + 1
	QuestionFetchFailed
	ParseFailed
)

func (r Reason) String() string {
	switch r {
	case IndexFetchFailed:
		return "index fetch failed"
	case QuestionFetchFailed:
		return "question fetch failed"
	case ParseFailed:
		return "parse failed"
	default:
		return "unknown"
	}
}

var ErrLinkNotFound = errors.New("latest question link not found")

type ExtractionError struct {
	Reason Reason
	URL    string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Reason, e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// IsReason reports whether err is an *ExtractionError with the given reason.
func IsReason(err error, r Reason) bool {
	var ee *ExtractionError
	return errors.As(err, &ee) && ee.Reason == r
}

// Extractor turns the quiz site's latest question into a models.Quiz.
// It never retries; callers decide what to do with a failed cycle.
type Extractor struct {
	fetcher   Fetcher
	baseURL   string
	proxyBase string
	log       *zap.Logger
}

func NewExtractor(fetcher Fetcher, baseURL, proxyBase string, log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{
		fetcher:   fetcher,
		baseURL:   baseURL,
		proxyBase: proxyBase,
		log:       log,
	}
}

func (e *Extractor) Extract(ctx context.Context) (*models.Quiz, error) {
	link, err := e.latestQuestionURL(ctx)
	if err != nil {
		return nil, &ExtractionError{Reason: IndexFetchFailed, URL: e.baseURL, Err: err}
	}

	page, err := e.fetcher.Fetch(ctx, link)
	if err != nil {
		return nil, &ExtractionError{Reason: QuestionFetchFailed, URL: link, Err: err}
	}

	doc, err := ParseDocument(page.Body)
	if err != nil {
		return nil, &ExtractionError{Reason: ParseFailed, URL: link, Err: err}
	}

	quiz, err := e.parseQuestion(doc, link)
	if err != nil {
		return nil, &ExtractionError{Reason: ParseFailed, URL: link, Err: err}
	}
	return quiz, nil
}

func (e *Extractor) latestQuestionURL(ctx context.Context) (string, error) {
	page, err := e.fetcher.Fetch(ctx, e.baseURL)
	if err != nil {
		return "", err
	}
	doc, err := ParseDocument(page.Body)
	if err != nil {
		return "", err
	}
	links := doc.SelectAll(selIndexLink)
	if len(links) == 0 {
		return "", ErrLinkNotFound
	}
	href, ok := links[0].Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", ErrLinkNotFound
	}
	return urlrewrite.ResolveLink(e.baseURL, href)
}

func (e *Extractor) parseQuestion(doc DocumentView, sourceURL string) (*models.Quiz, error) {
	quiz := &models.Quiz{
		Number:    firstText(doc, selNumber),
		SourceURL: sourceURL,
	}

	var raw []rawOption
	l := detectLayout(doc)
	switch l {
	case layoutMixed:
		raw, quiz.ImageChoice = parseMixed(doc)
	case layoutList:
		raw = parseList(doc)
	default:
		return nil, models.ErrNoOptions
	}

	var prompt strings.Builder
	if body := firstText(doc, selBody); body != "" {
		prompt.WriteString(body)
		prompt.WriteString("\n\n")
	}
	for _, r := range raw {
		opt := models.AnswerOption{Label: r.Label, Text: r.Text, IsCorrect: r.IsCorrect}
		if r.HasImage {
			opt.Image = e.imageRef(sourceURL, r.ImageSrc)
		} else {
			fmt.Fprintf(&prompt, "%s. %s\n", r.Label, r.Text)
		}
		quiz.Options = append(quiz.Options, opt)
	}
	quiz.PromptText = strings.TrimSpace(prompt.String())

	for _, src := range imageSources(doc, selBodyImages) {
		if ref := e.imageRef(sourceURL, src); ref != nil {
			quiz.Images = append(quiz.Images, *ref)
		}
	}

	if err := quiz.Validate(); err != nil {
		return nil, err
	}
	if n := quiz.CorrectCount(); n != 1 {
		e.log.Warn("unexpected number of correct markers",
			zap.String("url", sourceURL), zap.String("number", quiz.Number), zap.Int("correct", n))
	}
	e.log.Debug("quiz parsed",
		zap.String("url", sourceURL),
		zap.Stringer("layout", l),
		zap.Int("options", len(quiz.Options)),
		zap.Int("images", len(quiz.Images)),
		zap.Bool("image_choice", quiz.ImageChoice),
	)
	return quiz, nil
}

// imageRef returns nil when src cannot be placed next to the question page.
func (e *Extractor) imageRef(sourceURL, src string) *models.ImageRef {
	resolved, err := urlrewrite.ResolveImage(sourceURL, src)
	if err != nil {
		e.log.Warn("image skipped", zap.String("src", src), zap.Error(err))
		return nil
	}
	return &models.ImageRef{
		RelativeSrc: src,
		ResolvedURL: resolved,
		ProxiedURL:  urlrewrite.ProxyURL(e.proxyBase, resolved),
	}
}
