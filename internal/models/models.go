package models

import (
	"errors"
	"strings"
)

var (
	ErrNoNumber  = errors.New("quiz has no number")
	ErrNoPrompt  = errors.New("quiz has no prompt text")
	ErrNoOptions = errors.New("quiz has no answer options")
)

// ImageRef is an image found in quiz markup, resolved against the question
// page and wrapped through the image proxy.
type ImageRef struct {
	RelativeSrc string `json:"relative_src"`
	ResolvedURL string `json:"resolved_url"`
	ProxiedURL  string `json:"proxied_url"`
}

type AnswerOption struct {
	Label     string    `json:"label"`
	Text      string    `json:"text,omitempty"`
	IsCorrect bool      `json:"is_correct"`
	Image     *ImageRef `json:"image,omitempty"`
}

// Quiz is one extracted question. Options keep page order.
type Quiz struct {
	Number      string         `json:"number"`
	PromptText  string         `json:"prompt_text"`
	SourceURL   string         `json:"source_url"`
	Options     []AnswerOption `json:"options"`
	Images      []ImageRef     `json:"images,omitempty"`
	ImageChoice bool           `json:"image_choice"`
}

// Validate reports the first required field that is missing.
func (q *Quiz) Validate() error {
	if strings.TrimSpace(q.Number) == "" {
		return ErrNoNumber
	}
	if strings.TrimSpace(q.PromptText) == "" {
		return ErrNoPrompt
	}
	if len(q.Options) == 0 {
		return ErrNoOptions
	}
	return nil
}

// CorrectCount is not validated against 1: the site occasionally ships zero
// or several markers and grading follows whatever the page says.
func (q *Quiz) CorrectCount() int {
	n := 0
	for _, o := range q.Options {
		if o.IsCorrect {
			n++
		}
	}
	return n
}

const ArticleCounterID = "articleNo"

type ArticleCounter struct {
	ID string `json:"id"`
	No int    `json:"no"`
}

type ChannelState struct {
	ID             string `json:"id"`
	LastQuizNumber string `json:"last_quiz_number"`
	LastQuizURL    string `json:"last_quiz_url"`
	PostedAt       int64  `json:"posted_at"`
}

type UserScore struct {
	ID       string `json:"id"`
	Answered int    `json:"answered"`
	Correct  int    `json:"correct"`
	LastSeen int64  `json:"last_seen"`
}
