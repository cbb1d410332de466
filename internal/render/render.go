package render

import (
	"fmt"

	"nw_quizbot/internal/article"
	"nw_quizbot/internal/grader"
	"nw_quizbot/internal/models"
)

const (
	ColorGood   = "good"
	ColorDanger = "danger"
	ColorImage  = "#808080"

	ResponseInChannel = "in_channel"

	linkBackText     = "\n\n詳細や画像が表示されていない場合はこちらへ\n"
	replyFallback    = "失敗しました。"
	articleHeadline  = "まずは基礎から!"
	correctReplyText = ":white_check_mark: <@%s> 正解!"
	wrongReplyText   = ":x: <@%s> 残念…"
)

// Message is an outgoing chat payload in the Slack attachments format.
type Message struct {
	Channel         string       `json:"channel,omitempty"`
	Text            string       `json:"text"`
	Attachments     []Attachment `json:"attachments,omitempty"`
	ResponseType    string       `json:"response_type,omitempty"`
	ReplaceOriginal *bool        `json:"replace_original,omitempty"`
}

type Attachment struct {
	Title      string   `json:"title,omitempty"`
	Text       string   `json:"text,omitempty"`
	Fallback   string   `json:"fallback,omitempty"`
	CallbackID string   `json:"callback_id,omitempty"`
	Color      string   `json:"color,omitempty"`
	ImageURL   string   `json:"image_url,omitempty"`
	Actions    []Action `json:"actions,omitempty"`
}

type Action struct {
	Name  string `json:"name"`
	Text  string `json:"text"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Quiz lays out q as the question block, then one block per question image,
// then the answers. In image-choice mode every option gets its own block;
// otherwise all buttons sit on the question block.
func Quiz(q *models.Quiz) Message {
	main := Attachment{
		Title:      q.PromptText,
		Text:       linkBackText + q.SourceURL,
		Fallback:   q.PromptText,
		CallbackID: grader.CallbackID,
		Color:      ColorGood,
	}

	images := make([]Attachment, 0, len(q.Images))
	for _, img := range q.Images {
		images = append(images, Attachment{
			Text:     q.Number,
			Fallback: img.ResolvedURL,
			Color:    ColorImage,
			ImageURL: img.ProxiedURL,
		})
	}

	var answers []Attachment
	if q.ImageChoice {
		for _, opt := range q.Options {
			answers = append(answers, optionAttachment(opt))
		}
	} else {
		for _, opt := range q.Options {
			main.Actions = append(main.Actions, button(opt))
		}
	}

	attachments := make([]Attachment, 0, 1+len(images)+len(answers))
	attachments = append(attachments, main)
	attachments = append(attachments, images...)
	attachments = append(attachments, answers...)

	return Message{Text: q.Number, Attachments: attachments}
}

func button(opt models.AnswerOption) Action {
	return Action{
		Name:  string(grader.Encode(opt)),
		Text:  opt.Label,
		Type:  "button",
		Value: opt.Label,
	}
}

func optionAttachment(opt models.AnswerOption) Attachment {
	att := Attachment{
		Text:       opt.Label,
		Fallback:   opt.Label,
		Color:      ColorImage,
		CallbackID: grader.CallbackID,
		Actions:    []Action{button(opt)},
	}
	switch {
	case opt.Image != nil:
		att.ImageURL = opt.Image.ProxiedURL
		att.Fallback = opt.Image.ResolvedURL
	case opt.Text != "":
		att.Text = fmt.Sprintf("%s. %s", opt.Label, opt.Text)
	}
	return att
}

// GradeReply answers a click below the original quiz, leaving it in place.
func GradeReply(res grader.Result) Message {
	text, color := fmt.Sprintf(wrongReplyText, res.UserID), ColorDanger
	if res.Verdict == grader.Correct {
		text, color = fmt.Sprintf(correctReplyText, res.UserID), ColorGood
	}
	replace := false
	return Message{
		Text: res.OriginalText,
		Attachments: []Attachment{{
			Text:       text,
			Fallback:   replyFallback,
			CallbackID: grader.CallbackID,
			Color:      color,
		}},
		ResponseType:    ResponseInChannel,
		ReplaceOriginal: &replace,
	}
}

func Article(a article.Article) Message {
	text := fmt.Sprintf("%s\n*第 %d/%d 回目* %s", articleHeadline, a.Index, a.Total, a.URL)
	if a.Title != "" {
		text += "\n" + a.Title
	}
	return Message{Text: text}
}
