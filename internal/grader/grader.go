package grader

import "nw_quizbot/internal/models"

// Token is what a rendered button carries back on click. It encodes nothing
// but correctness, so any option with the same IsCorrect gets the same token.
type Token string

const (
	TokenCorrect Token = "collect"
	TokenWrong   Token = "wrong"
)

// CallbackID tags quiz messages; clicks with another callback id are not ours.
const CallbackID = "nw_answer"

type Verdict int

const (
	Incorrect Verdict = iota
	Correct
)

func (v Verdict) String() string {
	if v == Correct {
		return "correct"
	}
	return "incorrect"
}

func Encode(opt models.AnswerOption) Token {
	if opt.IsCorrect {
		return TokenCorrect
	}
	return TokenWrong
}

// Decode treats anything but TokenCorrect as a wrong answer.
func Decode(token string) Verdict {
	if Token(token) == TokenCorrect {
		return Correct
	}
	return Incorrect
}

// Click is an interactive event on a quiz message.
type Click struct {
	Token        string
	UserID       string
	OriginalText string
}

type Result struct {
	Verdict      Verdict
	UserID       string
	OriginalText string
}

func Grade(c Click) Result {
	return Result{
		Verdict:      Decode(c.Token),
		UserID:       c.UserID,
		OriginalText: c.OriginalText,
	}
}
