package scraper

import "strings"

const (
	selIndexLink   = "div.ansbg + div.img_margin > a"
	selNumber      = ".qno"
	selBody        = ".qno + div"
	selBodyImages  = ".qno + div .img_margin img"
	selMixedOption = ".selectBtn"
	selListOption  = "ul.selectList > li"
	selButton      = "button"

	// correctness is the presence of this attribute, whatever its value
	attrCorrect = "id"
)

type layout int

const (
	layoutUnknown layout = iota
	layoutList
	layoutMixed
)

func (l layout) String() string {
	switch l {
	case layoutList:
		return "list"
	case layoutMixed:
		return "mixed"
	default:
		return "unknown"
	}
}

type rawOption struct {
	Label     string
	Text      string
	ImageSrc  string
	HasImage  bool
	IsCorrect bool
}

func detectLayout(doc DocumentView) layout {
	if len(doc.SelectAll(selMixedOption)) > 0 {
		return layoutMixed
	}
	if len(doc.SelectAll(selListOption)) > 0 {
		return layoutList
	}
	return layoutUnknown
}

// parseMixed reads the current layout: each .selectBtn is preceded by a div
// holding either the option text or an image. One image option switches the
// whole quiz to image choice.
func parseMixed(doc DocumentView) (opts []rawOption, imageChoice bool) {
	for _, btn := range doc.SelectAll(selMixedOption) {
		_, correct := btn.Attr(attrCorrect)
		opt := rawOption{
			Label:     buttonLabel(btn),
			IsCorrect: correct,
		}

		if prev, ok := btn.PrevSibling("div"); ok {
			if imgs := prev.SelectAll("img"); len(imgs) > 0 {
				opt.HasImage = true
				opt.ImageSrc, _ = imgs[0].Attr("src")
				imageChoice = true
			} else {
				opt.Text = strings.TrimSpace(prev.Text())
			}
		}
		opts = append(opts, opt)
	}
	return opts, imageChoice
}

// parseList reads the legacy single-select list, where the correct item's
// button carries the marker.
func parseList(doc DocumentView) []rawOption {
	var opts []rawOption
	for _, li := range doc.SelectAll(selListOption) {
		opt := rawOption{Text: strings.TrimSpace(li.TextWithout(selButton))}
		if buttons := li.SelectAll(selButton); len(buttons) > 0 {
			opt.Label = strings.TrimSpace(buttons[0].Text())
			_, opt.IsCorrect = buttons[0].Attr(attrCorrect)
		}
		if opt.Label == "" {
			opt.Label = opt.Text
		}
		opts = append(opts, opt)
	}
	return opts
}

func buttonLabel(el ElementView) string {
	if buttons := el.SelectAll(selButton); len(buttons) > 0 {
		return strings.TrimSpace(buttons[0].Text())
	}
	return strings.TrimSpace(el.Text())
}

func firstText(doc DocumentView, selector string) string {
	els := doc.SelectAll(selector)
	if len(els) == 0 {
		return ""
	}
	return strings.TrimSpace(els[0].Text())
}

func imageSources(doc DocumentView, selector string) []string {
	var srcs []string
	for _, img := range doc.SelectAll(selector) {
		if src, ok := img.Attr("src"); ok {
			srcs = append(srcs, src)
		}
	}
	return srcs
}
