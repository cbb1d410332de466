package scraper

import (
	"bytes"

	"github.com/PuerkitoBio/goquery"
)

// DocumentView is the read-only query surface the layout parsers work on.
type DocumentView interface {
	SelectAll(selector string) []ElementView
}

type ElementView interface {
	DocumentView
	Attr(name string) (string, bool)
	Text() string
	// PrevSibling returns the immediately preceding sibling element when it
	// matches selector.
	PrevSibling(selector string) (ElementView, bool)
	// TextWithout returns the element text with matching descendants removed.
	TextWithout(selector string) string
}

type gqDocument struct {
	doc *goquery.Document
}

type gqElement struct {
	sel *goquery.Selection
}

func ParseDocument(body []byte) (DocumentView, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return &gqDocument{doc: doc}, nil
}

func (d *gqDocument) SelectAll(selector string) []ElementView {
	return wrap(d.doc.Find(selector))
}

func (e *gqElement) SelectAll(selector string) []ElementView {
	return wrap(e.sel.Find(selector))
}

func (e *gqElement) Attr(name string) (string, bool) {
	return e.sel.Attr(name)
}

func (e *gqElement) Text() string {
	return e.sel.Text()
}

func (e *gqElement) PrevSibling(selector string) (ElementView, bool) {
	prev := e.sel.PrevFiltered(selector)
	if prev.Length() == 0 {
		return nil, false
	}
	return &gqElement{sel: prev.First()}, true
}

func (e *gqElement) TextWithout(selector string) string {
	clone := e.sel.Clone()
	clone.Find(selector).Remove()
	return clone.Text()
}

func wrap(sel *goquery.Selection) []ElementView {
	out := make([]ElementView, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, &gqElement{sel: s})
	})
	return out
}
