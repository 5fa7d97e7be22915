package htmlutil

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	ErrNotFound         = errors.New("no element matches selector")
	ErrAttributeMissing = errors.New("matched element lacks attribute")
)

// Parse never fails on malformed markup, x/net/html recovers the same way a
// browser does. A nil document is only returned when the reader itself fails,
// which cannot happen for an in-memory string.
func Parse(document string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return goquery.NewDocumentFromNode(&html.Node{Type: html.DocumentNode})
	}
	return doc
}

// ExtractAttr returns the value of attr on the first element matching selector.
func ExtractAttr(doc *goquery.Document, selector, attr string) (string, error) {
	sel, err := first(doc, selector)
	if err != nil {
		return "", err
	}
	value, exists := sel.Attr(attr)
	if !exists {
		return "", fmt.Errorf("%w: %s on %s", ErrAttributeMissing, attr, selector)
	}
	return value, nil
}

// ExtractText returns the normalized inner text of the first element matching
// selector, an element with no text counts as missing.
func ExtractText(doc *goquery.Document, selector string) (string, error) {
	sel, err := first(doc, selector)
	if err != nil {
		return "", err
	}
	text := Text(sel)
	if text == "" {
		return "", fmt.Errorf("%w: text of %s", ErrAttributeMissing, selector)
	}
	return text, nil
}

func first(doc *goquery.Document, selector string) (sel *goquery.Selection, err error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	// cascadia panics on selectors it cannot compile
	defer func() {
		if r := recover(); r != nil {
			sel = nil
			err = fmt.Errorf("%w: %s (invalid selector)", ErrNotFound, selector)
		}
	}()
	sel = doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	return sel, nil
}

// blockElements end a run of text, their contents are separated from the
// surrounding text by a space.
var blockElements = map[string]bool{
	"br": true, "p": true, "div": true, "li": true,
	"tr": true, "td": true, "th": true,
}

// Text returns the normalized text of every node in sel. Unlike
// Selection.Text, adjacent paragraphs and line breaks do not run together.
func Text(sel *goquery.Selection) string {
	var buffer strings.Builder
	for _, node := range sel.Nodes {
		writeText(node, &buffer)
	}
	return NormalizeText(buffer.String())
}

func writeText(node *html.Node, buffer *strings.Builder) {
	switch node.Type {
	case html.TextNode:
		buffer.WriteString(node.Data)
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		if node.Data == "script" || node.Data == "style" {
			return
		}
		if blockElements[node.Data] {
			buffer.WriteByte(' ')
			defer buffer.WriteByte(' ')
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		writeText(child, buffer)
	}
}

var innerWhitespace = regexp.MustCompile(`\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// NormalizeText strips non-printable runes, trims and collapses inner whitespace.
func NormalizeText(s string) string {
	s = removeNonPrintable(s)
	s = strings.TrimSpace(s)
	s = innerWhitespace.ReplaceAllString(s, " ")
	return s
}
