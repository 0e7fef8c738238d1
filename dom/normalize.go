package dom

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// nonDisplayable tags carry no renderable content; they and their subtrees
// are dropped during normalization.
var nonDisplayable = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"meta":     true,
	"link":     true,
	"head":     true,
	"title":    true,
}

// Normalize parses raw HTML (malformed markup tolerated) and converts it to
// a normalized Page rooted at <body>, falling back to <html>.
func Normalize(rawHTML, url string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	root := doc.Find("body").First()
	if root.Length() == 0 {
		root = doc.Find("html").First()
	}
	if root.Length() == 0 {
		return nil, fmt.Errorf("no body or html element found")
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = "Unknown"
	}

	n := &normalizer{doc: doc}
	tree := n.elementFromSelection(root)
	if tree == nil {
		return nil, fmt.Errorf("document contains no displayable elements")
	}

	return &Page{
		URL:           url,
		Title:         title,
		TotalElements: n.counter,
		DOMTree:       tree,
	}, nil
}

// normalizer threads the element id counter and the parsed document through
// one traversal. A fresh normalizer is built per Normalize call; nothing is
// shared between pages.
type normalizer struct {
	doc     *goquery.Document
	counter int
}

func (n *normalizer) elementFromSelection(sel *goquery.Selection) *Element {
	tag := goquery.NodeName(sel)
	if tag == "" || nonDisplayable[tag] {
		return nil
	}

	n.counter++
	el := &Element{
		ID:          n.counter,
		Tag:         tag,
		CSSSelector: n.cssSelector(sel),
		Attributes:  attributesOf(sel),
		TextContent: n.extractText(sel),
		Children:    []*Element{},
	}

	if el.CSSSelector != "" {
		if count := n.matchCount(el.CSSSelector); count != 1 {
			slog.Warn("generated selector is not unique", "selector", el.CSSSelector, "matches", count)
		}
	}

	sel.Children().Each(func(_ int, child *goquery.Selection) {
		if childEl := n.elementFromSelection(child); childEl != nil {
			el.Children = append(el.Children, childEl)
		}
	})
	return el
}

func attributesOf(sel *goquery.Selection) map[string]string {
	attrs := map[string]string{}
	if len(sel.Nodes) == 0 {
		return attrs
	}
	for _, a := range sel.Nodes[0].Attr {
		attrs[a.Key] = a.Val
	}
	return attrs
}

// extractText concatenates the element's direct text nodes and the text of
// all displayable descendants, with whitespace collapsed. No layout engine
// is consulted, so CSS-hidden content is included deliberately. Form
// controls contribute synthesized text on top of their own content.
func (n *normalizer) extractText(sel *goquery.Selection) string {
	var parts []string
	appendText := func(s string) {
		s = collapseWhitespace(s)
		if s != "" {
			parts = append(parts, s)
		}
	}

	sel.Contents().Each(func(_ int, c *goquery.Selection) {
		if len(c.Nodes) == 0 {
			return
		}
		switch c.Nodes[0].Type {
		case html.TextNode:
			appendText(c.Nodes[0].Data)
		case html.ElementNode:
			if !nonDisplayable[c.Nodes[0].Data] {
				appendText(n.extractText(c))
			}
		}
	})

	text := strings.Join(parts, " ")

	switch goquery.NodeName(sel) {
	case "input", "select", "textarea":
		if v, ok := sel.Attr("value"); ok && v != "" {
			text = joinText(text, v)
		}
		if v, ok := sel.Attr("placeholder"); ok && v != "" {
			text = joinText(text, v)
		}
		if goquery.NodeName(sel) == "select" {
			var options []string
			sel.Find("option").Each(func(_ int, opt *goquery.Selection) {
				if t := collapseWhitespace(opt.Text()); t != "" {
					options = append(options, t)
				}
			})
			if len(options) > 0 {
				text = joinText(text, strings.Join(options, " "))
			}
		}
	case "optgroup":
		if v, ok := sel.Attr("label"); ok && v != "" {
			text = joinText(text, v)
		}
	case "label":
		if v, ok := sel.Attr("for"); ok && v != "" {
			text = joinText(text, fmt.Sprintf("[for: %s]", v))
		}
	}

	return text
}

func joinText(base, extra string) string {
	return strings.TrimSpace(base + " " + extra)
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
