package selector

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TextSelector extracts the stripped text content of a single node.
type TextSelector struct{}

func (s *TextSelector) Expects() []SelectedType { return []SelectedType{SingleType} }

func (s *TextSelector) Select(in Selected) (Selected, error) {
	if err := expect("text_selector", in, SingleType); err != nil {
		return Selected{}, err
	}
	return NewValue(strings.TrimSpace(in.Node.Text())), nil
}

func (s *TextSelector) yamlValue() any { return "text_selector" }

// HTMLSelector extracts the full markup of a single node.
type HTMLSelector struct{}

func (s *HTMLSelector) Expects() []SelectedType { return []SelectedType{SingleType} }

func (s *HTMLSelector) Select(in Selected) (Selected, error) {
	if err := expect("html_selector", in, SingleType); err != nil {
		return Selected{}, err
	}
	h, err := goquery.OuterHtml(in.Node)
	if err != nil {
		return Selected{}, fmt.Errorf("html_selector: rendering markup: %w", err)
	}
	return NewValue(strings.TrimSpace(h)), nil
}

func (s *HTMLSelector) yamlValue() any { return "html_selector" }

// PlainTextSelector ignores its input and produces a constant.
type PlainTextSelector struct {
	Text string
}

func (s *PlainTextSelector) Expects() []SelectedType { return nil }

func (s *PlainTextSelector) Select(Selected) (Selected, error) {
	return NewValue(s.Text), nil
}

func (s *PlainTextSelector) yamlValue() any {
	return map[string]any{"plain_text_selector": map[string]any{"text": s.Text}}
}

// SplitSelector splits its input's string form on a delimiter and re-parses
// each non-empty fragment as an HTML fragment, producing a multiple of
// singles. A single input contributes its markup; a value input its string
// form.
type SplitSelector struct {
	Delimiter string
}

func (s *SplitSelector) Expects() []SelectedType {
	return []SelectedType{ValueType, SingleType}
}

func (s *SplitSelector) Select(in Selected) (Selected, error) {
	if err := expect("split_selector", in, ValueType, SingleType); err != nil {
		return Selected{}, err
	}

	var text string
	if in.Type == SingleType {
		text = outerHTML(in.Node)
	} else {
		text = fmt.Sprintf("%v", in.Value)
	}

	items := []Selected{}
	for _, part := range strings.Split(text, s.Delimiter) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(part))
		if err != nil {
			return Selected{}, fmt.Errorf("split_selector: re-parsing fragment: %w", err)
		}
		items = append(items, single(doc.Selection))
	}
	return NewMultiple(items), nil
}

func (s *SplitSelector) yamlValue() any {
	return map[string]any{"split_selector": map[string]any{"delimiter": s.Delimiter}}
}

// ConcatSelector runs two sub-selectors against the same input and joins
// their string forms.
type ConcatSelector struct {
	First  Selector
	Second Selector
}

func (s *ConcatSelector) Expects() []SelectedType { return nil }

func (s *ConcatSelector) Select(in Selected) (Selected, error) {
	first, err := s.First.Select(in)
	if err != nil {
		return Selected{}, fmt.Errorf("concat_selector first: %w", err)
	}
	second, err := s.Second.Select(in)
	if err != nil {
		return Selected{}, fmt.Errorf("concat_selector second: %w", err)
	}
	return NewValue(collapsedString(first) + collapsedString(second)), nil
}

func (s *ConcatSelector) yamlValue() any {
	return map[string]any{"concat_selector": map[string]any{
		"first":  s.First.yamlValue(),
		"second": s.Second.yamlValue(),
	}}
}

// collapsedString renders a Selected's collapsed form as a string. Plain
// string values pass through untouched.
func collapsedString(s Selected) string {
	collapsed := s.Collapsed()
	if str, ok := collapsed.(string); ok {
		return str
	}
	return fmt.Sprintf("%v", collapsed)
}
