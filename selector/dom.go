package selector

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// SoupSelector finds all descendant elements of a single node that match a
// set of attribute constraints, literal and/or regex. The reserved attrs
// key "tag_name" restricts the search to a tag. With an index it reduces
// the match list immediately, like a trailing IndexedSelector.
type SoupSelector struct {
	TagName string
	Attrs   map[string]string
	ReAttrs map[string]string // raw patterns, kept for serialization
	Index   *int

	re map[string]*regexp.Regexp
}

// NewSoupSelector builds a SoupSelector. Regex attribute patterns are
// compiled here, once; an invalid pattern fails construction.
func NewSoupSelector(attrs map[string]string, reAttrs map[string]string, index *int) (*SoupSelector, error) {
	s := &SoupSelector{
		Attrs:   map[string]string{},
		ReAttrs: reAttrs,
		Index:   index,
		re:      map[string]*regexp.Regexp{},
	}
	for k, v := range attrs {
		if k == "tag_name" {
			s.TagName = v
			continue
		}
		s.Attrs[k] = v
	}
	for k, pattern := range reAttrs {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex for attribute %q: %w", k, err)
		}
		s.re[k] = compiled
	}
	return s, nil
}

func (s *SoupSelector) Expects() []SelectedType { return []SelectedType{SingleType} }

func (s *SoupSelector) Select(in Selected) (Selected, error) {
	if err := expect("soup_selector", in, SingleType); err != nil {
		return Selected{}, err
	}

	candidates := in.Node.Find("*")
	if s.TagName != "" {
		candidates = in.Node.Find(s.TagName)
	}
	matched := candidates.FilterFunction(func(_ int, el *goquery.Selection) bool {
		for k, want := range s.Attrs {
			got, ok := el.Attr(k)
			if !ok || !attrMatches(k, got, want) {
				return false
			}
		}
		for k, re := range s.re {
			got, ok := el.Attr(k)
			if !ok || !re.MatchString(got) {
				return false
			}
		}
		return true
	})

	items := make([]Selected, 0, matched.Length())
	matched.Each(func(_ int, el *goquery.Selection) {
		items = append(items, single(el))
	})
	out := NewMultiple(items)

	if s.Index != nil {
		return (&IndexedSelector{Index: *s.Index}).Select(out)
	}
	return out, nil
}

func (s *SoupSelector) yamlValue() any {
	attrs := map[string]any{}
	for k, v := range s.Attrs {
		attrs[k] = v
	}
	if s.TagName != "" {
		attrs["tag_name"] = s.TagName
	}
	args := map[string]any{}
	if len(attrs) > 0 {
		args["attrs"] = attrs
	}
	if len(s.ReAttrs) > 0 {
		re := map[string]any{}
		for k, v := range s.ReAttrs {
			re[k] = v
		}
		args["re_attrs"] = re
	}
	if s.Index != nil {
		args["index"] = *s.Index
	}
	return map[string]any{"soup_selector": args}
}

// attrMatches compares an attribute value against a constraint. The class
// attribute matches on token membership, the way HTML class lists work;
// everything else matches exactly.
func attrMatches(name, got, want string) bool {
	if name == "class" {
		for _, token := range strings.Fields(got) {
			if token == want {
				return true
			}
		}
		return false
	}
	return got == want
}

// CSSSelector finds all descendants of a single node matching a raw CSS
// query. The query is compiled at construction so a bad spec fails at load
// time, not against the first document.
type CSSSelector struct {
	Query string
	Index *int

	matcher goquery.Matcher
}

func NewCSSSelector(query string, index *int) (*CSSSelector, error) {
	matcher, err := cascadia.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("invalid CSS query %q: %w", query, err)
	}
	return &CSSSelector{Query: query, Index: index, matcher: matcher}, nil
}

func (s *CSSSelector) Expects() []SelectedType { return []SelectedType{SingleType} }

func (s *CSSSelector) Select(in Selected) (Selected, error) {
	if err := expect("css_selector", in, SingleType); err != nil {
		return Selected{}, err
	}
	matched := in.Node.FindMatcher(s.matcher)
	items := make([]Selected, 0, matched.Length())
	matched.Each(func(_ int, el *goquery.Selection) {
		items = append(items, single(el))
	})
	out := NewMultiple(items)
	if s.Index != nil {
		return (&IndexedSelector{Index: *s.Index}).Select(out)
	}
	return out, nil
}

func (s *CSSSelector) yamlValue() any {
	args := map[string]any{"css_selector": s.Query}
	if s.Index != nil {
		args["index"] = *s.Index
	}
	return map[string]any{"css_selector": args}
}

// IndexedSelector picks one element out of a multiple. Negative indices
// count from the end.
type IndexedSelector struct {
	Index int
}

func (s *IndexedSelector) Expects() []SelectedType { return []SelectedType{MultipleType} }

func (s *IndexedSelector) Select(in Selected) (Selected, error) {
	if err := expect("indexed_selector", in, MultipleType); err != nil {
		return Selected{}, err
	}
	i := s.Index
	if i < 0 {
		i += len(in.List)
	}
	if i < 0 || i >= len(in.List) {
		return Selected{}, fmt.Errorf("indexed_selector: index %d out of range for %d elements", s.Index, len(in.List))
	}
	return in.List[i], nil
}

func (s *IndexedSelector) yamlValue() any {
	return map[string]any{"indexed_selector": map[string]any{"index": s.Index}}
}

// AttrSelector reads one attribute from a single node. A missing attribute
// is an error, not an empty string.
type AttrSelector struct {
	Attr string
}

func (s *AttrSelector) Expects() []SelectedType { return []SelectedType{SingleType} }

func (s *AttrSelector) Select(in Selected) (Selected, error) {
	if err := expect("attr_selector", in, SingleType); err != nil {
		return Selected{}, err
	}
	v, ok := in.Node.Attr(s.Attr)
	if !ok {
		return Selected{}, fmt.Errorf("attr_selector: attribute %q not present", s.Attr)
	}
	return NewValue(v), nil
}

func (s *AttrSelector) yamlValue() any {
	return map[string]any{"attr_selector": map[string]any{"attr": s.Attr}}
}
