package diff

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ConsistencyError reports selectors that generalization failed to cover.
// Every input selector must be represented in the output, either verbatim or
// by a generalized pattern that matches it.
type ConsistencyError struct {
	Missing []string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("generalization lost %d selector(s): %s",
		len(e.Missing), strings.Join(e.Missing, ", "))
}

// RemoveRedundant drops selectors whose content is already covered by
// another kept selector: an ancestor in the indexed tree, or a textual
// ancestor by selector prefix for elements the index never saw.
func RemoveRedundant(idx *Index, selectors map[string]struct{}) map[string]struct{} {
	kept := map[string]struct{}{}
	for s := range selectors {
		if !hasAncestorIn(idx, s, selectors) {
			kept[s] = struct{}{}
		}
	}
	return kept
}

func hasAncestorIn(idx *Index, s string, selectors map[string]struct{}) bool {
	current := s
	for {
		parent, ok := idx.ChildToParent[current]
		if !ok {
			break
		}
		if _, ok := selectors[parent]; ok {
			return true
		}
		current = parent
	}
	for other := range selectors {
		if other == s {
			continue
		}
		if strings.HasPrefix(s, other+" > ") || strings.HasPrefix(s, other+" ") {
			return true
		}
	}
	return false
}

// Generalization is the final selector set plus, for each generalized
// pattern, one representative original selector used for content lookups.
type Generalization struct {
	Selectors      map[string]struct{}
	Representative map[string]string
}

var (
	nthPattern   = regexp.MustCompile(`:nth-(?:of-type|child)\(\d+\)`)
	idCounter    = regexp.MustCompile(`#([a-zA-Z][a-zA-Z_-]*)(\d+)([a-zA-Z_-]*)`)
	classCounter = regexp.MustCompile(`\.([a-zA-Z][a-zA-Z_-]*)(\d+)`)
	attrCounter  = regexp.MustCompile(`\[([a-zA-Z-]+)="([a-zA-Z][a-zA-Z_-]*)(\d+)[^"]*"\]`)
)

// Generalize collapses families of sibling selectors into shared patterns.
// Two passes run: first, selectors sharing the part before their first
// :nth-of-type qualifier collapse to that parent part; then selectors
// differing only in a trailing numeric counter of an id, class, or attribute
// value merge into a prefix pattern such as [id^="content-item-"]. Attempted
// in that precedence.
func Generalize(selectors map[string]struct{}) (*Generalization, error) {
	gen := &Generalization{
		Selectors:      map[string]struct{}{},
		Representative: map[string]string{},
	}

	remaining := collapseNth(selectors, gen)
	collapseCounters(remaining, gen)

	if missing := uncovered(selectors, gen); len(missing) > 0 {
		return nil, &ConsistencyError{Missing: missing}
	}
	return gen, nil
}

// collapseNth groups selectors by their parent part: everything before the
// first :nth-of-type/:nth-child qualifier. Groups of two or more collapse to
// that parent part; the rest are returned for the counter pass.
func collapseNth(selectors map[string]struct{}, gen *Generalization) map[string]struct{} {
	groups := map[string][]string{}
	remaining := map[string]struct{}{}

	for s := range selectors {
		parent, ok := nthParent(s)
		if !ok {
			remaining[s] = struct{}{}
			continue
		}
		groups[parent] = append(groups[parent], s)
	}

	for parent, members := range groups {
		if len(members) < 2 {
			remaining[members[0]] = struct{}{}
			continue
		}
		sort.Strings(members)
		gen.Selectors[parent] = struct{}{}
		gen.Representative[parent] = members[0]
	}
	return remaining
}

// nthParent cuts a selector at its first positional qualifier.
func nthParent(s string) (string, bool) {
	loc := nthPattern.FindStringIndex(s)
	if loc == nil {
		return "", false
	}
	return s[:loc[0]], true
}

type counterKind int

const (
	kindID counterKind = iota
	kindClass
	kindAttr
)

type counterKey struct {
	structure string
	kind      counterKind
	name      string // attribute name for kindAttr
	prefix    string
	suffix    string
}

// collapseCounters merges selectors whose only variation is a numeric run
// inside an id, class, or attribute value.
func collapseCounters(selectors map[string]struct{}, gen *Generalization) {
	groups := map[counterKey][]string{}
	for s := range selectors {
		key, ok := counterKeyFor(s)
		if !ok {
			gen.Selectors[s] = struct{}{}
			continue
		}
		groups[key] = append(groups[key], s)
	}

	for key, members := range groups {
		if len(members) < 2 {
			gen.Selectors[members[0]] = struct{}{}
			continue
		}
		sort.Strings(members)
		pattern := strings.ReplaceAll(key.structure, varyingMarker(key), patternFor(key))
		gen.Selectors[pattern] = struct{}{}
		gen.Representative[pattern] = members[0]
	}
}

const varying = "VARYING"

func counterKeyFor(s string) (counterKey, bool) {
	if m := idCounter.FindStringSubmatchIndex(s); m != nil {
		prefix := s[m[2]:m[3]]
		suffix := s[m[6]:m[7]]
		return counterKey{
			structure: s[:m[0]] + "#" + prefix + varying + suffix + s[m[1]:],
			kind:      kindID,
			prefix:    prefix,
			suffix:    suffix,
		}, true
	}
	if m := classCounter.FindStringSubmatchIndex(s); m != nil {
		prefix := s[m[2]:m[3]]
		return counterKey{
			structure: s[:m[0]] + "." + prefix + varying + s[m[1]:],
			kind:      kindClass,
			prefix:    prefix,
		}, true
	}
	if m := attrCounter.FindStringSubmatchIndex(s); m != nil {
		name := s[m[2]:m[3]]
		prefix := s[m[4]:m[5]]
		return counterKey{
			structure: s[:m[0]] + `[` + name + `="` + prefix + varying + `"]` + s[m[1]:],
			kind:      kindAttr,
			name:      name,
			prefix:    prefix,
		}, true
	}
	return counterKey{}, false
}

// varyingMarker is the placeholder text the structure holds where the
// counter was spliced out.
func varyingMarker(key counterKey) string {
	switch key.kind {
	case kindID:
		return "#" + key.prefix + varying + key.suffix
	case kindClass:
		return "." + key.prefix + varying
	default:
		return `[` + key.name + `="` + key.prefix + varying + `"]`
	}
}

// patternFor renders the attribute-prefix pattern replacing the counter.
func patternFor(key counterKey) string {
	switch key.kind {
	case kindID:
		if key.suffix != "" {
			return fmt.Sprintf(`[id^="%s"][id$="%s"]`, key.prefix, key.suffix)
		}
		return fmt.Sprintf(`[id^="%s"]`, key.prefix)
	case kindClass:
		return fmt.Sprintf(`[class*="%s"]`, key.prefix)
	default:
		return fmt.Sprintf(`[%s^="%s"]`, key.name, key.prefix)
	}
}

// uncovered verifies every input selector is represented in the output.
func uncovered(input map[string]struct{}, gen *Generalization) []string {
	var missing []string
	for s := range input {
		if covered(s, gen) {
			continue
		}
		missing = append(missing, s)
	}
	sort.Strings(missing)
	return missing
}

func covered(s string, gen *Generalization) bool {
	if _, ok := gen.Selectors[s]; ok {
		return true
	}
	if parent, ok := nthParent(s); ok {
		if _, ok := gen.Selectors[parent]; ok {
			return true
		}
	}
	if key, ok := counterKeyFor(s); ok {
		pattern := strings.ReplaceAll(key.structure, varyingMarker(key), patternFor(key))
		if _, ok := gen.Selectors[pattern]; ok {
			return true
		}
	}
	return false
}
