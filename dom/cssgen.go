package dom

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// cssSelector generates a best-effort page-unique CSS selector for the
// element: a `tag#id` anchor when the id is unique on the page, otherwise an
// ancestor chain of `tag.class:nth-of-type(n)` segments up to body/html,
// with attribute qualifiers appended to the leaf segment when the chain
// still resolves to more than one element. Uniqueness is never guaranteed on
// pathological markup; callers get the closest selector the page allows.
func (n *normalizer) cssSelector(sel *goquery.Selection) string {
	if goquery.NodeName(sel) == "" {
		return ""
	}

	var path []string // leaf first
	current := sel
	for current.Length() > 0 {
		tag := goquery.NodeName(current)
		if tag == "" || tag == "#document" {
			break
		}

		if id, ok := current.Attr("id"); ok && id != "" {
			anchor := tag + "#" + id
			if n.matchCount(anchor) == 1 {
				path = append(path, anchor)
				break
			}
			// Duplicate id: keep it as a segment and continue climbing.
			path = append(path, anchor)
			current = current.Parent()
			continue
		}

		seg := tag
		classes := classList(current)
		if len(classes) > 0 {
			seg += "." + strings.Join(classes, ".")
		}

		// Position among siblings with the same tag and class list.
		parent := current.Parent()
		if parent.Length() > 0 {
			position, total := siblingPosition(current, parent, tag, classes)
			if total > 1 {
				seg += fmt.Sprintf(":nth-of-type(%d)", position)
			}
		}

		path = append(path, seg)
		current = parent

		if name := goquery.NodeName(current); name == "body" || name == "html" {
			path = append(path, name)
			break
		}
	}

	full := joinPath(path)
	if full == "" {
		return ""
	}

	// Escalate with leaf attribute qualifiers while collisions remain.
	if n.matchCount(full) > 1 {
		full = n.disambiguate(sel, path)
	}
	return full
}

// disambiguate appends attribute qualifiers to the leaf segment until the
// full selector resolves to one element or the attributes run out. An
// attribute producing an unparseable selector is skipped.
func (n *normalizer) disambiguate(sel *goquery.Selection, path []string) string {
	leaf := path[0]
	if len(sel.Nodes) > 0 {
		for _, a := range sel.Nodes[0].Attr {
			if a.Key == "id" || a.Key == "class" {
				continue
			}
			escaped := strings.ReplaceAll(a.Val, `"`, `\"`)
			candidateLeaf := leaf + fmt.Sprintf(`[%s="%s"]`, a.Key, escaped)
			candidatePath := append([]string{candidateLeaf}, path[1:]...)
			candidate := joinPath(candidatePath)

			switch n.matchCount(candidate) {
			case -1:
				continue // unparseable qualifier, try the next attribute
			case 1:
				return candidate
			default:
				leaf = candidateLeaf
				path = candidatePath
			}
		}
	}
	return joinPath(path)
}

// matchCount counts the elements the selector resolves to on the page, or
// -1 if the selector does not compile.
func (n *normalizer) matchCount(selector string) int {
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return -1
	}
	return n.doc.FindMatcher(matcher).Length()
}

func joinPath(path []string) string {
	if len(path) == 0 {
		return ""
	}
	reversed := make([]string, len(path))
	for i, seg := range path {
		reversed[len(path)-1-i] = seg
	}
	return strings.Join(reversed, " > ")
}

func classList(sel *goquery.Selection) []string {
	raw, ok := sel.Attr("class")
	if !ok {
		return nil
	}
	return strings.Fields(raw)
}

// siblingPosition returns the 1-based position of current among its
// parent's children sharing the same tag and class list, and how many such
// siblings exist.
func siblingPosition(current *goquery.Selection, parent *goquery.Selection, tag string, classes []string) (int, int) {
	position, total := 0, 0
	currentNode := current.Nodes[0]
	parent.Children().Each(func(_ int, sib *goquery.Selection) {
		if goquery.NodeName(sib) != tag {
			return
		}
		if !sameClassList(classList(sib), classes) {
			return
		}
		total++
		if sib.Nodes[0] == currentNode {
			position = total
		}
	})
	return position, total
}

func sameClassList(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
