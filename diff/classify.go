package diff

import (
	"regexp"
	"sort"
	"strings"
)

// ContentPolicy decides whether a selector's content is worth reporting.
// The selector and a sample content signature are both available so a policy
// can judge either the element's location or its text.
type ContentPolicy func(selector, content string) bool

var (
	measurementPattern = regexp.MustCompile(`\d+\s*(nm|mm|cm|kg|mhz|ghz|°c|µm|um)\b`)
	modelPattern       = regexp.MustCompile(`\b[a-z]+\s*-?\s*\d{2,}\b`)
	randomIDPattern    = regexp.MustCompile(`#[a-z]\d{5,}|#[0-9a-f]{8,}`)
)

var meaningfulWords = []string{
	"laser", "spectrometer", "microscope", "oscilloscope", "wavelength",
	"precision", "resolution", "sensitivity", "calibration", "measurement",
	"analyzer", "detector", "sensor", "optical", "frequency", "amplifier",
	"price", "specification", "model", "series", "datasheet",
}

var noiseWords = []string{
	"cookie", "privacy", "copyright", "subscribe", "newsletter", "login",
	"sign in", "sign up", "follow us", "share", "tweet",
}

var navigationWords = []string{
	"home", "about", "contact", "menu", "search", "next", "previous",
	"back to top",
}

var contentSelectorHints = []string{
	"product", "item", "article", "detail", "spec", "description", "content",
}

// DefaultPolicy keeps content that looks like product or instrument data
// (domain vocabulary, measurements, model numbers, or simply long prose)
// and rejects boilerplate, navigation, and machine-generated ids.
func DefaultPolicy(selector, content string) bool {
	sel := strings.ToLower(selector)
	text := strings.ToLower(content)

	if randomIDPattern.MatchString(sel) {
		return false
	}
	for _, w := range noiseWords {
		if strings.Contains(text, w) {
			return false
		}
	}
	for _, w := range navigationWords {
		if text == w || text == "text:"+w {
			return false
		}
	}
	for _, w := range meaningfulWords {
		if strings.Contains(text, w) {
			return true
		}
	}
	if measurementPattern.MatchString(text) || modelPattern.MatchString(text) {
		return true
	}
	for _, h := range contentSelectorHints {
		if strings.Contains(sel, h) {
			return true
		}
	}
	return len(text) > 20
}

// Classify splits the indexed selectors into two diff categories:
//
//   - uniqueLeaves: present on every page but with differing content
//   - singlePage: present on only a subset of the pages
//
// Only selectors the policy accepts are returned.
func Classify(idx *Index, policy ContentPolicy) (uniqueLeaves, singlePage map[string]struct{}) {
	if policy == nil {
		policy = DefaultPolicy
	}
	uniqueLeaves = map[string]struct{}{}
	singlePage = map[string]struct{}{}

	for selector := range idx.Selectors {
		byPage := idx.Content[selector]
		sample := sampleContent(byPage)

		if len(byPage) < len(idx.Pages) {
			if policy(selector, sample) {
				singlePage[selector] = struct{}{}
			}
			continue
		}

		distinct := map[string]struct{}{}
		for _, sig := range byPage {
			distinct[sig] = struct{}{}
		}
		if len(distinct) > 1 && policy(selector, sample) {
			uniqueLeaves[selector] = struct{}{}
		}
	}
	return uniqueLeaves, singlePage
}

// sampleContent picks a deterministic non-empty signature to show the policy.
func sampleContent(byPage map[int]string) string {
	ids := make([]int, 0, len(byPage))
	for id := range byPage {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if byPage[id] != "" {
			return byPage[id]
		}
	}
	return ""
}
