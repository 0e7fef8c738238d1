package diff

import "log/slog"

// Optimize coalesces differing selectors upward through the selector forest.
//
// Each selector is first walked to the highest ancestor whose children all
// differ. Then one more level of promotion applies: when at least threshold
// of a parent's children are in the walked set, the parent replaces those
// children. Promotion decisions depend only on set membership, never on
// iteration order, so the result is the same for any page or selector order.
func Optimize(idx *Index, diffs map[string]struct{}, threshold float64) map[string]struct{} {
	highest := map[string]struct{}{}
	for selector := range diffs {
		current := selector
		for {
			parent, ok := idx.ChildToParent[current]
			if !ok {
				break
			}
			if !allChildrenDiffer(idx, parent, diffs) {
				break
			}
			current = parent
		}
		highest[current] = struct{}{}
	}

	optimized := map[string]struct{}{}
	for s := range highest {
		optimized[s] = struct{}{}
	}

	for ancestor := range highest {
		parent, ok := idx.ChildToParent[ancestor]
		if !ok {
			continue
		}
		children := idx.ParentToChildren[parent]
		if len(children) == 0 {
			continue
		}
		walked := 0
		for child := range children {
			if _, ok := highest[child]; ok {
				walked++
			}
		}
		ratio := float64(walked) / float64(len(children))
		if ratio < threshold {
			continue
		}
		for child := range children {
			if _, ok := highest[child]; ok {
				delete(optimized, child)
			}
		}
		if _, ok := optimized[parent]; !ok {
			slog.Debug("promoting selector to parent",
				"parent", parent, "children", len(children), "ratio", ratio)
			optimized[parent] = struct{}{}
		}
	}
	return optimized
}

func allChildrenDiffer(idx *Index, parent string, diffs map[string]struct{}) bool {
	children := idx.ParentToChildren[parent]
	if len(children) == 0 {
		return false
	}
	for child := range children {
		if _, ok := diffs[child]; !ok {
			return false
		}
	}
	return true
}
