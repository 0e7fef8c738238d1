package selector

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// SeriesSelector runs its children strictly in order, feeding each stage's
// output to the next. The child list is never mutated during execution, so
// a series is safely reusable across documents and goroutines.
type SeriesSelector struct {
	Selectors []Selector
}

func (s *SeriesSelector) Expects() []SelectedType {
	if len(s.Selectors) == 0 {
		return nil
	}
	return s.Selectors[0].Expects()
}

func (s *SeriesSelector) Select(in Selected) (Selected, error) {
	current := in
	for i, stage := range s.Selectors {
		next, err := stage.Select(current)
		if err != nil {
			return Selected{}, fmt.Errorf("series stage %d: %w", i, err)
		}
		current = next
	}
	return current, nil
}

func (s *SeriesSelector) yamlValue() any {
	out := make([]any, 0, len(s.Selectors))
	for _, sub := range s.Selectors {
		out = append(out, sub.yamlValue())
	}
	return out
}

// ErrorStrategy controls how a MappingSelector reacts to a failing field.
type ErrorStrategy int

const (
	// StrategySkip aborts the whole mapping and signals that the record
	// should be dropped (see ErrSkipRecord). This is the default.
	StrategySkip ErrorStrategy = iota
	// StrategyRaise propagates the first field error.
	StrategyRaise
	// StrategyMarkNone records nil for the failing field and continues.
	StrategyMarkNone
)

func (s ErrorStrategy) String() string {
	switch s {
	case StrategyRaise:
		return "raise"
	case StrategyMarkNone:
		return "mark_none"
	default:
		return "skip"
	}
}

// ParseErrorStrategy converts the spec-file spelling of a strategy.
func ParseErrorStrategy(name string) (ErrorStrategy, error) {
	switch name {
	case "skip":
		return StrategySkip, nil
	case "raise":
		return StrategyRaise, nil
	case "mark_none":
		return StrategyMarkNone, nil
	}
	return StrategySkip, fmt.Errorf("unknown error strategy %q", name)
}

// MappingSelector runs a named sub-selector per field against the same
// single input and collapses the results into one map.
type MappingSelector struct {
	Fields   map[string]Selector
	Strategy ErrorStrategy
}

func (s *MappingSelector) Expects() []SelectedType { return []SelectedType{SingleType} }

func (s *MappingSelector) Select(in Selected) (Selected, error) {
	if err := expect("mapping_selector", in, SingleType); err != nil {
		return Selected{}, err
	}

	keys := make([]string, 0, len(s.Fields))
	for key := range s.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := map[string]any{}
	for _, key := range keys {
		result, err := s.Fields[key].Select(in)
		if err != nil {
			switch s.Strategy {
			case StrategyRaise:
				return Selected{}, fmt.Errorf("mapping field %q: %w", key, err)
			case StrategyMarkNone:
				slog.Warn("mapping field failed, recording nil", "field", key, "error", err)
				out[key] = nil
			default:
				return Selected{}, fmt.Errorf("mapping field %q: %w: %w", key, ErrSkipRecord, err)
			}
			continue
		}
		out[key] = result.Collapsed()
	}
	return NewValue(out), nil
}

func (s *MappingSelector) yamlValue() any {
	fields := map[string]any{}
	for key, sub := range s.Fields {
		fields[key] = sub.yamlValue()
	}
	args := map[string]any{"mapping": fields}
	if s.Strategy != StrategySkip {
		args["error_strategy"] = s.Strategy.String()
	}
	return map[string]any{"mapping_selector": args}
}

// ZipSelector runs two sub-selectors against the same input; both must
// produce multiples of equal length, which are zipped into one map.
type ZipSelector struct {
	Keys Selector
	Vals Selector
}

func (s *ZipSelector) Expects() []SelectedType { return nil }

func (s *ZipSelector) Select(in Selected) (Selected, error) {
	keys, err := s.Keys.Select(in)
	if err != nil {
		return Selected{}, fmt.Errorf("zip_selector keys: %w", err)
	}
	vals, err := s.Vals.Select(in)
	if err != nil {
		return Selected{}, fmt.Errorf("zip_selector vals: %w", err)
	}
	if keys.Type != MultipleType {
		return Selected{}, &TypeError{Op: "zip_selector keys", Want: []SelectedType{MultipleType}, Got: keys.Type}
	}
	if vals.Type != MultipleType {
		return Selected{}, &TypeError{Op: "zip_selector vals", Want: []SelectedType{MultipleType}, Got: vals.Type}
	}
	if len(keys.List) != len(vals.List) {
		return Selected{}, fmt.Errorf("zip_selector: keys and vals must be the same length (%d != %d)",
			len(keys.List), len(vals.List))
	}

	out := map[string]any{}
	for i := range keys.List {
		out[collapsedString(keys.List[i])] = vals.List[i].Collapsed()
	}
	return NewValue(out), nil
}

func (s *ZipSelector) yamlValue() any {
	return map[string]any{"zip_selector": map[string]any{
		"keys": s.Keys.yamlValue(),
		"vals": s.Vals.yamlValue(),
	}}
}

// ForEachSelector applies a sub-selector to each element of a multiple. An
// element whose pipeline signalled a record skip is always omitted; other
// failures either skip the element (SkipOnFail) or abort the whole loop.
type ForEachSelector struct {
	Sub        Selector
	SkipOnFail bool
}

func (s *ForEachSelector) Expects() []SelectedType { return []SelectedType{MultipleType} }

func (s *ForEachSelector) Select(in Selected) (Selected, error) {
	if err := expect("for_each_selector", in, MultipleType); err != nil {
		return Selected{}, err
	}

	out := make([]Selected, 0, len(in.List))
	for i, item := range in.List {
		result, err := s.Sub.Select(item)
		if err != nil {
			if errors.Is(err, ErrSkipRecord) || s.SkipOnFail {
				slog.Debug("for_each skipping element", "index", i, "error", err)
				continue
			}
			return Selected{}, fmt.Errorf("for_each element %d: %w", i, err)
		}
		out = append(out, result)
	}
	return NewMultiple(out), nil
}

func (s *ForEachSelector) yamlValue() any {
	args := map[string]any{"selector": s.Sub.yamlValue()}
	if s.SkipOnFail {
		args["skip_on_fail"] = true
	}
	return map[string]any{"for_each_selector": args}
}
