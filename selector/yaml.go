package selector

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FromFile loads a selector spec from a YAML file.
func FromFile(path string) (Selector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading selector spec: %w", err)
	}
	return FromYAML(data)
}

// FromYAML loads a selector spec from YAML text. The root may be a list
// (a series), a bare string (a zero-argument selector name), or a mapping
// with exactly one key (a named selector and its arguments).
func FromYAML(data []byte) (Selector, error) {
	var node any
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, &ConfigError{Err: err}
	}
	if node == nil {
		return nil, &ConfigError{Err: errors.New("spec is empty")}
	}
	return fromNode(node)
}

// ToYAML serializes a selector back to its spec form. FromYAML(ToYAML(s))
// yields a selector with the same behavior as s.
func ToYAML(s Selector) ([]byte, error) {
	return yaml.Marshal(s.yamlValue())
}

func fromNode(node any) (Selector, error) {
	switch v := node.(type) {
	case []any:
		return seriesFromYAML(v)
	case string:
		switch v {
		case "text_selector":
			return &TextSelector{}, nil
		case "html_selector":
			return &HTMLSelector{}, nil
		}
		return nil, &ConfigError{Name: v, Err: errors.New("unknown selector name")}
	case map[string]any:
		if len(v) != 1 {
			return nil, &ConfigError{Args: v, Err: fmt.Errorf("selector mapping must have exactly one key, got %d", len(v))}
		}
		for name, args := range v {
			sel, err := buildNamed(name, args)
			if err != nil {
				var cfgErr *ConfigError
				if errors.As(err, &cfgErr) {
					return nil, err
				}
				return nil, &ConfigError{Name: name, Args: args, Err: err}
			}
			return sel, nil
		}
	}
	return nil, &ConfigError{Args: node, Err: fmt.Errorf("unsupported spec node of type %T", node)}
}

// buildNamed dispatches a single-key selector node by name.
func buildNamed(name string, args any) (Selector, error) {
	switch name {
	case "soup_selector":
		return soupFromYAML(args)
	case "css_selector":
		return cssFromYAML(args)
	case "indexed_selector":
		return indexedFromYAML(args)
	case "attr_selector":
		return attrFromYAML(args)
	case "split_selector":
		return splitFromYAML(args)
	case "plain_text_selector":
		return plainTextFromYAML(args)
	case "concat_selector":
		return concatFromYAML(args)
	case "mapping_selector":
		return mappingFromYAML(args)
	case "zip_selector":
		return zipFromYAML(args)
	case "for_each_selector":
		return forEachFromYAML(args)
	case "file_selector":
		return fileFromYAML(args)
	case "print_selector":
		return printFromYAML(args)
	}
	return nil, &ConfigError{Name: name, Args: args, Err: errors.New("unknown selector")}
}

func seriesFromYAML(list []any) (Selector, error) {
	subs := make([]Selector, 0, len(list))
	for i, item := range list {
		sub, err := fromNode(item)
		if err != nil {
			return nil, fmt.Errorf("series stage %d: %w", i, err)
		}
		subs = append(subs, sub)
	}
	return &SeriesSelector{Selectors: subs}, nil
}

func soupFromYAML(args any) (Selector, error) {
	m, err := argMap(args)
	if err != nil {
		return nil, err
	}
	attrs, err := stringMapArg(m, "attrs")
	if err != nil {
		return nil, err
	}
	reAttrs, err := stringMapArg(m, "re_attrs")
	if err != nil {
		return nil, err
	}
	index, err := optionalIntArg(m, "index")
	if err != nil {
		return nil, err
	}
	return NewSoupSelector(attrs, reAttrs, index)
}

func cssFromYAML(args any) (Selector, error) {
	m, err := argMap(args)
	if err != nil {
		return nil, err
	}
	query, err := requiredStringArg(m, "css_selector")
	if err != nil {
		return nil, err
	}
	index, err := optionalIntArg(m, "index")
	if err != nil {
		return nil, err
	}
	return NewCSSSelector(query, index)
}

func indexedFromYAML(args any) (Selector, error) {
	m, err := argMap(args)
	if err != nil {
		return nil, err
	}
	index, err := optionalIntArg(m, "index")
	if err != nil {
		return nil, err
	}
	if index == nil {
		return nil, errors.New("missing required key 'index'")
	}
	return &IndexedSelector{Index: *index}, nil
}

func attrFromYAML(args any) (Selector, error) {
	m, err := argMap(args)
	if err != nil {
		return nil, err
	}
	attr, err := requiredStringArg(m, "attr")
	if err != nil {
		return nil, err
	}
	if attr == "" {
		return nil, errors.New("'attr' must be a non-empty string")
	}
	return &AttrSelector{Attr: attr}, nil
}

func splitFromYAML(args any) (Selector, error) {
	m, err := argMap(args)
	if err != nil {
		return nil, err
	}
	delim, err := requiredStringArg(m, "delimiter")
	if err != nil {
		return nil, err
	}
	return &SplitSelector{Delimiter: delim}, nil
}

func plainTextFromYAML(args any) (Selector, error) {
	m, err := argMap(args)
	if err != nil {
		return nil, err
	}
	text, err := requiredStringArg(m, "text")
	if err != nil {
		return nil, err
	}
	return &PlainTextSelector{Text: text}, nil
}

func concatFromYAML(args any) (Selector, error) {
	m, err := argMap(args)
	if err != nil {
		return nil, err
	}
	first, ok := m["first"]
	if !ok {
		return nil, errors.New("missing required key 'first'")
	}
	second, ok := m["second"]
	if !ok {
		return nil, errors.New("missing required key 'second'")
	}
	firstSel, err := fromNode(first)
	if err != nil {
		return nil, err
	}
	secondSel, err := fromNode(second)
	if err != nil {
		return nil, err
	}
	return &ConcatSelector{First: firstSel, Second: secondSel}, nil
}

func mappingFromYAML(args any) (Selector, error) {
	m, err := argMap(args)
	if err != nil {
		return nil, err
	}
	rawMapping, ok := m["mapping"]
	if !ok {
		return nil, errors.New("missing required key 'mapping'")
	}
	fieldsMap, ok := rawMapping.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("'mapping' must be a mapping of field names to selectors, got %T", rawMapping)
	}

	strategy := StrategySkip
	if rawStrategy, ok := m["error_strategy"]; ok {
		name, ok := rawStrategy.(string)
		if !ok {
			return nil, fmt.Errorf("'error_strategy' must be a string, got %T", rawStrategy)
		}
		strategy, err = ParseErrorStrategy(name)
		if err != nil {
			return nil, err
		}
	}

	fields := map[string]Selector{}
	for key, sub := range fieldsMap {
		sel, err := fromNode(sub)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		fields[key] = sel
	}
	return &MappingSelector{Fields: fields, Strategy: strategy}, nil
}

func zipFromYAML(args any) (Selector, error) {
	m, err := argMap(args)
	if err != nil {
		return nil, err
	}
	rawKeys, ok := m["keys"]
	if !ok {
		return nil, errors.New("missing required key 'keys'")
	}
	rawVals, ok := m["vals"]
	if !ok {
		return nil, errors.New("missing required key 'vals'")
	}
	keys, err := fromNode(rawKeys)
	if err != nil {
		return nil, err
	}
	vals, err := fromNode(rawVals)
	if err != nil {
		return nil, err
	}
	return &ZipSelector{Keys: keys, Vals: vals}, nil
}

func forEachFromYAML(args any) (Selector, error) {
	m, err := argMap(args)
	if err != nil {
		return nil, err
	}
	rawSub, ok := m["selector"]
	if !ok {
		return nil, errors.New("missing required key 'selector'")
	}
	sub, err := fromNode(rawSub)
	if err != nil {
		return nil, err
	}
	skip, err := optionalBoolArg(m, "skip_on_fail")
	if err != nil {
		return nil, err
	}
	return &ForEachSelector{Sub: sub, SkipOnFail: skip}, nil
}

func fileFromYAML(args any) (Selector, error) {
	m, err := argMap(args)
	if err != nil {
		return nil, err
	}
	path, err := requiredStringArg(m, "file_path")
	if err != nil {
		return nil, err
	}
	return NewFileSelector(path)
}

func printFromYAML(args any) (Selector, error) {
	m, err := argMap(args)
	if err != nil {
		return nil, err
	}
	message, err := requiredStringArg(m, "message")
	if err != nil {
		return nil, err
	}
	printSelected, err := optionalBoolArg(m, "print_selected")
	if err != nil {
		return nil, err
	}
	return &PrintSelector{Message: message, PrintSelected: printSelected}, nil
}

func argMap(args any) (map[string]any, error) {
	if args == nil {
		return map[string]any{}, nil
	}
	m, ok := args.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("arguments must be a mapping, got %T", args)
	}
	return m, nil
}

func requiredStringArg(m map[string]any, key string) (string, error) {
	raw, ok := m[key]
	if !ok {
		return "", fmt.Errorf("missing required key %q", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%q must be a string, got %T", key, raw)
	}
	return s, nil
}

func optionalIntArg(m map[string]any, key string) (*int, error) {
	raw, ok := m[key]
	if !ok {
		return nil, nil
	}
	i, ok := raw.(int)
	if !ok {
		return nil, fmt.Errorf("%q must be an integer, got %T", key, raw)
	}
	return &i, nil
}

func optionalBoolArg(m map[string]any, key string) (bool, error) {
	raw, ok := m[key]
	if !ok {
		return false, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("%q must be a boolean, got %T", key, raw)
	}
	return b, nil
}

func stringMapArg(m map[string]any, key string) (map[string]string, error) {
	raw, ok := m[key]
	if !ok {
		return nil, nil
	}
	rawMap, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%q must be a mapping, got %T", key, raw)
	}
	out := map[string]string{}
	for k, v := range rawMap {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%q entry %q must be a string, got %T", key, k, v)
		}
		out[k] = s
	}
	return out, nil
}
