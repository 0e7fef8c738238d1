package selector

import (
	"fmt"
	"log/slog"
)

// FileSelector delegates to a selector tree loaded from another spec file.
// The file is read and parsed once, at construction, so a missing or
// malformed file fails the load of the referring spec rather than the first
// extraction.
type FileSelector struct {
	Path string
	sel  Selector
}

func NewFileSelector(path string) (*FileSelector, error) {
	sel, err := FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("file_selector %q: %w", path, err)
	}
	return &FileSelector{Path: path, sel: sel}, nil
}

func (s *FileSelector) Expects() []SelectedType { return s.sel.Expects() }

func (s *FileSelector) Select(in Selected) (Selected, error) {
	return s.sel.Select(in)
}

// yamlValue renders the loaded tree, not the file reference, so the emitted
// spec is self-contained.
func (s *FileSelector) yamlValue() any { return s.sel.yamlValue() }

// PrintSelector logs a message (and optionally the value passing through)
// and returns its input unchanged. Debug aid for long pipelines.
type PrintSelector struct {
	Message       string
	PrintSelected bool
}

func (s *PrintSelector) Expects() []SelectedType { return nil }

func (s *PrintSelector) Select(in Selected) (Selected, error) {
	if s.PrintSelected {
		slog.Info("print_selector", "message", s.Message, "type", in.Type.String(), "value", in.Collapsed())
	} else {
		slog.Info("print_selector", "message", s.Message)
	}
	return in, nil
}

func (s *PrintSelector) yamlValue() any {
	args := map[string]any{"message": s.Message}
	if s.PrintSelected {
		args["print_selected"] = true
	}
	return map[string]any{"print_selector": args}
}
