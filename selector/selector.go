package selector

// Selector is a composable transformation over Selected values. The variant
// set is closed: every selector in this package declares the input types it
// accepts and a YAML representation, and the two together make pipelines
// declarative, reloadable, and checkable before the first document is seen.
type Selector interface {
	// Select runs the transformation. It must not mutate the selector, so
	// a constructed pipeline is safely reusable across independent
	// executions, including concurrent ones.
	Select(in Selected) (Selected, error)

	// Expects lists the Selected types this selector accepts as input.
	// A nil slice means any type is accepted.
	Expects() []SelectedType

	// yamlValue renders the selector back to the plain YAML value it was
	// loaded from. Keeping this unexported seals the variant set.
	yamlValue() any
}
