package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// IndexPlaceholder is replaced by the element index in repeat field names.
const IndexPlaceholder = "{i}"

// FieldSpec declares one extracted field.
type FieldSpec struct {
	// Name is the output field name, e.g. "Lead sponsor".
	Name string

	// Path locates the value inside the raw record.
	Path Path

	// Default is used when Path does not resolve. Normally empty.
	Default string
}

// RepeatField is a field produced once per element of a RepeatSpec array.
type RepeatField struct {
	// Name must contain IndexPlaceholder, e.g. "Secondary outcome {i} measure".
	Name string

	// Path is relative to the array element.
	Path Path

	// Default is used when Path does not resolve inside an element.
	Default string
}

// RepeatSpec expands a group of fields for every element of an array.
// Records with more elements expose more fields, which is what makes
// key sets differ across a batch.
type RepeatSpec struct {
	Array  Path
	Fields []RepeatField
}

// ExpandName returns the field name for element i.
func (f RepeatField) ExpandName(i int) string {
	return strings.ReplaceAll(f.Name, IndexPlaceholder, strconv.Itoa(i))
}

// FieldCatalog is the declarative extraction schema.
// It is built once at startup and only read afterwards.
type FieldCatalog struct {
	Fields           []FieldSpec
	Repeats          []RepeatSpec
	Identifier       string
	LLMVisible       []string
	EmbeddingVisible []string
}

// Names returns the declared field names in order.
func (c FieldCatalog) Names() []string {
	out := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		out[i] = f.Name
	}
	return out
}

// Validate checks the catalog is usable: unique non-empty names, non-empty
// paths, an identifier among the declared fields, and placeholders in
// repeat names.
func (c FieldCatalog) Validate() error {
	if len(c.Fields) == 0 {
		return fmt.Errorf("%w: catalog declares no fields", ErrInvalidInput)
	}

	seen := make(map[string]bool, len(c.Fields))
	for _, f := range c.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: catalog field with empty name", ErrInvalidInput)
		}
		if len(f.Path) == 0 {
			return fmt.Errorf("%w: catalog field %q has no path", ErrInvalidInput, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: duplicate catalog field %q", ErrInvalidInput, f.Name)
		}
		seen[f.Name] = true
	}

	if c.Identifier == "" {
		return fmt.Errorf("%w: catalog has no identifier field", ErrInvalidInput)
	}
	if !seen[c.Identifier] {
		return fmt.Errorf("%w: identifier %q is not a declared field", ErrInvalidInput, c.Identifier)
	}

	for _, r := range c.Repeats {
		if len(r.Array) == 0 {
			return fmt.Errorf("%w: repeat group has no array path", ErrInvalidInput)
		}
		for _, f := range r.Fields {
			if !strings.Contains(f.Name, IndexPlaceholder) {
				return fmt.Errorf("%w: repeat field %q lacks %s", ErrInvalidInput, f.Name, IndexPlaceholder)
			}
			if len(f.Path) == 0 {
				return fmt.Errorf("%w: repeat field %q has no path", ErrInvalidInput, f.Name)
			}
		}
	}
	return nil
}
