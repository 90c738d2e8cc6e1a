package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step of a Path: either a member name or an array index.
type Segment struct {
	name    string
	index   int
	isIndex bool
}

// Key returns a segment selecting the object member name.
func Key(name string) Segment { return Segment{name: name} }

// Idx returns a segment selecting array element i.
func Idx(i int) Segment { return Segment{index: i, isIndex: true} }

// IsIndex reports whether the segment selects an array element.
func (s Segment) IsIndex() bool { return s.isIndex }

// Name returns the member name of a key segment.
func (s Segment) Name() string { return s.name }

// Position returns the element index of an index segment.
func (s Segment) Position() int { return s.index }

// String renders the segment as it appears in a dotted path.
func (s Segment) String() string {
	if s.isIndex {
		return strconv.Itoa(s.index)
	}
	return s.name
}

// Path is an ordered list of segments addressing a node inside a Value.
type Path []Segment

// String renders the path in dotted form.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

// ParsePath parses a dotted path such as
// "resultsSection.outcomeMeasuresModule.outcomeMeasures.0.title".
// Parts made only of digits become index segments.
func ParsePath(dotted string) (Path, error) {
	if strings.TrimSpace(dotted) == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidInput)
	}
	parts := strings.Split(dotted, ".")
	path := make(Path, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("%w: empty segment in path %q", ErrInvalidInput, dotted)
		}
		if isDigits(part) {
			i, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("%w: index %q in path %q", ErrInvalidInput, part, dotted)
			}
			path = append(path, Idx(i))
			continue
		}
		path = append(path, Key(part))
	}
	return path, nil
}

// MustParsePath is ParsePath for compile-time constant paths.
func MustParsePath(dotted string) Path {
	p, err := ParsePath(dotted)
	if err != nil {
		panic(err)
	}
	return p
}

// Join returns a new path with segs appended to p.
func (p Path) Join(segs ...Segment) Path {
	out := make(Path, 0, len(p)+len(segs))
	out = append(out, p...)
	return append(out, segs...)
}

// Lookup walks path through v. Any step that does not fit the node it is
// applied to yields ErrMissingField: a missing member, an out-of-range
// index, a name applied to an array, an index applied to an object, or
// further segments below a scalar.
func Lookup(v Value, path Path) (Value, error) {
	cur := v
	for i, seg := range path {
		var (
			next Value
			ok   bool
		)
		if seg.isIndex {
			next, ok = cur.Index(seg.index)
		} else {
			next, ok = cur.Field(seg.name)
		}
		if !ok {
			return Value{}, &MissingFieldError{Path: path, Depth: i}
		}
		cur = next
	}
	return cur, nil
}

// Get returns the canonical text of the node at path, or def when the path
// does not resolve. A null leaf renders as "null". Get never fails.
func Get(v Value, path Path, def string) string {
	node, err := Lookup(v, path)
	if err != nil {
		return def
	}
	return node.Text()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
