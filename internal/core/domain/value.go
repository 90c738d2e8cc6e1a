package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	// KindNull is the JSON null literal.
	KindNull Kind = iota
	// KindBool is true or false.
	KindBool
	// KindNumber is a JSON number, kept as its source literal.
	KindNumber
	// KindString is a JSON string.
	KindString
	// KindArray is an ordered sequence of values.
	KindArray
	// KindObject is an ordered sequence of named members.
	KindObject
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Member is a named entry of an object Value.
type Member struct {
	Key   string
	Value Value
}

// Value is a parsed registry record or any node inside one.
// The zero Value is null. Object members keep the order they were declared in.
type Value struct {
	kind    Kind
	boolean bool
	text    string // string content or number literal
	items   []Value
	members []Member
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, boolean: b} }

// Number returns a number value from its literal text.
// The literal is not validated; use ParseValue for untrusted input.
func Number(literal string) Value { return Value{kind: KindNumber, text: literal} }

// Int returns a number value for an integer.
func Int(n int64) Value { return Number(strconv.FormatInt(n, 10)) }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, text: s} }

// Array returns an array value.
func Array(items ...Value) Value { return Value{kind: KindArray, items: items} }

// Object returns an object value. Duplicate keys keep the first position
// and the last value.
func Object(members ...Member) Value {
	out := make([]Member, 0, len(members))
	seen := make(map[string]int, len(members))
	for _, m := range members {
		if i, ok := seen[m.Key]; ok {
			out[i].Value = m.Value
			continue
		}
		seen[m.Key] = len(out)
		out = append(out, m)
	}
	return Value{kind: KindObject, members: out}
}

// Kind reports the variant of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsContainer reports whether v is an array or an object.
func (v Value) IsContainer() bool { return v.kind == KindArray || v.kind == KindObject }

// Len returns the number of elements or members. Scalars have length 0.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.items)
	case KindObject:
		return len(v.members)
	default:
		return 0
	}
}

// Field returns the member named key of an object.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	for _, m := range v.members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}

// Index returns element i of an array.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindArray || i < 0 || i >= len(v.items) {
		return Value{}, false
	}
	return v.items[i], true
}

// Items returns the elements of an array, or nil.
func (v Value) Items() []Value {
	if v.kind != KindArray {
		return nil
	}
	return v.items
}

// Members returns the members of an object in declaration order, or nil.
func (v Value) Members() []Member {
	if v.kind != KindObject {
		return nil
	}
	return v.members
}

// Text returns the canonical string form of v.
//
// Strings are returned as-is, numbers as their source literal, booleans as
// "true" or "false" and null as "null". Arrays and objects are rendered as
// compact JSON with members in declaration order.
func (v Value) Text() string {
	switch v.kind {
	case KindString, KindNumber:
		return v.text
	case KindBool:
		return strconv.FormatBool(v.boolean)
	case KindNull:
		return "null"
	default:
		var b strings.Builder
		v.writeJSON(&b)
		return b.String()
	}
}

// MarshalJSON renders v as compact JSON preserving member order.
func (v Value) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	v.writeJSON(&b)
	return []byte(b.String()), nil
}

// UnmarshalJSON parses JSON into v preserving member order.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseValue(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) writeJSON(b *strings.Builder) {
	switch v.kind {
	case KindNull:
		b.WriteString("null")
	case KindBool:
		b.WriteString(strconv.FormatBool(v.boolean))
	case KindNumber:
		b.WriteString(v.text)
	case KindString:
		writeJSONString(b, v.text)
	case KindArray:
		b.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				b.WriteByte(',')
			}
			item.writeJSON(b)
		}
		b.WriteByte(']')
	case KindObject:
		b.WriteByte('{')
		for i, m := range v.members {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSONString(b, m.Key)
			b.WriteByte(':')
			m.Value.writeJSON(b)
		}
		b.WriteByte('}')
	}
}

func writeJSONString(b *strings.Builder, s string) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)
	b.Write(bytes.TrimRight(buf.Bytes(), "\n"))
}

// ParseValue decodes a single JSON document into a Value.
func ParseValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, fmt.Errorf("%w: trailing data after JSON value", ErrInvalidInput)
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return decodeFrom(dec, tok)
}

func decodeFrom(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return Number(t.String()), nil
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '[':
			var items []Value
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Array(items...), nil
		case '{':
			var members []Member
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("object key is %T", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				members = append(members, Member{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Object(members...), nil
		}
	}
	return Value{}, fmt.Errorf("unexpected token %v", tok)
}
