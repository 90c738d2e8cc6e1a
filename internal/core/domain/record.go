package domain

// Field is one named string value of an ExtractedRecord.
type Field struct {
	Name  string
	Value string
}

// ExtractedRecord maps catalog field names to string values, in catalog order.
type ExtractedRecord struct {
	fields []Field
	index  map[string]int
}

// NewExtractedRecord builds a record from fields. A repeated name replaces the
// earlier value and keeps the earlier position.
func NewExtractedRecord(fields ...Field) ExtractedRecord {
	r := ExtractedRecord{index: make(map[string]int, len(fields))}
	for _, f := range fields {
		r.Set(f.Name, f.Value)
	}
	return r
}

// Set assigns name. New names are appended.
func (r *ExtractedRecord) Set(name, value string) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[name]; ok {
		r.fields[i].Value = value
		return
	}
	r.index[name] = len(r.fields)
	r.fields = append(r.fields, Field{Name: name, Value: value})
}

// Get returns the value of name.
func (r ExtractedRecord) Get(name string) (string, bool) {
	i, ok := r.index[name]
	if !ok {
		return "", false
	}
	return r.fields[i].Value, true
}

// Has reports whether name is present.
func (r ExtractedRecord) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Len returns the number of fields.
func (r ExtractedRecord) Len() int { return len(r.fields) }

// Fields returns a copy of the fields in order.
func (r ExtractedRecord) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Names returns the field names in order.
func (r ExtractedRecord) Names() []string {
	out := make([]string, len(r.fields))
	for i, f := range r.fields {
		out[i] = f.Name
	}
	return out
}

// Map returns the record as an unordered map.
func (r ExtractedRecord) Map() map[string]string {
	out := make(map[string]string, len(r.fields))
	for _, f := range r.fields {
		out[f.Name] = f.Value
	}
	return out
}

// FlatEntry is one leaf of a flattened record.
type FlatEntry struct {
	Key   string
	Value Value
}

// FlatRecord is the ordered, single-level view of a nested record.
// Keys are unique.
type FlatRecord struct {
	entries []FlatEntry
	index   map[string]int
}

// Put adds a leaf. A key already present keeps its position and takes the new value.
func (f *FlatRecord) Put(key string, v Value) {
	if f.index == nil {
		f.index = make(map[string]int)
	}
	if i, ok := f.index[key]; ok {
		f.entries[i].Value = v
		return
	}
	f.index[key] = len(f.entries)
	f.entries = append(f.entries, FlatEntry{Key: key, Value: v})
}

// Get returns the leaf stored under key.
func (f FlatRecord) Get(key string) (Value, bool) {
	i, ok := f.index[key]
	if !ok {
		return Value{}, false
	}
	return f.entries[i].Value, true
}

// Len returns the number of leaves.
func (f FlatRecord) Len() int { return len(f.entries) }

// Entries returns a copy of the leaves in order.
func (f FlatRecord) Entries() []FlatEntry {
	out := make([]FlatEntry, len(f.entries))
	copy(out, f.entries)
	return out
}

// Keys returns the leaf keys in order.
func (f FlatRecord) Keys() []string {
	out := make([]string, len(f.entries))
	for i, e := range f.entries {
		out[i] = e.Key
	}
	return out
}
