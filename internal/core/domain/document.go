package domain

import "strings"

// Template pieces used to render a document for a consumer.
const (
	// MetadataTemplate renders one metadata line.
	MetadataTemplate = "{key}=>{value}"

	// MetadataSeparator joins metadata lines.
	MetadataSeparator = "\n"

	// TextTemplate places the metadata block above the content block.
	TextTemplate = "Metadata:\n{metadata_str}\n===========================\nContent: \n{content}"
)

// MetadataMode selects which metadata keys a rendering shows.
type MetadataMode int

const (
	// MetadataModeAll shows every metadata key.
	MetadataModeAll MetadataMode = iota
	// MetadataModeLLM hides the keys excluded from the language model.
	MetadataModeLLM
	// MetadataModeEmbed hides the keys excluded from embedding.
	MetadataModeEmbed
	// MetadataModeNone renders the content only.
	MetadataModeNone
)

// KeySet is an ordered set of metadata keys.
type KeySet struct {
	keys []string
	set  map[string]struct{}
}

// NewKeySet builds a set from keys, dropping duplicates.
func NewKeySet(keys ...string) KeySet {
	s := KeySet{set: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		if _, ok := s.set[k]; ok {
			continue
		}
		s.set[k] = struct{}{}
		s.keys = append(s.keys, k)
	}
	return s
}

// Contains reports whether key is in the set.
func (s KeySet) Contains(key string) bool {
	_, ok := s.set[key]
	return ok
}

// Keys returns the keys in insertion order.
func (s KeySet) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Len returns the number of keys.
func (s KeySet) Len() int { return len(s.keys) }

// Document is a normalised registry record ready for chunking.
// It is not modified after assembly.
type Document struct {
	// ID is the record identifier, never empty.
	ID string

	// Content is the formatted flattening of the whole raw record.
	Content string

	// Metadata holds the extracted fields in catalog order.
	Metadata ExtractedRecord

	// LLMHiddenKeys are metadata keys not shown to the language model.
	LLMHiddenKeys KeySet

	// EmbedHiddenKeys are metadata keys not fed to the embedding model.
	EmbedHiddenKeys KeySet
}

// Text renders the document with its full metadata block.
func (d *Document) Text() string {
	return d.Render(MetadataModeAll)
}

// Render renders the document for a consumer.
func (d *Document) Render(mode MetadataMode) string {
	return d.render(mode, d.Content)
}

// RenderChunk renders a chunk of this document with the document's metadata
// block, filtered for mode.
func (d *Document) RenderChunk(c Chunk, mode MetadataMode) string {
	return d.render(mode, c.Content)
}

// MetadataString renders the metadata block visible under mode.
func (d *Document) MetadataString(mode MetadataMode) string {
	if mode == MetadataModeNone {
		return ""
	}
	lines := make([]string, 0, d.Metadata.Len())
	for _, f := range d.Metadata.Fields() {
		if d.hidden(mode, f.Name) {
			continue
		}
		r := strings.NewReplacer("{key}", f.Name, "{value}", f.Value)
		lines = append(lines, r.Replace(MetadataTemplate))
	}
	return strings.Join(lines, MetadataSeparator)
}

func (d *Document) render(mode MetadataMode, content string) string {
	meta := d.MetadataString(mode)
	if meta == "" {
		return content
	}
	return strings.NewReplacer("{metadata_str}", meta, "{content}", content).Replace(TextTemplate)
}

func (d *Document) hidden(mode MetadataMode, key string) bool {
	switch mode {
	case MetadataModeLLM:
		return d.LLMHiddenKeys.Contains(key)
	case MetadataModeEmbed:
		return d.EmbedHiddenKeys.Contains(key)
	default:
		return false
	}
}

// Chunk is a window of a document's content.
type Chunk struct {
	// ID is derived from the document ID and position.
	ID string

	// DocumentID is the parent document.
	DocumentID string

	// Position is the 0-based sequence index within the document.
	Position int

	// Content is the window text.
	Content string

	// Embedding is nil until the chunk has been embedded.
	Embedding []float32
}

// IndexRow is one row written to the search table.
type IndexRow struct {
	ID         string
	DocumentID string
	Position   int
	Text       string
	Metadata   map[string]string
	Embedding  []float32
}
