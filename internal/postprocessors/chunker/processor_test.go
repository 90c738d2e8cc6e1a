package chunker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/custodia-labs/trialdex/internal/core/domain"
)

// byteTokenizer makes every byte a token so window arithmetic is easy to read.
type byteTokenizer struct{}

func (byteTokenizer) Tokenize(text string) []string {
	out := make([]string, len(text))
	for i := range text {
		out[i] = text[i : i+1]
	}
	return out
}

func mustNew(t *testing.T, opts ...Option) *Processor {
	t.Helper()
	p, err := New(opts...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return p
}

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := mustNew(t)
		if p.MaxTokens() != DefaultMaxTokens {
			t.Errorf("expected maxTokens %d, got %d", DefaultMaxTokens, p.MaxTokens())
		}
		if p.Overlap() != DefaultOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultOverlap, p.Overlap())
		}
	})

	t.Run("custom values", func(t *testing.T) {
		p := mustNew(t, WithMaxTokens(500), WithOverlap(100))
		if p.MaxTokens() != 500 || p.Overlap() != 100 {
			t.Errorf("expected 500/100, got %d/%d", p.MaxTokens(), p.Overlap())
		}
	})

	invalid := []struct {
		name string
		opts []Option
	}{
		{"overlap equals window", []Option{WithMaxTokens(100), WithOverlap(100)}},
		{"overlap exceeds window", []Option{WithMaxTokens(100), WithOverlap(150)}},
		{"negative overlap", []Option{WithOverlap(-1)}},
		{"zero window", []Option{WithMaxTokens(0)}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestProcessor_Name(t *testing.T) {
	p := mustNew(t)
	if p.Name() != "chunker" {
		t.Errorf("expected name 'chunker', got '%s'", p.Name())
	}
}

func TestProcessor_Process_EmptyContent(t *testing.T) {
	p := mustNew(t)
	doc := &domain.Document{ID: "NCT1", Content: ""}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected 0 chunks for empty content, got %d", len(chunks))
	}
}

func TestProcessor_Process_SingleChunk(t *testing.T) {
	p := mustNew(t, WithMaxTokens(100), WithOverlap(20))
	content := `"Brief title": "Study of Drug X"`
	doc := &domain.Document{ID: "NCT1", Content: content}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != content {
		t.Errorf("expected chunk to equal content, got %q", chunks[0].Content)
	}
	if chunks[0].DocumentID != "NCT1" || chunks[0].Position != 0 {
		t.Errorf("unexpected parent/position: %s/%d", chunks[0].DocumentID, chunks[0].Position)
	}
}

func TestProcessor_Process_Windows(t *testing.T) {
	p := mustNew(t, WithMaxTokens(4), WithOverlap(2), WithTokenizer(byteTokenizer{}))
	doc := &domain.Document{ID: "NCT1", Content: "abcdefghij"}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []string{"abcd", "cdef", "efgh", "ghij", "ij"}
	if len(chunks) != len(expected) {
		t.Fatalf("expected %d chunks, got %d", len(expected), len(chunks))
	}
	for i, want := range expected {
		if chunks[i].Content != want {
			t.Errorf("chunk %d: expected %q, got %q", i, want, chunks[i].Content)
		}
		if chunks[i].Position != i {
			t.Errorf("chunk %d: expected position %d, got %d", i, i, chunks[i].Position)
		}
	}
}

func TestProcessor_Process_NoOverlapPartitions(t *testing.T) {
	p := mustNew(t, WithMaxTokens(7), WithOverlap(0))
	content := strings.Repeat("Eligibility criteria: adults aged 18 to 65; ", 20)
	doc := &domain.Document{ID: "NCT1", Content: content}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var joined strings.Builder
	total := 0
	for _, c := range chunks {
		joined.WriteString(c.Content)
		n := len(WordTokenizer{}.Tokenize(c.Content))
		if n > 7 {
			t.Errorf("chunk %d has %d tokens, max is 7", c.Position, n)
		}
		total += n
	}
	if joined.String() != content {
		t.Error("chunks with zero overlap must concatenate to the content")
	}

	tokens := len(WordTokenizer{}.Tokenize(content))
	if want := (tokens + 6) / 7; len(chunks) != want {
		t.Errorf("expected %d chunks, got %d", want, len(chunks))
	}
	if total != tokens {
		t.Errorf("expected %d tokens across chunks, got %d", tokens, total)
	}
}

func TestProcessor_Process_OverlapIsShared(t *testing.T) {
	p := mustNew(t, WithMaxTokens(10), WithOverlap(3))
	content := strings.Repeat("Primary outcome change in systolic blood pressure. ", 15)
	doc := &domain.Document{ID: "NCT1", Content: content}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 3 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}

	for i := 0; i+1 < len(chunks); i++ {
		cur := WordTokenizer{}.Tokenize(chunks[i].Content)
		next := WordTokenizer{}.Tokenize(chunks[i+1].Content)
		if len(cur) != 10 {
			continue
		}
		tail := strings.Join(cur[len(cur)-3:], "")
		head := strings.Join(next[:min(3, len(next))], "")
		if tail != head {
			t.Errorf("chunks %d/%d: overlap %q != %q", i, i+1, tail, head)
		}
	}
}

func TestProcessor_Process_MultiByte(t *testing.T) {
	p := mustNew(t, WithMaxTokens(3))
	content := "Étude randomisée 日本語の臨床試験 👩‍⚕️ résultats"
	doc := &domain.Document{ID: "NCT1", Content: content}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var joined strings.Builder
	for _, c := range chunks {
		if !utf8.ValidString(c.Content) {
			t.Errorf("chunk %d is not valid UTF-8: %q", c.Position, c.Content)
		}
		joined.WriteString(c.Content)
	}
	if joined.String() != content {
		t.Error("chunks must concatenate to the content")
	}
}

func TestProcessor_Process_StableIDs(t *testing.T) {
	p := mustNew(t, WithMaxTokens(2))
	doc := &domain.Document{ID: "NCT1", Content: "a b c d"}

	first, _ := p.Process(context.Background(), doc, nil)
	second, _ := p.Process(context.Background(), doc, nil)

	seen := make(map[string]bool)
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("chunk %d id changed between runs", i)
		}
		if seen[first[i].ID] {
			t.Errorf("duplicate chunk id %s", first[i].ID)
		}
		seen[first[i].ID] = true
	}
	if ChunkID("NCT1", 0) == ChunkID("NCT2", 0) {
		t.Error("different documents must give different ids")
	}
}

func TestProcessor_Process_Cancelled(t *testing.T) {
	p := mustNew(t, WithMaxTokens(2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Process(ctx, &domain.Document{ID: "NCT1", Content: "a b c"}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestWordTokenizer(t *testing.T) {
	tokens := WordTokenizer{}.Tokenize("Hello world")
	expected := []string{"Hello", " ", "world"}
	if len(tokens) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, tokens)
	}
	for i := range expected {
		if tokens[i] != expected[i] {
			t.Errorf("token %d: expected %q, got %q", i, expected[i], tokens[i])
		}
	}

	if got := (WordTokenizer{}).Tokenize(""); len(got) != 0 {
		t.Errorf("expected no tokens for empty text, got %v", got)
	}
}

func TestProcess_EmbedInputPerChunk(t *testing.T) {
	doc := &domain.Document{
		ID:      "NCT9",
		Content: "abcdefghij",
		Metadata: domain.NewExtractedRecord(
			domain.Field{Name: "NCT ID", Value: "NCT9"},
			domain.Field{Name: "Brief title", Value: "T"},
		),
		LLMHiddenKeys:   domain.NewKeySet(),
		EmbedHiddenKeys: domain.NewKeySet("NCT ID"),
	}
	p := mustNew(t, WithTokenizer(byteTokenizer{}), WithMaxTokens(4))

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	for _, c := range chunks {
		got := doc.RenderChunk(c, domain.MetadataModeEmbed)
		want := "Metadata:\nBrief title=>T\n===========================\nContent: \n" + c.Content
		if got != want {
			t.Errorf("chunk %d: expected %q, got %q", c.Position, want, got)
		}
		for _, other := range chunks {
			if other.Position != c.Position && strings.Contains(got, other.Content) {
				t.Errorf("chunk %d embed input carries content of chunk %d", c.Position, other.Position)
			}
		}
	}
}
