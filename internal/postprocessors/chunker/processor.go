// Package chunker provides a token-window chunking processor.
package chunker

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/trialdex/internal/core/domain"
	"github.com/custodia-labs/trialdex/internal/core/ports/driven"
)

// DefaultMaxTokens is the default number of tokens per chunk.
const DefaultMaxTokens = 8190

// DefaultOverlap is the default number of tokens shared by adjacent chunks.
const DefaultOverlap = 0

// chunkNamespace scopes chunk ids so the same document and position always
// produce the same id.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://clinicaltrials.gov/study/chunk"))

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// Processor splits document content into overlapping token windows.
// It implements the PostProcessor interface.
type Processor struct {
	maxTokens int
	overlap   int
	tokenizer Tokenizer
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMaxTokens sets the window size in tokens.
func WithMaxTokens(n int) Option {
	return func(p *Processor) {
		p.maxTokens = n
	}
}

// WithOverlap sets the number of tokens shared by adjacent windows.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// WithTokenizer replaces the word tokenizer.
func WithTokenizer(t Tokenizer) Option {
	return func(p *Processor) {
		if t != nil {
			p.tokenizer = t
		}
	}
}

// New creates a new chunker processor with the given options.
// The window must be positive and the overlap must be smaller than it.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		maxTokens: DefaultMaxTokens,
		overlap:   DefaultOverlap,
		tokenizer: WordTokenizer{},
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.maxTokens <= 0 {
		return nil, fmt.Errorf("%w: max tokens must be positive, got %d", domain.ErrInvalidInput, p.maxTokens)
	}
	if p.overlap < 0 || p.overlap >= p.maxTokens {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", domain.ErrInvalidInput, p.overlap, p.maxTokens)
	}

	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// MaxTokens returns the window size.
func (p *Processor) MaxTokens() int { return p.maxTokens }

// Overlap returns the overlap between windows.
func (p *Processor) Overlap() int { return p.overlap }

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
//
// Window i starts at token i*(max-overlap) and holds up to max tokens.
// Windows stop once one would start at or past the last token.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if doc.Content == "" {
		// Empty content produces no chunks
		return nil, nil
	}

	tokens := p.tokenizer.Tokenize(doc.Content)
	stride := p.maxTokens - p.overlap
	chunks := make([]domain.Chunk, 0, len(tokens)/stride+1)

	for start, position := 0, 0; start < len(tokens); start, position = start+stride, position+1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + p.maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}

		chunks = append(chunks, domain.Chunk{
			ID:         ChunkID(doc.ID, position),
			DocumentID: doc.ID,
			Position:   position,
			Content:    strings.Join(tokens[start:end], ""),
		})
	}

	return chunks, nil
}

// ChunkID returns the stable id of the chunk at position in document docID.
func ChunkID(docID string, position int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(docID+"/"+strconv.Itoa(position))).String()
}
