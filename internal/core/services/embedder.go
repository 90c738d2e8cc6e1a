package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/trialdex/internal/core/domain"
	"github.com/custodia-labs/trialdex/internal/core/ports/driven"
	"github.com/custodia-labs/trialdex/internal/logger"
)

// EmbedItem pairs a chunk with the text sent to the provider for it.
// The embedder writes the vector into Chunk.Embedding.
type EmbedItem struct {
	Chunk *domain.Chunk
	Input string
}

// EmbedOutcome summarises one Embed call.
type EmbedOutcome struct {
	// Embedded is the number of chunks that received a vector.
	Embedded int

	// Rejected lists the chunks the provider refused, in input order.
	Rejected []domain.ChunkRejectedError
}

// Embedder sends chunks to an EmbeddingService in batches with bounded
// concurrency, retrying transient failures.
type Embedder struct {
	service    driven.EmbeddingService
	policy     domain.EmbedPolicy
	dimensions int
	onProgress func(done int)
	log        *logger.Logger
}

// EmbedderOption configures an Embedder.
type EmbedderOption func(*Embedder)

// WithProgress registers a callback receiving the running count of embedded
// or rejected chunks. It is called from worker goroutines.
func WithProgress(fn func(done int)) EmbedderOption {
	return func(e *Embedder) {
		e.onProgress = fn
	}
}

// NewEmbedder creates an embedder. Vectors must be dimensions wide;
// zero accepts whatever width the service reports.
func NewEmbedder(service driven.EmbeddingService, policy domain.EmbedPolicy, dimensions int, opts ...EmbedderOption) *Embedder {
	if policy.BatchSize <= 0 {
		policy.BatchSize = 1
	}
	if policy.Concurrency <= 0 {
		policy.Concurrency = 1
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	if dimensions <= 0 && service != nil {
		dimensions = service.Dimensions()
	}

	e := &Embedder{
		service:    service,
		policy:     policy,
		dimensions: dimensions,
		log:        logger.Named("embedder"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Embed embeds every item.
//
// A batch the provider rejects is retried one chunk at a time so only the
// offending chunks fail. Transient errors are retried with exponential
// backoff; once attempts run out the whole call fails with
// *domain.ProviderUnavailableError. If the share of rejected chunks exceeds
// the policy's MaxFailureRatio the call fails with
// *domain.RejectionThresholdError.
func (e *Embedder) Embed(ctx context.Context, items []EmbedItem) (*EmbedOutcome, error) {
	if len(items) == 0 {
		return &EmbedOutcome{}, nil
	}
	if e.service == nil {
		return nil, &domain.ProviderUnavailableError{Provider: "embedding", Err: errors.New("no embedding service configured")}
	}

	var (
		mu       sync.Mutex
		done     int
		rejected = make(map[int]domain.ChunkRejectedError)
	)
	report := func(n int, rej map[int]domain.ChunkRejectedError) {
		mu.Lock()
		for i, r := range rej {
			rejected[i] = r
		}
		done += n
		current := done
		mu.Unlock()
		if e.onProgress != nil {
			e.onProgress(current)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.policy.Concurrency)

	for start := 0; start < len(items); start += e.policy.BatchSize {
		end := min(start+e.policy.BatchSize, len(items))
		first := start
		batch := items[start:end]

		g.Go(func() error {
			rej, err := e.embedBatch(gctx, first, batch)
			if err != nil {
				return err
			}
			report(len(batch), rej)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &EmbedOutcome{Embedded: len(items) - len(rejected)}
	indexes := make([]int, 0, len(rejected))
	for i := range rejected {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	for _, i := range indexes {
		out.Rejected = append(out.Rejected, rejected[i])
	}

	ratio := float64(len(rejected)) / float64(len(items))
	if ratio > e.policy.MaxFailureRatio {
		return nil, &domain.RejectionThresholdError{
			Rejected: len(rejected),
			Total:    len(items),
			MaxRatio: e.policy.MaxFailureRatio,
		}
	}
	if len(rejected) > 0 {
		e.log.Warn("%d of %d chunks rejected by %s", len(rejected), len(items), e.service.ModelName())
	}
	return out, nil
}

// embedBatch embeds one batch and returns the rejected chunks keyed by
// their index in the full item list.
func (e *Embedder) embedBatch(ctx context.Context, offset int, batch []EmbedItem) (map[int]domain.ChunkRejectedError, error) {
	texts := make([]string, len(batch))
	for i, item := range batch {
		texts[i] = item.Input
	}

	vectors, err := e.call(ctx, texts)
	switch {
	case err == nil:
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%s returned %d vectors for %d inputs", e.service.ModelName(), len(vectors), len(batch))
		}
		for i, item := range batch {
			if err := e.assign(item, vectors[i]); err != nil {
				return nil, err
			}
		}
		return nil, nil

	case errors.Is(err, domain.ErrContentRejected) && len(batch) > 1:
		e.log.Debug("batch at %d rejected, retrying %d chunks one by one", offset, len(batch))
		rejected := make(map[int]domain.ChunkRejectedError)
		for i := range batch {
			rej, err := e.embedBatch(ctx, offset+i, batch[i:i+1])
			if err != nil {
				return nil, err
			}
			for k, v := range rej {
				rejected[k] = v
			}
		}
		return rejected, nil

	case errors.Is(err, domain.ErrContentRejected):
		item := batch[0]
		e.log.Warn("chunk %s of %s rejected: %v", item.Chunk.ID, item.Chunk.DocumentID, err)
		return map[int]domain.ChunkRejectedError{
			offset: {ChunkID: item.Chunk.ID, DocumentID: item.Chunk.DocumentID, Err: err},
		}, nil

	default:
		return nil, err
	}
}

// call runs EmbedBatch with retries on transient errors.
func (e *Embedder) call(ctx context.Context, texts []string) ([][]float32, error) {
	attempts := 0
	operation := func() ([][]float32, error) {
		attempts++
		vectors, err := e.service.EmbedBatch(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		if domain.IsTransient(err) {
			e.log.Debug("attempt %d of %d failed: %v", attempts, e.policy.MaxAttempts, err)
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	policy := backoff.NewExponentialBackOff()
	if e.policy.InitialBackoff > 0 {
		policy.InitialInterval = e.policy.InitialBackoff
	}
	if e.policy.MaxBackoff > 0 {
		policy.MaxInterval = e.policy.MaxBackoff
	}

	vectors, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(e.policy.MaxAttempts)),
	)
	if err == nil {
		return vectors, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if domain.IsTransient(err) {
		return nil, &domain.ProviderUnavailableError{Provider: e.service.ModelName(), Attempts: attempts, Err: err}
	}
	return nil, err
}

func (e *Embedder) assign(item EmbedItem, vector []float32) error {
	if e.dimensions > 0 && len(vector) != e.dimensions {
		return fmt.Errorf("%w: chunk %s embedded to %d dimensions, table expects %d",
			domain.ErrInvalidInput, item.Chunk.ID, len(vector), e.dimensions)
	}
	item.Chunk.Embedding = vector
	return nil
}
