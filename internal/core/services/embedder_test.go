package services

import (
	"context"
	"errors"
	"strings"
	stdsync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/trialdex/internal/core/domain"
	"github.com/custodia-labs/trialdex/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbedding implements driven.EmbeddingService for testing.
type mockEmbedding struct {
	mu         stdsync.Mutex
	dims       int
	calls      int
	batchSizes []int
	inputs     []string

	// failFirst makes the first n calls fail with a transient error.
	failFirst int
	// alwaysFail makes every call fail with this error.
	alwaysFail error
	// reject refuses any batch containing an input with this substring.
	reject string
	// width overrides the returned vector width.
	width int

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	delay       time.Duration
}

var _ driven.EmbeddingService = (*mockEmbedding)(nil)

func (m *mockEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	vs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

func (m *mockEmbedding) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		cur := m.maxInFlight.Load()
		if n <= cur || m.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	m.mu.Lock()
	m.calls++
	m.batchSizes = append(m.batchSizes, len(texts))
	m.inputs = append(m.inputs, texts...)
	call := m.calls
	m.mu.Unlock()

	if m.alwaysFail != nil {
		return nil, m.alwaysFail
	}
	if call <= m.failFirst {
		return nil, &domain.ProviderUnavailableError{Provider: "mock", Err: errors.New("503")}
	}
	if m.reject != "" {
		for _, t := range texts {
			if strings.Contains(t, m.reject) {
				return nil, domain.ErrContentRejected
			}
		}
	}

	width := m.dims
	if m.width > 0 {
		width = m.width
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, width)
		out[i][0] = float32(len(texts[i]))
	}
	return out, nil
}

func (m *mockEmbedding) Dimensions() int { return m.dims }
func (m *mockEmbedding) ModelName() string { return "mock-embed" }
func (m *mockEmbedding) Ping(_ context.Context) error { return nil }
func (m *mockEmbedding) Close() error { return nil }

func (m *mockEmbedding) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// testPolicy returns an embed policy with short backoff intervals.
func testPolicy() domain.EmbedPolicy {
	return domain.EmbedPolicy{
		BatchSize:       2,
		Concurrency:     2,
		MaxAttempts:     3,
		InitialBackoff:  time.Millisecond,
		MaxBackoff:      2 * time.Millisecond,
		MaxFailureRatio: 0.5,
	}
}

func makeItems(texts ...string) []EmbedItem {
	items := make([]EmbedItem, len(texts))
	for i, t := range texts {
		items[i] = EmbedItem{
			Chunk: &domain.Chunk{ID: "c" + string(rune('a'+i)), DocumentID: "NCT1", Position: i, Content: t},
			Input: t,
		}
	}
	return items
}

// TestEmbedder_Embed_Batches tests items are sent in batches and all vectors assigned
func TestEmbedder_Embed_Batches(t *testing.T) {
	svc := &mockEmbedding{dims: 4}
	e := NewEmbedder(svc, testPolicy(), 4)

	items := makeItems("a", "bb", "ccc", "dddd", "eeeee")
	out, err := e.Embed(context.Background(), items)
	require.NoError(t, err)

	assert.Equal(t, 5, out.Embedded)
	assert.Empty(t, out.Rejected)
	assert.Equal(t, 3, svc.callCount())
	for i, item := range items {
		require.Len(t, item.Chunk.Embedding, 4)
		assert.InDelta(t, float32(i+1), item.Chunk.Embedding[0], 0)
	}
}

// TestEmbedder_Embed_Empty tests an empty item list makes no calls
func TestEmbedder_Embed_Empty(t *testing.T) {
	svc := &mockEmbedding{dims: 4}
	out, err := NewEmbedder(svc, testPolicy(), 4).Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Embedded)
	assert.Equal(t, 0, svc.callCount())
}

// TestEmbedder_Embed_NoService tests a nil service reports the provider as unavailable
func TestEmbedder_Embed_NoService(t *testing.T) {
	_, err := NewEmbedder(nil, testPolicy(), 4).Embed(context.Background(), makeItems("a"))
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

// TestEmbedder_Embed_ConcurrencyLimit tests no more than Concurrency calls run at once
func TestEmbedder_Embed_ConcurrencyLimit(t *testing.T) {
	svc := &mockEmbedding{dims: 2, delay: 5 * time.Millisecond}
	policy := testPolicy()
	policy.BatchSize = 1
	policy.Concurrency = 2
	e := NewEmbedder(svc, policy, 2)

	_, err := e.Embed(context.Background(), makeItems("a", "b", "c", "d", "e", "f"))
	require.NoError(t, err)
	assert.LessOrEqual(t, svc.maxInFlight.Load(), int32(2))
}

// TestEmbedder_Embed_RetriesTransient tests a transient failure is retried
func TestEmbedder_Embed_RetriesTransient(t *testing.T) {
	svc := &mockEmbedding{dims: 2, failFirst: 2}
	policy := testPolicy()
	policy.BatchSize = 10
	e := NewEmbedder(svc, policy, 2)

	out, err := e.Embed(context.Background(), makeItems("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, 2, out.Embedded)
	assert.Equal(t, 3, svc.callCount())
}

// TestEmbedder_Embed_ExhaustedRetries tests the provider error after attempts run out
func TestEmbedder_Embed_ExhaustedRetries(t *testing.T) {
	svc := &mockEmbedding{dims: 2, failFirst: 100}
	policy := testPolicy()
	policy.BatchSize = 10
	e := NewEmbedder(svc, policy, 2)

	_, err := e.Embed(context.Background(), makeItems("a", "b"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)

	var pue *domain.ProviderUnavailableError
	require.ErrorAs(t, err, &pue)
	assert.Equal(t, 3, pue.Attempts)
	assert.Equal(t, 3, svc.callCount())
}

// TestEmbedder_Embed_PermanentErrorNotRetried tests unknown errors fail without retry
func TestEmbedder_Embed_PermanentErrorNotRetried(t *testing.T) {
	boom := errors.New("bad request")
	svc := &mockEmbedding{dims: 2, alwaysFail: boom}
	policy := testPolicy()
	policy.BatchSize = 10
	e := NewEmbedder(svc, policy, 2)

	_, err := e.Embed(context.Background(), makeItems("a"))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, svc.callCount())
}

// TestEmbedder_Embed_RejectionIsolated tests a rejected chunk does not fail its batch
func TestEmbedder_Embed_RejectionIsolated(t *testing.T) {
	svc := &mockEmbedding{dims: 2, reject: "forbidden"}
	policy := testPolicy()
	policy.BatchSize = 4
	e := NewEmbedder(svc, policy, 2)

	items := makeItems("ok one", "forbidden text", "ok two", "ok three")
	out, err := e.Embed(context.Background(), items)
	require.NoError(t, err)

	assert.Equal(t, 3, out.Embedded)
	require.Len(t, out.Rejected, 1)
	assert.Equal(t, items[1].Chunk.ID, out.Rejected[0].ChunkID)
	assert.Equal(t, "NCT1", out.Rejected[0].DocumentID)
	assert.ErrorIs(t, &out.Rejected[0], domain.ErrContentRejected)

	assert.Nil(t, items[1].Chunk.Embedding)
	assert.NotNil(t, items[0].Chunk.Embedding)
	assert.NotNil(t, items[2].Chunk.Embedding)
	assert.NotNil(t, items[3].Chunk.Embedding)
}

// TestEmbedder_Embed_RejectionThreshold tests too many rejections fail the call
func TestEmbedder_Embed_RejectionThreshold(t *testing.T) {
	svc := &mockEmbedding{dims: 2, reject: "x"}
	e := NewEmbedder(svc, testPolicy(), 2)

	_, err := e.Embed(context.Background(), makeItems("x1", "x2", "ok"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTooManyRejections)

	var rte *domain.RejectionThresholdError
	require.ErrorAs(t, err, &rte)
	assert.Equal(t, 2, rte.Rejected)
	assert.Equal(t, 3, rte.Total)
}

// TestEmbedder_Embed_DimensionMismatch tests vectors of the wrong width are refused
func TestEmbedder_Embed_DimensionMismatch(t *testing.T) {
	svc := &mockEmbedding{dims: 4, width: 3}
	e := NewEmbedder(svc, testPolicy(), 4)

	_, err := e.Embed(context.Background(), makeItems("a"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// TestEmbedder_DimensionsFromService tests a zero width falls back to the service
func TestEmbedder_DimensionsFromService(t *testing.T) {
	svc := &mockEmbedding{dims: 4, width: 3}
	e := NewEmbedder(svc, testPolicy(), 0)

	_, err := e.Embed(context.Background(), makeItems("a"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// TestEmbedder_Embed_Progress tests the progress callback reaches the item count
func TestEmbedder_Embed_Progress(t *testing.T) {
	svc := &mockEmbedding{dims: 2}
	var last atomic.Int64
	e := NewEmbedder(svc, testPolicy(), 2, WithProgress(func(done int) {
		for {
			cur := last.Load()
			if int64(done) <= cur || last.CompareAndSwap(cur, int64(done)) {
				return
			}
		}
	}))

	_, err := e.Embed(context.Background(), makeItems("a", "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), last.Load())
}

// TestEmbedder_Embed_Cancelled tests a cancelled context stops the call
func TestEmbedder_Embed_Cancelled(t *testing.T) {
	svc := &mockEmbedding{dims: 2, failFirst: 100}
	policy := testPolicy()
	policy.MaxAttempts = 50
	policy.InitialBackoff = 50 * time.Millisecond
	policy.MaxBackoff = 50 * time.Millisecond
	e := NewEmbedder(svc, policy, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := e.Embed(ctx, makeItems("a"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
