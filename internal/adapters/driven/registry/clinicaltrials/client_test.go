package clinicaltrials

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/trialdex/internal/core/domain"
)

const studyJSON = `{"protocolSection":{"identificationModule":{"nctId":"NCT00000001","briefTitle":"A study"}}}`

func newTestSource(t *testing.T, handler http.HandlerFunc) *Source {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return New(Config{
		BaseURL:           server.URL + "/",
		RequestsPerSecond: 1000,
		Burst:             10,
		InitialBackoff:    time.Millisecond,
	})
}

func TestFetch(t *testing.T) {
	source := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/studies/NCT00000001", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(studyJSON))
	})

	study, err := source.Fetch(context.Background(), " NCT00000001 ")
	require.NoError(t, err)

	title := domain.Get(study, domain.MustParsePath("protocolSection.identificationModule.briefTitle"), "")
	assert.Equal(t, "A study", title)
}

func TestFetch_EmptyID(t *testing.T) {
	source := newTestSource(t, func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected")
	})

	_, err := source.Fetch(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFetch_NotFound(t *testing.T) {
	var calls atomic.Int32
	source := newTestSource(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := source.Fetch(context.Background(), "NCT404")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "NCT404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	source := newTestSource(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set(HeaderRetryAfter, "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(studyJSON))
	})

	_, err := source.Fetch(context.Background(), "NCT00000001")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetch_ServerErrorExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	source := newTestSource(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	})

	_, err := source.Fetch(context.Background(), "NCT00000001")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream down", apiErr.Message)
	assert.Equal(t, int32(DefaultMaxAttempts), calls.Load())
}

func TestFetch_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	source := newTestSource(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := source.Fetch(context.Background(), "bad id")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Bad Request", apiErr.Message)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_InvalidJSON(t *testing.T) {
	source := newTestSource(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	})

	_, err := source.Fetch(context.Background(), "NCT00000001")
	assert.Error(t, err)
}

func TestFetch_Cancelled(t *testing.T) {
	source := newTestSource(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(studyJSON))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := source.Fetch(ctx, "NCT00000001")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRateLimiter_RetryAfter(t *testing.T) {
	limiter := NewRateLimiter(1000, 1)

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set(HeaderRetryAfter, "60")
	limiter.RecordRateLimited(resp)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, limiter.Wait(ctx), context.DeadlineExceeded)
}

func TestRateLimiter_Defaults(t *testing.T) {
	limiter := NewRateLimiter(0, 0)
	assert.NoError(t, limiter.Wait(context.Background()))
}
