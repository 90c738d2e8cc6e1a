package clinicaltrials

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/custodia-labs/trialdex/internal/core/domain"
	"github.com/custodia-labs/trialdex/internal/core/ports/driven"
	"github.com/custodia-labs/trialdex/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.RecordSource = (*Source)(nil)

// Default configuration values.
const (
	DefaultBaseURL     = "https://clinicaltrials.gov/api/v2"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxAttempts = 3
)

// maxBodySize caps a single study response.
const maxBodySize = 32 << 20

// Config holds configuration for the registry client.
type Config struct {
	// BaseURL is the API root (default: https://clinicaltrials.gov/api/v2).
	BaseURL string

	// RequestsPerSecond and Burst configure the token bucket.
	RequestsPerSecond float64
	Burst             int

	// Timeout bounds one request (default: 30s).
	Timeout time.Duration

	// MaxAttempts bounds retries of rate-limit and server errors (default: 3).
	MaxAttempts int

	// InitialBackoff is the first retry delay (default: 500ms).
	InitialBackoff time.Duration
}

// ConfigFromSettings builds a Config from registry settings.
func ConfigFromSettings(s domain.RegistrySettings) Config {
	return Config{
		BaseURL:           s.BaseURL,
		RequestsPerSecond: s.RequestsPerSecond,
		Burst:             s.Burst,
		Timeout:           s.Timeout,
	}
}

// Source fetches study records over HTTP.
type Source struct {
	http        *http.Client
	baseURL     string
	rateLimiter *RateLimiter
	maxAttempts int
	initial     time.Duration
	log         *logger.Logger
}

// New creates a registry client.
func New(cfg Config) *Source {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}

	return &Source{
		http:        &http.Client{Timeout: cfg.Timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		rateLimiter: NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst),
		maxAttempts: cfg.MaxAttempts,
		initial:     cfg.InitialBackoff,
		log:         logger.Named("clinicaltrials"),
	}
}

// Fetch retrieves the study with the given NCT ID.
// A 404 is returned as domain.ErrNotFound.
func (s *Source) Fetch(ctx context.Context, id string) (domain.Value, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Value{}, fmt.Errorf("%w: empty study id", domain.ErrInvalidInput)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.initial

	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		body, err := s.get(ctx, id)
		if err != nil && !domain.IsTransient(err) {
			return nil, backoff.Permanent(err)
		}
		if err != nil {
			s.log.Warn("fetch %s: %v", id, err)
		}
		return body, err
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(uint(s.maxAttempts)))
	if err != nil {
		return domain.Value{}, err
	}

	value, err := domain.ParseValue(body)
	if err != nil {
		return domain.Value{}, fmt.Errorf("decode study %s: %w", id, err)
	}
	return value, nil
}

// get performs one rate-limited GET and classifies the response.
func (s *Source) get(ctx context.Context, id string) ([]byte, error) {
	endpoint := s.baseURL + "/studies/" + url.PathEscape(id)
	if err := s.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &domain.ProviderUnavailableError{Provider: "clinicaltrials", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &domain.ProviderUnavailableError{Provider: "clinicaltrials", Err: fmt.Errorf("read response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("study %s: %w", id, domain.ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		s.rateLimiter.RecordRateLimited(resp)
		return nil, errors.Join(domain.ErrRateLimited, apiError(resp, body))
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, &domain.ProviderUnavailableError{Provider: "clinicaltrials", Err: apiError(resp, body)}
	default:
		return nil, apiError(resp, body)
	}
}

func apiError(resp *http.Response, body []byte) *APIError {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    msg,
		URL:        resp.Request.URL.String(),
	}
}
