package clinicaltrials

import "fmt"

// APIError is an unexpected registry response.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("clinicaltrials: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}
