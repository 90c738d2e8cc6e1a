// Package clinicaltrials fetches study records from the ClinicalTrials.gov
// v2 API.
//
// Requests are throttled by a token bucket. Rate-limit and server errors are
// retried with exponential backoff before the fetch fails.
package clinicaltrials
