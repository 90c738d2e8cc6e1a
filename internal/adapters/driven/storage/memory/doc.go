// Package memory provides in-memory implementations of driven ports.
// The index store backs dry runs and tests; the config store backs tests.
package memory
