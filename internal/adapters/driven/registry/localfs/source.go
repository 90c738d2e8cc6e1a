// Package localfs reads study records saved as <id>.json files.
package localfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/trialdex/internal/core/domain"
	"github.com/custodia-labs/trialdex/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.RecordSource = (*Source)(nil)

// Source reads records from a directory.
type Source struct {
	dir string
}

// New creates a source rooted at dir. A file:// prefix is accepted.
func New(dir string) *Source {
	return &Source{dir: strings.TrimPrefix(dir, "file://")}
}

// Dir returns the directory records are read from.
func (s *Source) Dir() string { return s.dir }

// Fetch reads <dir>/<id>.json. A missing file is domain.ErrNotFound.
func (s *Source) Fetch(ctx context.Context, id string) (domain.Value, error) {
	if err := ctx.Err(); err != nil {
		return domain.Value{}, err
	}

	id = strings.TrimSpace(id)
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return domain.Value{}, fmt.Errorf("%w: study id %q", domain.ErrInvalidInput, id)
	}

	data, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Value{}, fmt.Errorf("study %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Value{}, fmt.Errorf("read study %s: %w", id, err)
	}

	value, err := domain.ParseValue(data)
	if err != nil {
		return domain.Value{}, fmt.Errorf("decode study %s: %w", id, err)
	}
	return value, nil
}
