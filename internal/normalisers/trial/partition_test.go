package trial

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/trialdex/internal/core/domain"
)

func recordWith(names ...string) domain.ExtractedRecord {
	var r domain.ExtractedRecord
	for _, n := range names {
		r.Set(n, "v")
	}
	return r
}

// TestPartition_RichestRecord tests keys come from the record with most fields
func TestPartition_RichestRecord(t *testing.T) {
	batch := []domain.ExtractedRecord{
		recordWith("id", "title"),
		recordWith("id", "title", "sec 0", "sec 1"),
		recordWith("id"),
	}

	include, exclude := Partition(batch, []string{"id", "sec 1"})
	assert.Equal(t, []string{"id", "sec 1"}, include.Keys())
	assert.Equal(t, []string{"title", "sec 0"}, exclude.Keys())
}

// TestPartition_TieGoesToFirst tests the first richest record wins
func TestPartition_TieGoesToFirst(t *testing.T) {
	batch := []domain.ExtractedRecord{
		recordWith("a", "b"),
		recordWith("c", "d"),
	}

	_, exclude := Partition(batch, nil)
	assert.Equal(t, []string{"a", "b"}, exclude.Keys())
}

// TestPartition_Empty tests an empty batch gives empty sets
func TestPartition_Empty(t *testing.T) {
	include, exclude := Partition(nil, []string{"a"})
	assert.Equal(t, 0, include.Len())
	assert.Equal(t, 0, exclude.Len())
}

// TestPartition_AllowListIgnoresUnknownKeys tests allow entries absent from the batch
func TestPartition_AllowListIgnoresUnknownKeys(t *testing.T) {
	include, exclude := Partition([]domain.ExtractedRecord{recordWith("a")}, []string{"zzz"})
	assert.Equal(t, 0, include.Len())
	assert.Equal(t, []string{"a"}, exclude.Keys())
}

// TestPartition_Monotone tests a richer superset record only grows the exclude set
func TestPartition_Monotone(t *testing.T) {
	allow := []string{"id"}
	batch := []domain.ExtractedRecord{recordWith("id", "title")}
	_, before := Partition(batch, allow)

	batch = append(batch, recordWith("id", "title", "sec 0"))
	_, after := Partition(batch, allow)

	for _, k := range before.Keys() {
		assert.True(t, after.Contains(k), k)
	}
	assert.Greater(t, after.Len(), before.Len())
}
