package trial

import "github.com/custodia-labs/trialdex/internal/core/domain"

// Partition splits the batch key set against an allow-list.
//
// The key set is taken from the record with the most fields; the first such
// record wins a tie. include holds the keys present in allow, exclude the
// rest, both in key-set order. The result applies to every record of the batch.
func Partition(batch []domain.ExtractedRecord, allow []string) (include, exclude domain.KeySet) {
	richest := -1
	for i, r := range batch {
		if richest < 0 || r.Len() > batch[richest].Len() {
			richest = i
		}
	}
	if richest < 0 {
		return domain.NewKeySet(), domain.NewKeySet()
	}

	allowed := domain.NewKeySet(allow...)
	var in, ex []string
	for _, key := range batch[richest].Names() {
		if allowed.Contains(key) {
			in = append(in, key)
		} else {
			ex = append(ex, key)
		}
	}
	return domain.NewKeySet(in...), domain.NewKeySet(ex...)
}
