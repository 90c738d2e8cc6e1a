package trial

import (
	"strconv"

	"github.com/custodia-labs/trialdex/internal/core/domain"
)

// Flatten walks v and returns every leaf under a composite key.
//
// A child key is parent + sep + member name (or element index); at the root
// the separator is omitted. Empty arrays and objects produce no entries.
// Entry order follows the input.
func Flatten(v domain.Value, prefix, sep string) domain.FlatRecord {
	var out domain.FlatRecord
	flattenInto(&out, v, prefix, sep)
	return out
}

func flattenInto(out *domain.FlatRecord, v domain.Value, prefix, sep string) {
	switch v.Kind() {
	case domain.KindArray:
		for i, item := range v.Items() {
			flattenInto(out, item, childKey(prefix, strconv.Itoa(i), sep), sep)
		}
	case domain.KindObject:
		for _, m := range v.Members() {
			flattenInto(out, m.Value, childKey(prefix, m.Key, sep), sep)
		}
	default:
		out.Put(prefix, v)
	}
}

func childKey(prefix, name, sep string) string {
	if prefix == "" {
		return name
	}
	return prefix + sep + name
}
