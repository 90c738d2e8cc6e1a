package trial

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/trialdex/internal/core/domain"
)

// LineSeparator joins formatted lines.
const LineSeparator = ",\n"

var blankLines = regexp.MustCompile(`\n{2,}`)

// Format renders a flat record as one `"key": value` line per leaf.
//
// A trailing numeric key segment is dropped from the displayed key so list
// elements read as their parent field. String values are quoted; other
// leaves are written bare. Runs of blank lines collapse to one newline and
// semicolons become ampersands.
func Format(flat domain.FlatRecord, sep string) string {
	entries := flat.Entries()
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, formatLine(displayKey(e.Key, sep), e.Value))
	}
	return strings.Join(lines, LineSeparator)
}

func formatLine(key string, v domain.Value) string {
	var line string
	if v.Kind() == domain.KindString {
		line = `"` + key + `": "` + v.Text() + `"`
	} else {
		line = `"` + key + `": ` + v.Text()
	}
	line = blankLines.ReplaceAllString(line, "\n")
	return strings.ReplaceAll(line, ";", "&")
}

func displayKey(key, sep string) string {
	i := strings.LastIndex(key, sep)
	if i <= 0 || sep == "" {
		return key
	}
	if isNumeric(key[i+len(sep):]) {
		return key[:i]
	}
	return key
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
