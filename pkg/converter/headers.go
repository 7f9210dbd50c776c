package converter

import "strings"

// NormalizeHeader canonicalizes a raw CSV header cell: surrounding
// whitespace goes, one layer of wrapping single or double quotes is removed
// and doubled inner quotes collapse back to single ones. Column references
// in templates are written against the normalized form.
func NormalizeHeader(header string) string {
	h := strings.TrimSpace(header)
	if len(h) > 0 && (h[0] == '"' || h[0] == '\'') {
		h = h[1:]
	}
	if len(h) > 0 && (h[len(h)-1] == '"' || h[len(h)-1] == '\'') {
		h = h[:len(h)-1]
	}
	h = strings.TrimSpace(h)
	h = strings.ReplaceAll(h, `""`, `"`)
	h = strings.ReplaceAll(h, `''`, `'`)
	return h
}

// normalizeHeaders maps a header record to its canonical form and returns
// the normalized slice plus a normalized-to-original lookup. First
// occurrence wins on collisions.
func normalizeHeaders(record []string) ([]string, map[string]string) {
	normalized := make([]string, len(record))
	mapping := make(map[string]string, len(record))
	for i, h := range record {
		n := NormalizeHeader(h)
		normalized[i] = n
		if _, ok := mapping[n]; !ok {
			mapping[n] = h
		}
	}
	return normalized, mapping
}
