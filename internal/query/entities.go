package query

import (
	"regexp"
	"strings"
)

var (
	quotedRegex = regexp.MustCompile(`"([^"]{2,})"|'([^']{2,})'|«([^»]{2,})»`)
	// runs of capitalized words, possibly accented
	capitalizedRegex = regexp.MustCompile(`\b[A-ZÁÉÍÓÚÑÜ][a-záéíóúñü]+(?:\s+[A-ZÁÉÍÓÚÑÜ][a-záéíóúñü]+)*\b`)
	// product-code style tokens: at least one letter and one digit
	codeRegex = regexp.MustCompile(`\b(?:[A-Za-z]+[-_]?\d+|\d+[-_]?[A-Za-z]+)[A-Za-z0-9_-]*\b`)
)

// ExtractEntities pulls likely entity mentions out of a raw query:
// quoted spans, capitalized runs and alphanumeric codes, deduplicated in
// order of first appearance.
func ExtractEntities(query string) []string {
	var found []string
	for _, m := range quotedRegex.FindAllStringSubmatch(query, -1) {
		for _, group := range m[1:] {
			if group != "" {
				found = append(found, group)
			}
		}
	}
	found = append(found, capitalizedRegex.FindAllString(query, -1)...)
	found = append(found, codeRegex.FindAllString(query, -1)...)

	seen := make(map[string]struct{}, len(found))
	entities := make([]string, 0, len(found))
	for _, e := range found {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		key := strings.ToLower(e)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		entities = append(entities, e)
	}
	return entities
}
