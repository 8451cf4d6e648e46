package service

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Chunk content tagging. Tags ride along into the vector index metadata
// so the re-ranker can recognize structured blocks without re-parsing
// content at query time.

var (
	priceRegex  = regexp.MustCompile(`(?:[$€£]\s*\d|\d+(?:[.,]\d+)?\s*(?:€|USD|EUR|CLP|MXN|ARS|COP|soles|pesos|euros|dólares|dolares))`)
	numberRegex = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	listItem    = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+`)
)

// TagChunkContent classifies a chunk's structure:
//   - blockType=price_table_sorted + isPriceTable for sorted price tables
//   - isPriceTable for price tables in arbitrary order
//   - blockType=table / blockType=list for other structured blocks
//
// Prose chunks get no tags.
func TagChunkContent(content string) map[string]string {
	lines := nonEmptyLines(content)
	if len(lines) < 3 {
		return nil
	}

	priceLines := 0
	tableLines := 0
	listLines := 0
	var prices []float64
	for _, line := range lines {
		if priceRegex.MatchString(line) {
			priceLines++
			if v, ok := firstNumber(line); ok {
				prices = append(prices, v)
			}
		}
		if strings.Contains(line, "|") || strings.Contains(line, "\t") {
			tableLines++
		}
		if listItem.MatchString(line) {
			listLines++
		}
	}

	tags := map[string]string{}
	switch {
	case priceLines >= 3:
		tags["isPriceTable"] = "true"
		if isSorted(prices) {
			tags["blockType"] = "price_table_sorted"
		}
	case tableLines >= 3:
		tags["blockType"] = "table"
	case listLines >= 3:
		tags["blockType"] = "list"
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

func nonEmptyLines(content string) []string {
	raw := strings.Split(content, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func firstNumber(line string) (float64, bool) {
	m := numberRegex.FindString(line)
	if m == "" {
		return 0, false
	}
	m = strings.ReplaceAll(m, ",", ".")
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func isSorted(values []float64) bool {
	if len(values) < 3 {
		return false
	}
	asc := sort.SliceIsSorted(values, func(i, j int) bool { return values[i] < values[j] })
	desc := sort.SliceIsSorted(values, func(i, j int) bool { return values[i] > values[j] })
	return asc || desc
}
