package query

import "strings"

// Stopword sets for the languages the service commonly sees. Detection
// is a plain frequency count; ties resolve in declaration order.
var stopwordSets = []struct {
	lang  string
	words map[string]struct{}
}{
	{lang: "es", words: wordSet("el", "la", "los", "las", "un", "una", "de", "del", "que", "cual", "cuál", "es", "en", "y", "o", "más", "mas", "para", "por", "con", "como", "cómo", "qué", "se", "su", "al")},
	{lang: "en", words: wordSet("the", "a", "an", "of", "that", "which", "is", "in", "and", "or", "more", "most", "for", "by", "with", "how", "what", "it", "its", "to", "at")},
	{lang: "fr", words: wordSet("le", "la", "les", "un", "une", "de", "du", "des", "que", "quel", "quelle", "est", "en", "et", "ou", "plus", "pour", "par", "avec", "comment", "quoi", "au", "aux")},
}

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// DetectLanguage scores each stopword set against the query tokens and
// returns the language with the most hits, defaulting to "en".
func DetectLanguage(query string) string {
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return "en"
	}
	best := "en"
	bestScore := 0
	for _, set := range stopwordSets {
		score := 0
		for _, tok := range tokens {
			tok = strings.Trim(tok, ".,;:!?¿¡\"'()")
			if _, ok := set.words[tok]; ok {
				score++
			}
		}
		if score > bestScore {
			best = set.lang
			bestScore = score
		}
	}
	return best
}
