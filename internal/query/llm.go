package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xxxsen/kbase/internal/ai"
	"github.com/xxxsen/kbase/internal/model"
)

const analysisPrompt = `You are a query analyzer for a document retrieval system.
Analyze the user query and respond with ONLY a JSON object, no prose, with these fields:
{
  "requiresComparison": bool,
  "requiresRanking": bool,
  "requiresCalculation": bool,
  "searchType": "simple" | "comparative" | "superlative" | "analytical" | "list_all",
  "entities": [string],
  "keyTerms": [string],
  "complexity": "simple" | "complex",
  "confidence": number between 0 and 1,
  "suggestedSearchQueries": [string]
}
The query may be in any language; keep entities and key terms in the query language.`

type llmAnalysis struct {
	RequiresComparison     bool     `json:"requiresComparison"`
	RequiresRanking        bool     `json:"requiresRanking"`
	RequiresCalculation    bool     `json:"requiresCalculation"`
	SearchType             string   `json:"searchType"`
	Entities               []string `json:"entities"`
	KeyTerms               []string `json:"keyTerms"`
	Complexity             string   `json:"complexity"`
	Confidence             float64  `json:"confidence"`
	SuggestedSearchQueries []string `json:"suggestedSearchQueries"`
}

// LLMClassifier asks a chat model to analyze the query. Any transport or
// parse failure is returned to the caller, which is expected to fall
// back to the heuristic path.
type LLMClassifier struct {
	chat ai.ChatClient
}

func NewLLMClassifier(chat ai.ChatClient) *LLMClassifier {
	return &LLMClassifier{chat: chat}
}

func (c *LLMClassifier) Name() string {
	return "llm"
}

func (c *LLMClassifier) Classify(ctx context.Context, query string) (*model.QueryUnderstanding, error) {
	messages := []ai.ChatMessage{
		{Role: "system", Content: analysisPrompt},
		{Role: "user", Content: query},
	}
	raw, err := c.chat.Complete(ctx, messages, 0)
	if err != nil {
		return nil, err
	}
	payload, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}
	var analysis llmAnalysis
	if err := json.Unmarshal([]byte(payload), &analysis); err != nil {
		return nil, fmt.Errorf("parse analysis: %w", err)
	}
	return c.toUnderstanding(query, &analysis), nil
}

func (c *LLMClassifier) toUnderstanding(query string, analysis *llmAnalysis) *model.QueryUnderstanding {
	u := &model.QueryUnderstanding{
		Language:            DetectLanguage(query),
		Entities:            analysis.Entities,
		Modifiers:           analysis.KeyTerms,
		RequiresCalculation: analysis.RequiresCalculation,
		Complexity:          normalizeComplexity(analysis.Complexity),
		Confidence:          clampConfidence(analysis.Confidence),
		SearchType:          normalizeSearchType(analysis.SearchType),
		SuggestedQueries:    analysis.SuggestedSearchQueries,
	}
	if analysis.RequiresComparison {
		u.AddIntent(model.IntentComparative)
	}
	if analysis.RequiresRanking {
		u.AddIntent(model.IntentSuperlative)
	}
	if analysis.RequiresCalculation {
		u.AddIntent(model.IntentAggregation)
	}
	if u.SearchType == model.SearchTypeListAll {
		u.AddIntent(model.IntentListAll)
	}
	return u
}

func normalizeSearchType(st string) string {
	switch strings.ToLower(strings.TrimSpace(st)) {
	case model.SearchTypeComparative:
		return model.SearchTypeComparative
	case model.SearchTypeSuperlative:
		return model.SearchTypeSuperlative
	case model.SearchTypeAnalytical:
		return model.SearchTypeAnalytical
	case model.SearchTypeListAll:
		return model.SearchTypeListAll
	default:
		return model.SearchTypeSimple
	}
}

func normalizeComplexity(c string) string {
	if strings.EqualFold(strings.TrimSpace(c), model.ComplexityComplex) {
		return model.ComplexityComplex
	}
	return model.ComplexitySimple
}

func clampConfidence(c float64) float64 {
	if c <= 0 {
		return 0.7
	}
	if c > 1 {
		return 1
	}
	return c
}

// extractJSON locates the first JSON object or array embedded in an LLM
// reply and returns the balanced substring. Models wrap their answers in
// prose and code fences often enough that this cannot assume clean
// output.
func extractJSON(raw string) (string, error) {
	start := -1
	var opener, closer rune
	for i, r := range raw {
		if r == '{' || r == '[' {
			start = i
			opener = r
			closer = '}'
			if r == '[' {
				closer = ']'
			}
			break
		}
	}
	if start < 0 {
		return "", fmt.Errorf("no json payload in reply")
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		ch := rune(raw[i])
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == opener:
			depth++
		case ch == closer:
			depth--
			if depth == 0 {
				return raw[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced json payload in reply")
}
