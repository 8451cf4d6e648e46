package model

// Search types produced by query understanding.
const (
	SearchTypeSimple      = "simple"
	SearchTypeComparative = "comparative"
	SearchTypeSuperlative = "superlative"
	SearchTypeAnalytical  = "analytical"
	SearchTypeListAll     = "list_all"
)

// Intent tags derived from the analysis booleans.
const (
	IntentComparative = "comparative"
	IntentSuperlative = "superlative"
	IntentAggregation = "aggregation"
	IntentListAll     = "list_all"
)

const (
	ComplexitySimple  = "simple"
	ComplexityComplex = "complex"
)

// QueryUnderstanding is the per-query analysis result. Ephemeral, never
// persisted.
type QueryUnderstanding struct {
	Language            string   `json:"language"`
	Intents             []string `json:"intents"`
	Entities            []string `json:"entities"`
	Modifiers           []string `json:"modifiers"`
	RequiresCalculation bool     `json:"requires_calculation"`
	Complexity          string   `json:"complexity"`
	Confidence          float64  `json:"confidence"`
	SearchType          string   `json:"search_type"`
	SuggestedQueries    []string `json:"suggested_queries"`
}

func (u *QueryUnderstanding) HasIntent(intent string) bool {
	for _, it := range u.Intents {
		if it == intent {
			return true
		}
	}
	return false
}

func (u *QueryUnderstanding) AddIntent(intent string) {
	if !u.HasIntent(intent) {
		u.Intents = append(u.Intents, intent)
	}
}

func (u *QueryUnderstanding) HasModifier(modifier string) bool {
	for _, m := range u.Modifiers {
		if m == modifier {
			return true
		}
	}
	return false
}

// IsListLike reports whether the query asks for an exhaustive listing.
func (u *QueryUnderstanding) IsListLike() bool {
	return u.SearchType == SearchTypeListAll || u.HasIntent(IntentListAll) || u.HasModifier("lista")
}

// IsSuperlative reports whether the query asks for an extreme (cheapest,
// best, largest...).
func (u *QueryUnderstanding) IsSuperlative() bool {
	return u.SearchType == SearchTypeSuperlative || u.HasIntent(IntentSuperlative)
}

func (u *QueryUnderstanding) IsComparative() bool {
	return u.SearchType == SearchTypeComparative || u.HasIntent(IntentComparative)
}

// WeightedQuery is one fan-out unit issued against the vector index.
type WeightedQuery struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
	Tag    string  `json:"tag"`
}

// ScoredChunk pairs a retrieved chunk with its scores during re-ranking.
// The adjusted score is discarded once the final order is fixed.
type ScoredChunk struct {
	ChunkID        string            `json:"chunk_id"`
	DocumentID     string            `json:"document_id"`
	Content        string            `json:"content"`
	BaseSimilarity float64           `json:"base_similarity"`
	AdjustedScore  float64           `json:"-"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// RankedResults is the final product of a search call.
type RankedResults struct {
	Query         string        `json:"query"`
	SearchType    string        `json:"search_type"`
	FanOutQueries int           `json:"fan_out_queries"`
	Results       []ScoredChunk `json:"results"`
}
