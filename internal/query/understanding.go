package query

import (
	"context"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/kbase/internal/model"
)

// QueryClassifier produces a QueryUnderstanding for a raw query.
type QueryClassifier interface {
	Name() string
	Classify(ctx context.Context, query string) (*model.QueryUnderstanding, error)
}

// short acknowledgements that never warrant an LLM round-trip
var shortQueryTokens = map[string]struct{}{
	"si": {}, "sí": {}, "no": {}, "ok": {}, "okay": {}, "vale": {},
	"yes": {}, "yep": {}, "nope": {}, "gracias": {}, "thanks": {},
}

// Understander chains the LLM classifier with the heuristic fallback.
// Understand never fails: any error on the primary path degrades to the
// fallback result.
type Understander struct {
	primary  QueryClassifier
	fallback QueryClassifier
}

// NewUnderstander builds the standard chain. primary may be nil, in
// which case only the fallback runs.
func NewUnderstander(primary, fallback QueryClassifier) *Understander {
	if fallback == nil {
		fallback = NewHeuristicClassifier()
	}
	return &Understander{primary: primary, fallback: fallback}
}

func (u *Understander) Understand(ctx context.Context, query string) *model.QueryUnderstanding {
	trimmed := strings.TrimSpace(query)
	if u.primary == nil || isShortQuery(trimmed) {
		return u.mustFallback(ctx, trimmed)
	}
	result, err := u.primary.Classify(ctx, trimmed)
	if err != nil {
		logutil.GetLogger(ctx).Info("query classifier fallback",
			zap.String("classifier", u.primary.Name()), zap.Error(err))
		return u.mustFallback(ctx, trimmed)
	}
	return result
}

func (u *Understander) mustFallback(ctx context.Context, query string) *model.QueryUnderstanding {
	result, err := u.fallback.Classify(ctx, query)
	if err != nil {
		// the heuristic classifier cannot fail; keep the contract anyway
		logutil.GetLogger(ctx).Error("fallback classifier failed", zap.Error(err))
		return &model.QueryUnderstanding{
			SearchType: model.SearchTypeSimple,
			Complexity: model.ComplexitySimple,
			Confidence: heuristicConfidence,
		}
	}
	return result
}

func isShortQuery(trimmed string) bool {
	if len([]rune(trimmed)) < 4 {
		return true
	}
	fields := strings.Fields(strings.ToLower(trimmed))
	if len(fields) != 1 {
		return false
	}
	token := strings.Trim(fields[0], ".,;:!?¿¡")
	_, ok := shortQueryTokens[token]
	return ok
}
