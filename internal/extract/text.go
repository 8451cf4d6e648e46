package extract

import (
	"context"
	"fmt"
	"unicode/utf8"
)

type textExtractor struct{}

func init() {
	Register("text/plain", func() Extractor { return textExtractor{} }, ".txt")
}

func (textExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	_ = ctx
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: payload is not valid utf-8", ErrExtraction)
	}
	return string(data), nil
}
