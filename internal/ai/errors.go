package ai

import "errors"

var (
	// ErrUnavailable means the provider is not configured (no api key).
	ErrUnavailable = errors.New("ai provider unavailable")
	// ErrRateLimited maps provider 429 responses; callers retry via
	// queue redelivery instead of failing the document.
	ErrRateLimited = errors.New("ai provider rate limited")
	// ErrService covers any other provider-side failure.
	ErrService = errors.New("ai provider error")
)

func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
