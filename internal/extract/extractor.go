package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

var (
	// ErrUnsupportedFormat means no extractor is registered for the
	// content type; document-fatal.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrExtraction means the registered extractor could not produce
	// text from the payload; document-fatal.
	ErrExtraction = errors.New("text extraction failed")
)

// Extractor turns raw document bytes into plain text. Format-specific
// parsing (pdf, office, csv...) plugs in through Register; the core
// pipeline only ever sees plain text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

type Factory func() Extractor

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
	extByType  = map[string]string{}
)

// Register binds a content type (and optional filename extensions) to an
// extractor factory.
func Register(contentType string, factory Factory, exts ...string) {
	key := strings.ToLower(strings.TrimSpace(contentType))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	for _, ext := range exts {
		extByType[strings.ToLower(ext)] = key
	}
	registryMu.Unlock()
}

// Get resolves an extractor from content type, falling back to the
// filename extension.
func Get(contentType, filename string) (Extractor, error) {
	key := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(key, ";"); idx >= 0 {
		key = strings.TrimSpace(key[:idx])
	}
	registryMu.RLock()
	defer registryMu.RUnlock()
	if factory, ok := registry[key]; ok {
		return factory(), nil
	}
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" {
		if mapped, ok := extByType[ext]; ok {
			if factory, ok := registry[mapped]; ok {
				return factory(), nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupportedFormat, contentType, filename)
}
