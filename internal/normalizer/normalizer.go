// Package normalizer converts raw source records (dataset rows, capture flow
// aggregates) into canonical SecurityEvents.
package normalizer

import (
	"fmt"

	"github.com/sentra-systems/sentra/internal/models"
)

// Source identifiers recognized by the registry.
const (
	SourceDataset = "dataset"
	SourceCapture = "capture"
	SourceLive    = "live"
)

// Record carries one raw input row plus where it came from.
type Record struct {
	Source string
	Fields map[string]string
}

// Normalizer converts raw records into canonical SecurityEvents.
type Normalizer interface {
	Normalize(rec Record) (models.SecurityEvent, error)
	Supports(source string) bool
}

// Registry holds ordered normalizers and finds a match for a given record.
type Registry struct {
	items []Normalizer
}

// NewRegistry constructs a registry with the provided normalizers.
func NewRegistry(items ...Normalizer) *Registry {
	return &Registry{items: items}
}

// Normalize routes the record to the first normalizer that supports its
// source.
func (r *Registry) Normalize(rec Record) (models.SecurityEvent, error) {
	for _, n := range r.items {
		if n.Supports(rec.Source) {
			return n.Normalize(rec)
		}
	}
	return models.SecurityEvent{}, fmt.Errorf("no normalizer registered for source %q", rec.Source)
}

// Default returns a registry covering every built-in source.
func Default() *Registry {
	return NewRegistry(DatasetNormalizer{}, CaptureNormalizer{})
}
