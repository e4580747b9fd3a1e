// Package storage persists the full case collection under a single key.
package storage

import "github.com/starford/corkboard/internal/models"

// Provider is the durable store for the board's case collection.
type Provider interface {
	// Load returns the stored collection, or (nil, nil) when nothing has
	// been saved yet. Callers treat read errors the same as absent data.
	Load() ([]models.Case, error)
	// Save overwrites the whole collection. Deltas are never written; the
	// adapter gives no ordering guarantee between in-flight saves, so only
	// a complete snapshot is safe.
	Save(cases []models.Case) error
	// Close releases the underlying resources.
	Close() error
}
