// Package codec serializes a single case to the textual snapshot format
// used for export/import, and validates snapshots on the way back in.
package codec

import (
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/corkboard/internal/apperr"
	"github.com/starford/corkboard/internal/models"
)

// Encode renders one case as the canonical pretty-printed snapshot document,
// including all nested cards, links, and tasks.
func Encode(c models.Case) (string, error) {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", fmt.Errorf("codec: encode case %s: %w", c.ID, err)
	}
	return string(b), nil
}

// Decode parses a snapshot and validates its shape. The id, cards, and links
// fields must be present (empty arrays are fine); name, description, and
// tasks default to empty when omitted. Any parse or validation failure is
// reported as apperr.ErrInvalidSnapshot without partial results.
func Decode(text string) (*models.Case, error) {
	var c models.Case
	if err := json.Unmarshal([]byte(text), &c); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidSnapshot, err)
	}

	if err := validation.ValidateStruct(&c,
		validation.Field(&c.ID, validation.Required),
		validation.Field(&c.Cards, validation.NotNil),
		validation.Field(&c.Links, validation.NotNil),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidSnapshot, err)
	}

	if c.Tasks == nil {
		c.Tasks = []models.Task{}
	}
	return &c, nil
}
