package codec

import (
	"errors"
	"strings"
	"testing"

	"github.com/starford/corkboard/internal/apperr"
	"github.com/starford/corkboard/internal/models"
)

func sampleCase() models.Case {
	return models.Case{
		ID:          "IA-0003",
		Name:        "IA-0003",
		Description: "тестовое дело",
		Cards: []models.EvidenceCard{
			{
				ID:        "c1",
				Type:      models.TypePhoto,
				Title:     "Фото улики",
				ImageURL:  "/attachments/scene.jpg",
				Position:  models.Position{X: 12.5, Y: -3},
				CreatedAt: 1700000000000,
			},
		},
		Links: []models.EvidenceLink{
			{ID: "l1", Source: "c1", Target: "c2", Label: "рядом"},
		},
		Tasks:     []models.Task{{ID: "t1", Text: "проверить", Completed: true}},
		CreatedAt: 1700000000000,
		UpdatedAt: 1700000001000,
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	want := sampleCase()
	text, err := Encode(want)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := Decode(text)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.ID != want.ID || got.Description != want.Description {
		t.Errorf("case = %+v", got)
	}
	if len(got.Cards) != 1 || got.Cards[0] != want.Cards[0] {
		t.Errorf("cards = %+v", got.Cards)
	}
	if len(got.Links) != 1 || got.Links[0] != want.Links[0] {
		t.Errorf("links = %+v", got.Links)
	}
	if len(got.Tasks) != 1 || got.Tasks[0] != want.Tasks[0] {
		t.Errorf("tasks = %+v", got.Tasks)
	}
}

func TestEncodeIsPrettyPrintedWireFormat(t *testing.T) {
	text, err := Encode(sampleCase())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "\n  ") {
		t.Error("snapshot should be pretty-printed")
	}
	for _, field := range []string{`"id"`, `"cards"`, `"links"`, `"tasks"`, `"createdAt"`, `"updatedAt"`, `"imageUrl"`, `"position"`} {
		if !strings.Contains(text, field) {
			t.Errorf("snapshot missing field %s", field)
		}
	}
}

func TestDecodeRejectsMissingRequiredFields(t *testing.T) {
	for name, text := range map[string]string{
		"garbage":       "{{{",
		"missing id":    `{"cards":[],"links":[]}`,
		"missing cards": `{"id":"IA-0001","links":[]}`,
		"missing links": `{"id":"IA-0001","cards":[]}`,
	} {
		if _, err := Decode(text); !errors.Is(err, apperr.ErrInvalidSnapshot) {
			t.Errorf("%s: err = %v, want ErrInvalidSnapshot", name, err)
		}
	}
}

func TestDecodeToleratesOmittedOptionals(t *testing.T) {
	got, err := Decode(`{"id":"IA-0002","cards":[],"links":[]}`)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Name != "" || got.Description != "" {
		t.Errorf("optionals should default to empty: %+v", got)
	}
	if got.Tasks == nil {
		t.Error("tasks should default to an empty slice")
	}
}

func TestDecodeAcceptsEmptyCollections(t *testing.T) {
	// Present-but-empty cards/links are valid; only absence is rejected.
	if _, err := Decode(`{"id":"x","cards":[],"links":[],"tasks":[]}`); err != nil {
		t.Errorf("empty collections rejected: %v", err)
	}
}
