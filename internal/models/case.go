// Package models defines the domain types for Corkboard.
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EvidenceType enumerates the kinds of cards that can be pinned to a board.
type EvidenceType string

// Card types.
const (
	TypePerson   EvidenceType = "person"
	TypeLocation EvidenceType = "location"
	TypeDocument EvidenceType = "document"
	TypeItem     EvidenceType = "item"
	TypeNote     EvidenceType = "note"
	TypePhoto    EvidenceType = "photo"
)

// Types lists every valid evidence type.
var Types = []EvidenceType{TypePerson, TypeLocation, TypeDocument, TypeItem, TypeNote, TypePhoto}

// Valid reports whether t is a known evidence type.
func (t EvidenceType) Valid() bool {
	for _, k := range Types {
		if t == k {
			return true
		}
	}
	return false
}

// DefaultTitle returns the placeholder title used when a card of this type
// is first pinned. Notes start untitled.
func (t EvidenceType) DefaultTitle() string {
	switch t {
	case TypePerson:
		return "Незнакомец"
	case TypeLocation:
		return "Локация"
	case TypeDocument:
		return "Документ"
	case TypeItem:
		return "Вещдок"
	case TypePhoto:
		return "Фото улики"
	default:
		return ""
	}
}

// Position is a point in canvas space.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// EvidenceCard is a single item placed on the board.
type EvidenceCard struct {
	ID          string       `json:"id"`
	Type        EvidenceType `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	ImageURL    string       `json:"imageUrl,omitempty"`
	Position    Position     `json:"position"`
	CreatedAt   int64        `json:"createdAt"`
}

// EvidenceLink is an undirected connection between two cards. A link between
// A and B is the same relation as one between B and A.
type EvidenceLink struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
}

// Connects reports whether the link joins the unordered pair (a, b).
func (l EvidenceLink) Connects(a, b string) bool {
	return (l.Source == a && l.Target == b) || (l.Source == b && l.Target == a)
}

// Touches reports whether the link references the card id at either end.
func (l EvidenceLink) Touches(id string) bool {
	return l.Source == id || l.Target == id
}

// Task is a checklist item attached to a case.
type Task struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Case is a top-level investigation document: the unit of persistence
// and export. Timestamps are epoch milliseconds.
type Case struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Cards       []EvidenceCard `json:"cards"`
	Links       []EvidenceLink `json:"links"`
	Tasks       []Task         `json:"tasks"`
	CreatedAt   int64          `json:"createdAt"`
	UpdatedAt   int64          `json:"updatedAt"`
}

// FindCard returns a pointer to the card with the given id, or nil.
// The pointer is into c.Cards and is invalidated by append.
func (c *Case) FindCard(id string) *EvidenceCard {
	for i := range c.Cards {
		if c.Cards[i].ID == id {
			return &c.Cards[i]
		}
	}
	return nil
}

// HasLinkBetween reports whether any link already joins the unordered
// pair (a, b).
func (c *Case) HasLinkBetween(a, b string) bool {
	for _, l := range c.Links {
		if l.Connects(a, b) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the case.
func (c Case) Clone() Case {
	out := c
	out.Cards = append([]EvidenceCard(nil), c.Cards...)
	out.Links = append([]EvidenceLink(nil), c.Links...)
	out.Tasks = append([]Task(nil), c.Tasks...)
	return out
}

// CloneCases deep-copies a case collection. Used to hand a stable snapshot
// to the asynchronous saver.
func CloneCases(cases []Case) []Case {
	out := make([]Case, len(cases))
	for i, c := range cases {
		out[i] = c.Clone()
	}
	return out
}

// CaseID derives the sequential human-readable case identifier, e.g.
// CaseID(2) == "IA-0002".
func CaseID(n int) string {
	return fmt.Sprintf("IA-%04d", n)
}

// NewDefaultCase builds the case seeded on first run.
func NewDefaultCase() Case {
	now := time.Now().UnixMilli()
	return Case{
		ID:          CaseID(1),
		Name:        CaseID(1),
		Description: "Расследование внутренних дел - Дело №0001",
		Cards:       []EvidenceCard{},
		Links:       []EvidenceLink{},
		Tasks: []Task{
			{ID: uuid.NewString(), Text: "Собрать первичные улики"},
			{ID: uuid.NewString(), Text: "Определить ключевых лиц"},
			{ID: uuid.NewString(), Text: "Составить карту локаций"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
