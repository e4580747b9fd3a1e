// Package boardservice owns the in-memory case collection and is the single
// source of truth for all board mutations. Every structural mutation enqueues
// a full-collection snapshot for the asynchronous saver and notifies
// registered listeners.
package boardservice

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/corkboard/internal/apperr"
	"github.com/starford/corkboard/internal/codec"
	"github.com/starford/corkboard/internal/models"
	"github.com/starford/corkboard/internal/storage"
)

// duplicateOffset is the canvas-space shift applied to a duplicated card so
// it does not land exactly on top of the original.
const duplicateOffset = 40

// Listener observes committed mutations. kind names the mutation
// ("card.added", "link.deleted", ...), id is the affected entity, and active
// is a copy of the active case after the change (nil when none is active).
type Listener func(kind, id string, active *models.Case)

// CardPatch carries the optional fields of an update; nil fields are left
// untouched.
type CardPatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	ImageURL    *string `json:"imageUrl"`
}

// Service is the document store for the whole board.
type Service struct {
	mu         sync.Mutex
	cases      []models.Case
	activeID   string
	selectedID string

	store     storage.Provider
	logger    *slog.Logger
	now       func() int64
	saver     *saver
	listeners []Listener
}

// NewService creates a document store backed by the given provider.
// debounce controls how long the saver coalesces bursts of snapshots;
// zero writes through immediately.
func NewService(store storage.Provider, logger *slog.Logger, debounce time.Duration) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		logger: logger,
		now:    func() int64 { return time.Now().UnixMilli() },
		saver:  newSaver(store, logger, debounce),
	}
}

// Close flushes any pending snapshot and stops the saver.
func (s *Service) Close() {
	s.saver.close()
}

// AddListener registers a mutation listener. Must be called before the
// service starts receiving mutations.
func (s *Service) AddListener(l Listener) {
	s.listeners = append(s.listeners, l)
}

// Initialize loads the saved collection, or seeds a default case when the
// store is empty or unreadable. It never fails outward: storage trouble
// degrades to an in-memory default.
func (s *Service) Initialize(_ context.Context) {
	saved, err := s.store.Load()

	s.mu.Lock()
	switch {
	case err != nil:
		s.logger.Warn("load failed, starting with in-memory default", slog.String("error", err.Error()))
		s.cases = []models.Case{models.NewDefaultCase()}
		s.activeID = s.cases[0].ID
		s.mu.Unlock()
		s.emit("case.activated", s.cases[0].ID, s.activeClone())
		return
	case len(saved) > 0:
		s.cases = saved
		s.activeID = saved[0].ID
		s.mu.Unlock()
		s.emit("case.activated", saved[0].ID, s.activeClone())
		return
	default:
		s.cases = []models.Case{models.NewDefaultCase()}
		s.activeID = s.cases[0].ID
		active := s.commitLocked()
		s.mu.Unlock()
		s.emit("case.activated", s.activeID, active)
		return
	}
}

// Cases returns a deep copy of the whole collection.
func (s *Service) Cases() []models.Case {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.CloneCases(s.cases)
}

// ActiveCase returns a copy of the active case.
func (s *Service) ActiveCase() (models.Case, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.activeLocked()
	if c == nil {
		return models.Case{}, false
	}
	return c.Clone(), true
}

// ActiveCaseID returns the id of the active case, or empty.
func (s *Service) ActiveCaseID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// SelectedCardID returns the id of the selected card, or empty.
func (s *Service) SelectedCardID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedID
}

// SetActiveCase activates the case with the given id and clears the card
// selection. Unknown ids are rejected so the active reference can never
// dangle.
func (s *Service) SetActiveCase(id string) error {
	s.mu.Lock()
	if s.findCaseLocked(id) == nil {
		s.mu.Unlock()
		return apperr.ErrNotFound
	}
	s.activeID = id
	s.selectedID = ""
	s.mu.Unlock()

	s.emit("case.activated", id, s.activeClone())
	return nil
}

// CreateCase appends a new empty case, derives its id from the collection
// size, and activates it.
func (s *Service) CreateCase(name, description string) models.Case {
	s.mu.Lock()
	now := s.now()
	c := models.Case{
		ID:          models.CaseID(len(s.cases) + 1),
		Name:        name,
		Description: description,
		Cards:       []models.EvidenceCard{},
		Links:       []models.EvidenceLink{},
		Tasks:       []models.Task{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.cases = append(s.cases, c)
	s.activeID = c.ID
	s.selectedID = ""
	active := s.commitLocked()
	s.mu.Unlock()

	s.emit("case.created", c.ID, active)
	return c
}

// AddCard pins a new card of the given type at the given position on the
// active case. Notes start with an empty title; other types get their
// placeholder title.
func (s *Service) AddCard(t models.EvidenceType, pos models.Position) (models.EvidenceCard, error) {
	if !t.Valid() {
		return models.EvidenceCard{}, apperr.ErrInvalidType
	}

	s.mu.Lock()
	c := s.activeLocked()
	if c == nil {
		s.mu.Unlock()
		return models.EvidenceCard{}, apperr.ErrNoActiveCase
	}
	card := models.EvidenceCard{
		ID:        uuid.NewString(),
		Type:      t,
		Title:     t.DefaultTitle(),
		Position:  pos,
		CreatedAt: s.now(),
	}
	c.Cards = append(c.Cards, card)
	c.UpdatedAt = s.now()
	active := s.commitLocked()
	s.mu.Unlock()

	s.emit("card.added", card.ID, active)
	return card, nil
}

// UpdateCard merges the non-nil patch fields into the card.
func (s *Service) UpdateCard(id string, patch CardPatch) error {
	s.mu.Lock()
	c := s.activeLocked()
	if c == nil {
		s.mu.Unlock()
		return apperr.ErrNoActiveCase
	}
	card := c.FindCard(id)
	if card == nil {
		s.mu.Unlock()
		return apperr.ErrNotFound
	}
	if patch.Title != nil {
		card.Title = *patch.Title
	}
	if patch.Description != nil {
		card.Description = *patch.Description
	}
	if patch.ImageURL != nil {
		card.ImageURL = *patch.ImageURL
	}
	c.UpdatedAt = s.now()
	active := s.commitLocked()
	s.mu.Unlock()

	s.emit("card.updated", id, active)
	return nil
}

// DeleteCard removes the card and cascades removal of every link touching
// it. Selection is cleared when the deleted card was selected.
func (s *Service) DeleteCard(id string) error {
	s.mu.Lock()
	c := s.activeLocked()
	if c == nil {
		s.mu.Unlock()
		return apperr.ErrNoActiveCase
	}
	if c.FindCard(id) == nil {
		s.mu.Unlock()
		return apperr.ErrNotFound
	}

	cards := c.Cards[:0]
	for _, card := range c.Cards {
		if card.ID != id {
			cards = append(cards, card)
		}
	}
	c.Cards = cards

	links := c.Links[:0]
	for _, l := range c.Links {
		if !l.Touches(id) {
			links = append(links, l)
		}
	}
	c.Links = links

	if s.selectedID == id {
		s.selectedID = ""
	}
	c.UpdatedAt = s.now()
	active := s.commitLocked()
	s.mu.Unlock()

	s.emit("card.deleted", id, active)
	return nil
}

// DuplicateCard clones the card with a fresh id and creation time, offset
// by a fixed delta. Links are not duplicated.
func (s *Service) DuplicateCard(id string) (models.EvidenceCard, error) {
	s.mu.Lock()
	c := s.activeLocked()
	if c == nil {
		s.mu.Unlock()
		return models.EvidenceCard{}, apperr.ErrNoActiveCase
	}
	src := c.FindCard(id)
	if src == nil {
		s.mu.Unlock()
		return models.EvidenceCard{}, apperr.ErrNotFound
	}

	dup := *src
	dup.ID = uuid.NewString()
	dup.Position.X += duplicateOffset
	dup.Position.Y += duplicateOffset
	dup.CreatedAt = s.now()
	c.Cards = append(c.Cards, dup)
	c.UpdatedAt = s.now()
	active := s.commitLocked()
	s.mu.Unlock()

	s.emit("card.added", dup.ID, active)
	return dup, nil
}

// UpdateCardPosition sets only the card's position. Drag traffic arrives at
// high frequency, so the case's updatedAt is left alone and persistence
// relies on the saver's coalescing.
func (s *Service) UpdateCardPosition(id string, pos models.Position) error {
	s.mu.Lock()
	c := s.activeLocked()
	if c == nil {
		s.mu.Unlock()
		return apperr.ErrNoActiveCase
	}
	card := c.FindCard(id)
	if card == nil {
		s.mu.Unlock()
		return apperr.ErrNotFound
	}
	card.Position = pos
	active := s.commitLocked()
	s.mu.Unlock()

	s.emit("card.moved", id, active)
	return nil
}

// SelectCard marks the card shown in the detail panel. An empty id clears
// the selection. Membership in the active case is the caller's
// responsibility; selection is never persisted.
func (s *Service) SelectCard(id string) {
	s.mu.Lock()
	s.selectedID = id
	s.mu.Unlock()

	s.emit("selection.changed", id, s.activeClone())
}

// AddLink connects two cards with an undirected link. Self-links and
// undirected duplicates are rejected without touching the model.
func (s *Service) AddLink(source, target string) (models.EvidenceLink, error) {
	if source == target {
		return models.EvidenceLink{}, apperr.ErrSelfLink
	}

	s.mu.Lock()
	c := s.activeLocked()
	if c == nil {
		s.mu.Unlock()
		return models.EvidenceLink{}, apperr.ErrNoActiveCase
	}
	if c.FindCard(source) == nil || c.FindCard(target) == nil {
		s.mu.Unlock()
		return models.EvidenceLink{}, apperr.ErrNotFound
	}
	if c.HasLinkBetween(source, target) {
		s.mu.Unlock()
		return models.EvidenceLink{}, apperr.ErrDuplicateLink
	}

	link := models.EvidenceLink{ID: uuid.NewString(), Source: source, Target: target}
	c.Links = append(c.Links, link)
	c.UpdatedAt = s.now()
	active := s.commitLocked()
	s.mu.Unlock()

	s.emit("link.added", link.ID, active)
	return link, nil
}

// DeleteLink removes the link with the given id.
func (s *Service) DeleteLink(id string) error {
	s.mu.Lock()
	c := s.activeLocked()
	if c == nil {
		s.mu.Unlock()
		return apperr.ErrNoActiveCase
	}
	found := false
	links := c.Links[:0]
	for _, l := range c.Links {
		if l.ID == id {
			found = true
			continue
		}
		links = append(links, l)
	}
	if !found {
		s.mu.Unlock()
		return apperr.ErrNotFound
	}
	c.Links = links
	c.UpdatedAt = s.now()
	active := s.commitLocked()
	s.mu.Unlock()

	s.emit("link.deleted", id, active)
	return nil
}

// AddTask appends a checklist item to the active case.
func (s *Service) AddTask(text string) (models.Task, error) {
	s.mu.Lock()
	c := s.activeLocked()
	if c == nil {
		s.mu.Unlock()
		return models.Task{}, apperr.ErrNoActiveCase
	}
	task := models.Task{ID: uuid.NewString(), Text: text}
	c.Tasks = append(c.Tasks, task)
	c.UpdatedAt = s.now()
	active := s.commitLocked()
	s.mu.Unlock()

	s.emit("task.added", task.ID, active)
	return task, nil
}

// ToggleTask flips the completed flag of a task.
func (s *Service) ToggleTask(id string) error {
	s.mu.Lock()
	c := s.activeLocked()
	if c == nil {
		s.mu.Unlock()
		return apperr.ErrNoActiveCase
	}
	found := false
	for i := range c.Tasks {
		if c.Tasks[i].ID == id {
			c.Tasks[i].Completed = !c.Tasks[i].Completed
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return apperr.ErrNotFound
	}
	c.UpdatedAt = s.now()
	active := s.commitLocked()
	s.mu.Unlock()

	s.emit("task.updated", id, active)
	return nil
}

// DeleteTask removes a task from the active case.
func (s *Service) DeleteTask(id string) error {
	s.mu.Lock()
	c := s.activeLocked()
	if c == nil {
		s.mu.Unlock()
		return apperr.ErrNoActiveCase
	}
	found := false
	tasks := c.Tasks[:0]
	for _, task := range c.Tasks {
		if task.ID == id {
			found = true
			continue
		}
		tasks = append(tasks, task)
	}
	if !found {
		s.mu.Unlock()
		return apperr.ErrNotFound
	}
	c.Tasks = tasks
	c.UpdatedAt = s.now()
	active := s.commitLocked()
	s.mu.Unlock()

	s.emit("task.deleted", id, active)
	return nil
}

// ExportCase serializes the active case to the snapshot format.
func (s *Service) ExportCase() (string, error) {
	s.mu.Lock()
	c := s.activeLocked()
	if c == nil {
		s.mu.Unlock()
		return "", apperr.ErrNoActiveCase
	}
	cp := c.Clone()
	s.mu.Unlock()

	return codec.Encode(cp)
}

// ImportCase parses a snapshot, re-mints the case id to avoid collisions,
// appends the case, and activates it. Invalid snapshots are rejected
// without mutating the collection.
func (s *Service) ImportCase(text string) (models.Case, error) {
	imported, err := codec.Decode(text)
	if err != nil {
		return models.Case{}, err
	}

	s.mu.Lock()
	imported.ID = models.CaseID(len(s.cases) + 1)
	imported.UpdatedAt = s.now()
	s.cases = append(s.cases, *imported)
	s.activeID = imported.ID
	s.selectedID = ""
	active := s.commitLocked()
	s.mu.Unlock()

	s.emit("case.imported", imported.ID, active)
	return *imported, nil
}

// activeLocked returns a pointer to the active case. Caller holds mu.
func (s *Service) activeLocked() *models.Case {
	return s.findCaseLocked(s.activeID)
}

func (s *Service) findCaseLocked(id string) *models.Case {
	if id == "" {
		return nil
	}
	for i := range s.cases {
		if s.cases[i].ID == id {
			return &s.cases[i]
		}
	}
	return nil
}

// commitLocked hands the saver a snapshot of the collection and returns the
// active copy for listener payloads. The snapshot is enqueued while mu is
// still held so concurrent mutations cannot reorder their durable writes;
// enqueue never blocks. Caller holds mu.
func (s *Service) commitLocked() (active *models.Case) {
	s.saver.enqueue(models.CloneCases(s.cases))
	if c := s.activeLocked(); c != nil {
		cp := c.Clone()
		active = &cp
	}
	return active
}

// activeClone returns a copy of the active case for listener payloads.
func (s *Service) activeClone() *models.Case {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.activeLocked()
	if c == nil {
		return nil
	}
	cp := c.Clone()
	return &cp
}

func (s *Service) emit(kind, id string, active *models.Case) {
	for _, l := range s.listeners {
		l(kind, id, active)
	}
}
