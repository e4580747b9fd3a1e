package boardservice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/starford/corkboard/internal/apperr"
	"github.com/starford/corkboard/internal/models"
)

// memStore is an in-memory storage.Provider for exercising the service
// without a database.
type memStore struct {
	mu       sync.Mutex
	cases    []models.Case
	saves    int
	failLoad bool
	failSave bool
}

func (m *memStore) Load() ([]models.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLoad {
		return nil, errors.New("load failure")
	}
	return models.CloneCases(m.cases), nil
}

func (m *memStore) Save(cases []models.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errors.New("save failure")
	}
	m.cases = models.CloneCases(cases)
	m.saves++
	return nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) saved() []models.Case {
	m.mu.Lock()
	defer m.mu.Unlock()
	return models.CloneCases(m.cases)
}

func (m *memStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func testService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	store := &memStore{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(store, logger, 0)
	t.Cleanup(svc.Close)
	svc.Initialize(context.Background())
	return svc, store
}

// waitSaves polls until the store has seen at least n saves.
func waitSaves(t *testing.T, store *memStore, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if store.saveCount() >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("store saw %d saves, want >= %d", store.saveCount(), n)
}

func TestInitializeSeedsDefaultCase(t *testing.T) {
	svc, store := testService(t)

	cases := svc.Cases()
	if len(cases) != 1 {
		t.Fatalf("got %d cases, want 1", len(cases))
	}
	c := cases[0]
	if c.ID != "IA-0001" {
		t.Errorf("id = %q, want IA-0001", c.ID)
	}
	if len(c.Tasks) != 3 {
		t.Errorf("seeded tasks = %d, want 3", len(c.Tasks))
	}
	if svc.ActiveCaseID() != "IA-0001" {
		t.Errorf("active = %q", svc.ActiveCaseID())
	}

	// The seeded default is persisted.
	waitSaves(t, store, 1)
	if got := store.saved(); len(got) != 1 || got[0].ID != "IA-0001" {
		t.Errorf("persisted = %+v", got)
	}
}

func TestInitializeLoadsSavedCases(t *testing.T) {
	store := &memStore{cases: []models.Case{
		{ID: "IA-0007", Name: "old", Cards: []models.EvidenceCard{}, Links: []models.EvidenceLink{}},
		{ID: "IA-0008", Cards: []models.EvidenceCard{}, Links: []models.EvidenceLink{}},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(store, logger, 0)
	t.Cleanup(svc.Close)
	svc.Initialize(context.Background())

	if len(svc.Cases()) != 2 {
		t.Fatalf("got %d cases, want 2", len(svc.Cases()))
	}
	if svc.ActiveCaseID() != "IA-0007" {
		t.Errorf("active = %q, want first saved case", svc.ActiveCaseID())
	}
}

func TestInitializeDegradesOnLoadError(t *testing.T) {
	store := &memStore{failLoad: true}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(store, logger, 0)
	t.Cleanup(svc.Close)
	svc.Initialize(context.Background())

	if len(svc.Cases()) != 1 || svc.ActiveCaseID() != "IA-0001" {
		t.Errorf("expected in-memory default after load error")
	}
}

func TestCreateCaseDerivesSequentialID(t *testing.T) {
	svc, _ := testService(t)

	c := svc.CreateCase("second", "desc")
	if c.ID != "IA-0002" {
		t.Errorf("id = %q, want IA-0002", c.ID)
	}
	if svc.ActiveCaseID() != c.ID {
		t.Errorf("new case should be active")
	}
	if c.Name != "second" || c.Description != "desc" {
		t.Errorf("case = %+v", c)
	}
}

func TestAddCardDefaults(t *testing.T) {
	svc, _ := testService(t)

	person, err := svc.AddCard(models.TypePerson, models.Position{X: 10, Y: 10})
	if err != nil {
		t.Fatalf("AddCard: %v", err)
	}
	if person.Title != "Незнакомец" {
		t.Errorf("person title = %q", person.Title)
	}
	if person.Description != "" {
		t.Errorf("description should start empty")
	}
	if person.Position.X != 10 || person.Position.Y != 10 {
		t.Errorf("position = %+v", person.Position)
	}

	note, err := svc.AddCard(models.TypeNote, models.Position{})
	if err != nil {
		t.Fatalf("AddCard: %v", err)
	}
	if note.Title != "" {
		t.Errorf("note title = %q, want empty", note.Title)
	}

	if _, err := svc.AddCard("ghost", models.Position{}); !errors.Is(err, apperr.ErrInvalidType) {
		t.Errorf("unknown type err = %v", err)
	}
}

func TestAddLinkRejections(t *testing.T) {
	svc, _ := testService(t)
	a, _ := svc.AddCard(models.TypePerson, models.Position{})
	b, _ := svc.AddCard(models.TypeLocation, models.Position{})

	if _, err := svc.AddLink(a.ID, a.ID); !errors.Is(err, apperr.ErrSelfLink) {
		t.Errorf("self link err = %v", err)
	}

	if _, err := svc.AddLink(a.ID, b.ID); err != nil {
		t.Fatalf("AddLink: %v", err)
	}
	// The reverse direction is the same undirected relation.
	if _, err := svc.AddLink(b.ID, a.ID); !errors.Is(err, apperr.ErrDuplicateLink) {
		t.Errorf("reverse duplicate err = %v", err)
	}

	active, _ := svc.ActiveCase()
	if len(active.Links) != 1 {
		t.Errorf("links = %d, want exactly 1", len(active.Links))
	}

	if _, err := svc.AddLink(a.ID, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing endpoint err = %v", err)
	}
}

func TestDeleteCardCascadesLinks(t *testing.T) {
	svc, _ := testService(t)
	a, _ := svc.AddCard(models.TypePerson, models.Position{})
	b, _ := svc.AddCard(models.TypeLocation, models.Position{})
	c, _ := svc.AddCard(models.TypeItem, models.Position{})
	svc.AddLink(a.ID, b.ID)
	svc.AddLink(b.ID, c.ID)
	svc.AddLink(a.ID, c.ID)

	svc.SelectCard(b.ID)
	if err := svc.DeleteCard(b.ID); err != nil {
		t.Fatalf("DeleteCard: %v", err)
	}

	active, _ := svc.ActiveCase()
	if len(active.Cards) != 2 {
		t.Errorf("cards = %d, want 2", len(active.Cards))
	}
	for _, l := range active.Links {
		if l.Touches(b.ID) {
			t.Errorf("dangling link %s -> %s", l.Source, l.Target)
		}
		if active.FindCard(l.Source) == nil || active.FindCard(l.Target) == nil {
			t.Errorf("link %s references missing card", l.ID)
		}
	}
	if len(active.Links) != 1 {
		t.Errorf("links = %d, want 1 surviving", len(active.Links))
	}
	if svc.SelectedCardID() != "" {
		t.Errorf("selection should clear when the selected card is deleted")
	}
}

func TestDuplicateCardOffsetsPosition(t *testing.T) {
	svc, _ := testService(t)
	a, _ := svc.AddCard(models.TypePhoto, models.Position{X: 100, Y: 50})
	b, _ := svc.AddCard(models.TypePerson, models.Position{})
	svc.AddLink(a.ID, b.ID)

	patch := "who is this"
	svc.UpdateCard(a.ID, CardPatch{Description: &patch})

	dup, err := svc.DuplicateCard(a.ID)
	if err != nil {
		t.Fatalf("DuplicateCard: %v", err)
	}
	if dup.ID == a.ID {
		t.Error("duplicate kept the original id")
	}
	if dup.Position.X != 140 || dup.Position.Y != 90 {
		t.Errorf("position = %+v, want (140,90)", dup.Position)
	}
	if dup.Description != patch {
		t.Errorf("description not copied: %q", dup.Description)
	}

	// Links never follow the duplicate.
	active, _ := svc.ActiveCase()
	for _, l := range active.Links {
		if l.Touches(dup.ID) {
			t.Errorf("duplicate inherited link %s", l.ID)
		}
	}
}

func TestUpdateCardPatch(t *testing.T) {
	svc, _ := testService(t)
	card, _ := svc.AddCard(models.TypeDocument, models.Position{})

	title := "Контракт"
	img := "/attachments/contract.png"
	if err := svc.UpdateCard(card.ID, CardPatch{Title: &title, ImageURL: &img}); err != nil {
		t.Fatalf("UpdateCard: %v", err)
	}

	active, _ := svc.ActiveCase()
	got := active.FindCard(card.ID)
	if got.Title != title || got.ImageURL != img {
		t.Errorf("card = %+v", got)
	}
	if got.Description != "" {
		t.Errorf("untouched field changed: %q", got.Description)
	}

	if err := svc.UpdateCard("missing", CardPatch{Title: &title}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing card err = %v", err)
	}
}

func TestUpdatedAtAdvancesOnStructuralMutations(t *testing.T) {
	svc, _ := testService(t)
	var tick int64 = 1000
	svc.now = func() int64 { tick++; return tick }

	card, _ := svc.AddCard(models.TypeItem, models.Position{})
	active, _ := svc.ActiveCase()
	after := active.UpdatedAt

	// Position-only moves do not advance updatedAt.
	svc.UpdateCardPosition(card.ID, models.Position{X: 5, Y: 5})
	active, _ = svc.ActiveCase()
	if active.UpdatedAt != after {
		t.Errorf("drag advanced updatedAt: %d -> %d", after, active.UpdatedAt)
	}
	if got := active.FindCard(card.ID); got.Position.X != 5 {
		t.Errorf("position not applied: %+v", got.Position)
	}

	// A structural mutation does.
	svc.AddTask("check alibi")
	active, _ = svc.ActiveCase()
	if active.UpdatedAt <= after {
		t.Errorf("updatedAt did not advance: %d <= %d", active.UpdatedAt, after)
	}
}

func TestTaskLifecycle(t *testing.T) {
	svc, _ := testService(t)
	task, err := svc.AddTask("опросить свидетелей")
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if task.Completed {
		t.Error("new task should start incomplete")
	}

	if err := svc.ToggleTask(task.ID); err != nil {
		t.Fatalf("ToggleTask: %v", err)
	}
	active, _ := svc.ActiveCase()
	for _, got := range active.Tasks {
		if got.ID == task.ID && !got.Completed {
			t.Error("toggle did not complete the task")
		}
	}

	if err := svc.DeleteTask(task.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	active, _ = svc.ActiveCase()
	for _, got := range active.Tasks {
		if got.ID == task.ID {
			t.Error("task survived deletion")
		}
	}

	if err := svc.ToggleTask("missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing task err = %v", err)
	}
}

func TestSetActiveCaseValidatesAndClearsSelection(t *testing.T) {
	svc, _ := testService(t)
	card, _ := svc.AddCard(models.TypePerson, models.Position{})
	svc.SelectCard(card.ID)

	if err := svc.SetActiveCase("IA-9999"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown case err = %v", err)
	}
	if svc.SelectedCardID() != card.ID {
		t.Error("failed activation must not clear selection")
	}

	second := svc.CreateCase("b", "")
	if err := svc.SetActiveCase("IA-0001"); err != nil {
		t.Fatalf("SetActiveCase: %v", err)
	}
	_ = second
	if svc.SelectedCardID() != "" {
		t.Error("switching cases must clear selection")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	svc, _ := testService(t)
	a, _ := svc.AddCard(models.TypePerson, models.Position{X: 1, Y: 2})
	b, _ := svc.AddCard(models.TypeNote, models.Position{X: 3, Y: 4})
	svc.AddLink(a.ID, b.ID)
	svc.AddTask("сравнить показания")

	text, err := svc.ExportCase()
	if err != nil {
		t.Fatalf("ExportCase: %v", err)
	}

	imported, err := svc.ImportCase(text)
	if err != nil {
		t.Fatalf("ImportCase: %v", err)
	}
	if imported.ID != "IA-0002" {
		t.Errorf("imported id = %q, want fresh IA-0002", imported.ID)
	}
	if svc.ActiveCaseID() != imported.ID {
		t.Error("imported case should become active")
	}
	if len(imported.Cards) != 2 || len(imported.Links) != 1 {
		t.Errorf("imported content mismatch: %d cards, %d links", len(imported.Cards), len(imported.Links))
	}
	// Content survives verbatim, identifiers included.
	if imported.Cards[0].ID != a.ID || imported.Cards[0].Position.X != 1 {
		t.Errorf("card content mismatch: %+v", imported.Cards[0])
	}
}

func TestImportRejectsInvalidSnapshot(t *testing.T) {
	svc, _ := testService(t)
	before := len(svc.Cases())

	for _, text := range []string{
		"not json at all",
		`{"name":"x","cards":[],"links":[]}`, // missing id
		`{"id":"IA-0009","links":[]}`,        // missing cards
		`{"id":"IA-0009","cards":[]}`,        // missing links
	} {
		if _, err := svc.ImportCase(text); !errors.Is(err, apperr.ErrInvalidSnapshot) {
			t.Errorf("ImportCase(%q) err = %v", text, err)
		}
	}

	if len(svc.Cases()) != before {
		t.Error("rejected import mutated the collection")
	}
	if svc.ActiveCaseID() != "IA-0001" {
		t.Error("rejected import changed the active case")
	}
}

func TestImportToleratesMissingTasksAndName(t *testing.T) {
	svc, _ := testService(t)
	c, err := svc.ImportCase(`{"id":"X","description":"d","cards":[],"links":[]}`)
	if err != nil {
		t.Fatalf("ImportCase: %v", err)
	}
	if c.Tasks == nil || len(c.Tasks) != 0 {
		t.Errorf("tasks should default to empty, got %v", c.Tasks)
	}
}

func TestMutationsPersistFullCollection(t *testing.T) {
	svc, store := testService(t)
	waitSaves(t, store, 1)
	base := store.saveCount()

	svc.CreateCase("second", "")
	svc.AddCard(models.TypePerson, models.Position{X: 1, Y: 1})
	waitSaves(t, store, base+2)

	saved := store.saved()
	if len(saved) != 2 {
		t.Fatalf("persisted %d cases, want the complete collection of 2", len(saved))
	}
	if len(saved[1].Cards) != 1 {
		t.Errorf("latest mutation missing from persisted state: %+v", saved[1])
	}
}

func TestSaveFailureIsSwallowed(t *testing.T) {
	store := &memStore{failSave: true}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(store, logger, 0)
	t.Cleanup(svc.Close)
	svc.Initialize(context.Background())

	// Mutations still apply in memory even though every save fails.
	if _, err := svc.AddCard(models.TypeItem, models.Position{}); err != nil {
		t.Fatalf("AddCard: %v", err)
	}
	active, _ := svc.ActiveCase()
	if len(active.Cards) != 1 {
		t.Error("mutation lost after save failure")
	}
}

func TestSaverCoalescesDragBursts(t *testing.T) {
	store := &memStore{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(store, logger, 40*time.Millisecond)
	t.Cleanup(svc.Close)
	svc.Initialize(context.Background())

	card, _ := svc.AddCard(models.TypePerson, models.Position{})
	for i := 0; i < 50; i++ {
		svc.UpdateCardPosition(card.ID, models.Position{X: float64(i), Y: 0})
	}

	// After the debounce window the final position is on disk, without one
	// write per drag event.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		saved := store.saved()
		if len(saved) == 1 && len(saved[0].Cards) == 1 && saved[0].Cards[0].Position.X == 49 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	saved := store.saved()
	if len(saved) != 1 || saved[0].Cards[0].Position.X != 49 {
		t.Fatalf("final drag position not persisted: %+v", saved)
	}
	if n := store.saveCount(); n >= 50 {
		t.Errorf("saver wrote %d times for 51 mutations; expected coalescing", n)
	}
}

func TestListenersSeeActiveCase(t *testing.T) {
	store := &memStore{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(store, logger, 0)
	t.Cleanup(svc.Close)

	var mu sync.Mutex
	var kinds []string
	svc.AddListener(func(kind, id string, active *models.Case) {
		mu.Lock()
		defer mu.Unlock()
		kinds = append(kinds, kind)
		if active == nil {
			t.Errorf("listener for %s got nil active case", kind)
		}
	})
	svc.Initialize(context.Background())
	svc.AddCard(models.TypeNote, models.Position{})

	mu.Lock()
	defer mu.Unlock()
	if len(kinds) != 2 || kinds[0] != "case.activated" || kinds[1] != "card.added" {
		t.Errorf("kinds = %v", kinds)
	}
}

func TestConcurrentMutationsPersistFinalState(t *testing.T) {
	store := &memStore{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(store, logger, 0)
	svc.Initialize(context.Background())

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				if _, err := svc.AddTask(fmt.Sprintf("версия %d-%d", g, i)); err != nil {
					t.Errorf("AddTask: %v", err)
				}
			}
		}(g)
	}
	wg.Wait()
	svc.Close() // flushes the saver

	// Snapshots are enqueued under the service lock, so the last durable
	// write must match the final in-memory state.
	active, ok := svc.ActiveCase()
	if !ok {
		t.Fatal("no active case")
	}
	saved := store.saved()
	if len(saved) != 1 {
		t.Fatalf("saved %d cases, want 1", len(saved))
	}
	if got, want := len(saved[0].Tasks), len(active.Tasks); got != want {
		t.Errorf("persisted %d tasks, in-memory %d", got, want)
	}
}
