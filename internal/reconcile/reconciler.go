// Package reconcile translates the document model's card/link collections
// into the render-ready node/edge collections consumed by the canvas.
// Card removals are staged: a deleted card stays in the render set, flagged,
// for a fixed delay so the renderer can play its exit animation. The model
// remains the sole source of truth; the render set is eventually consistent
// with it.
package reconcile

import (
	"sync"
	"time"

	"github.com/starford/corkboard/internal/models"
)

// DefaultRemovalDelay is how long a removed card lingers in the render set.
// It must exceed the renderer's exit-animation duration.
const DefaultRemovalDelay = 400 * time.Millisecond

// NodeState tags a render node's lifecycle stage.
type NodeState int

// Node lifecycle: Entering -> Settled -> Removing -> gone.
const (
	StateEntering NodeState = iota
	StateSettled
	StateRemoving
)

func (s NodeState) String() string {
	switch s {
	case StateEntering:
		return "entering"
	case StateSettled:
		return "settled"
	case StateRemoving:
		return "removing"
	default:
		return "unknown"
	}
}

// Node is one renderable card.
type Node struct {
	ID       string
	Position models.Position
	Card     models.EvidenceCard
	State    NodeState
}

// Removing reports whether the node is in its removal window.
func (n Node) Removing() bool { return n.State == StateRemoving }

// Edge is one renderable connector.
type Edge struct {
	ID     string
	Source string
	Target string
	Label  string
}

// Reconciler owns the render node/edge collections for the active case.
type Reconciler struct {
	mu        sync.Mutex
	delay     time.Duration
	nodes     []Node
	edges     []Edge
	lastCards []models.EvidenceCard

	pending bool
	timer   *time.Timer
	gen     int

	onChange func()
}

// New creates a reconciler with the given removal delay. Zero or negative
// falls back to DefaultRemovalDelay. onChange, if non-nil, fires after every
// render-set change.
func New(delay time.Duration, onChange func()) *Reconciler {
	if delay <= 0 {
		delay = DefaultRemovalDelay
	}
	return &Reconciler{delay: delay, onChange: onChange}
}

// Close cancels any pending removal timer.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.pending = false
}

// Apply reconciles the render node set against the model's current cards.
//
// Rules:
//   - ids new to the render set enter immediately;
//   - ids gone from the model are flagged Removing and physically dropped
//     after the delay; while that batch is pending no additions merge in;
//   - ids present in both are refreshed in place;
//   - a Removing id that reappears in the model supersedes its removal and
//     re-enters, so it never disappears; other removing ids keep their full
//     window.
func (r *Reconciler) Apply(cards []models.EvidenceCard) {
	r.mu.Lock()
	r.lastCards = append([]models.EvidenceCard(nil), cards...)

	model := make(map[string]models.EvidenceCard, len(cards))
	for _, c := range cards {
		model[c.ID] = c
	}

	if r.pending {
		r.applyDuringRemovalLocked(model)
		r.mu.Unlock()
		r.notify()
		return
	}

	removed := false
	for i := range r.nodes {
		if _, ok := model[r.nodes[i].ID]; !ok {
			r.nodes[i].State = StateRemoving
			removed = true
		}
	}
	if removed {
		// Resolve this removal batch before rendering the next card set.
		r.scheduleDropLocked()
		r.mu.Unlock()
		r.notify()
		return
	}

	r.rebuildLocked(model)
	r.mu.Unlock()
	r.notify()
}

// applyDuringRemovalLocked handles a model change that lands while a removal
// batch is pending. Caller holds mu.
func (r *Reconciler) applyDuringRemovalLocked(model map[string]models.EvidenceCard) {
	removing := false
	for _, n := range r.nodes {
		if _, ok := model[n.ID]; !ok {
			removing = true
			break
		}
	}
	if !removing {
		// Every staged removal was superseded; resolve the batch now so
		// held additions do not wait out an empty window.
		r.cancelDropLocked()
		r.rebuildLocked(model)
		return
	}

	// New removals join the pending batch; survivors are refreshed in
	// place; a removing id back in the model re-enters without disturbing
	// the window of the rest of the batch. Additions wait for the batch to
	// resolve.
	for i := range r.nodes {
		card, ok := model[r.nodes[i].ID]
		if !ok {
			r.nodes[i].State = StateRemoving
			continue
		}
		if r.nodes[i].State == StateRemoving {
			r.nodes[i].State = StateEntering
		}
		r.nodes[i].Card = card
		r.nodes[i].Position = card.Position
	}
}

// rebuildLocked replaces the node set with one entry per model card.
// Ids already rendered settle; fresh ids enter. Caller holds mu.
func (r *Reconciler) rebuildLocked(model map[string]models.EvidenceCard) {
	known := make(map[string]NodeState, len(r.nodes))
	for _, n := range r.nodes {
		known[n.ID] = n.State
	}

	nodes := make([]Node, 0, len(r.lastCards))
	for _, card := range r.lastCards {
		state := StateEntering
		if prev, ok := known[card.ID]; ok && prev != StateRemoving {
			state = StateSettled
		}
		nodes = append(nodes, Node{
			ID:       card.ID,
			Position: card.Position,
			Card:     card,
			State:    state,
		})
	}
	r.nodes = nodes
}

// scheduleDropLocked arms the batch-drop timer. Caller holds mu.
func (r *Reconciler) scheduleDropLocked() {
	r.pending = true
	r.gen++
	gen := r.gen
	r.timer = time.AfterFunc(r.delay, func() { r.dropBatch(gen) })
}

// cancelDropLocked disarms a pending batch. Caller holds mu.
func (r *Reconciler) cancelDropLocked() {
	r.gen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.pending = false
}

// dropBatch resolves a removal batch: removing nodes are physically dropped
// and any additions held back during the window enter now.
func (r *Reconciler) dropBatch(gen int) {
	r.mu.Lock()
	if gen != r.gen {
		// A newer Apply superseded this batch.
		r.mu.Unlock()
		return
	}
	r.pending = false
	r.timer = nil

	model := make(map[string]models.EvidenceCard, len(r.lastCards))
	for _, c := range r.lastCards {
		model[c.ID] = c
	}
	r.rebuildLocked(model)
	r.mu.Unlock()
	r.notify()
}

// ReplaceEdges swaps the render edge collection wholesale: one entry per
// model link, no staging. A deleted link disappears immediately.
func (r *Reconciler) ReplaceEdges(links []models.EvidenceLink) {
	r.mu.Lock()
	edges := make([]Edge, len(links))
	for i, l := range links {
		edges[i] = Edge{ID: l.ID, Source: l.Source, Target: l.Target, Label: l.Label}
	}
	r.edges = edges
	r.mu.Unlock()
	r.notify()
}

// Snapshot returns copies of the current render collections.
func (r *Reconciler) Snapshot() ([]Node, []Edge) {
	r.mu.Lock()
	defer r.mu.Unlock()
	nodes := append([]Node(nil), r.nodes...)
	edges := append([]Edge(nil), r.edges...)
	return nodes, edges
}

func (r *Reconciler) notify() {
	if r.onChange != nil {
		r.onChange()
	}
}
