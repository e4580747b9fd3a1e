package api

import (
	"encoding/json"
	"net/http"

	"github.com/starford/corkboard/internal/boardservice"
	"github.com/starford/corkboard/internal/geometry"
	"github.com/starford/corkboard/internal/reconcile"
)

// BoardHandler assembles render-ready views of the active case from the
// reconciler's node/edge collections.
type BoardHandler struct {
	svc *boardservice.Service
	rec *reconcile.Reconciler
}

// NewBoardHandler creates a board view handler.
func NewBoardHandler(svc *boardservice.Service, rec *reconcile.Reconciler) *BoardHandler {
	return &BoardHandler{svc: svc, rec: rec}
}

// Board handles GET /api/board. The response reflects the reconciled render
// set, so a just-deleted card still appears with state "removing" until its
// exit window elapses.
func (h *BoardHandler) Board(w http.ResponseWriter, r *http.Request) {
	nodes, edges := h.rec.Snapshot()

	resp := BoardResponse{
		CaseID:   h.svc.ActiveCaseID(),
		Selected: h.svc.SelectedCardID(),
		Nodes:    make([]BoardNode, len(nodes)),
		Edges:    make([]BoardEdge, len(edges)),
	}
	for i, n := range nodes {
		resp.Nodes[i] = BoardNode{
			ID:       n.ID,
			Position: n.Position,
			Card:     n.Card,
			State:    n.State.String(),
		}
	}
	for i, e := range edges {
		resp.Edges[i] = BoardEdge{ID: e.ID, Source: e.Source, Target: e.Target, Label: e.Label}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Connectors handles POST /api/board/connectors: given the renderer's measured
// card rectangles, it anchors each connector on the rectangle boundaries.
// Connectors with degenerate geometry are dropped from the response.
func (h *BoardHandler) Connectors(w http.ResponseWriter, r *http.Request) {
	var req ConnectorsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	results := make([]ConnectorResult, 0, len(req.Connectors))
	for _, q := range req.Connectors {
		src, tgt, ok := geometry.ConnectorEndpoints(q.SourceRect, q.TargetRect, q.SourcePt, q.TargetPt)
		if !ok {
			continue
		}
		results = append(results, ConnectorResult{ID: q.ID, Source: src, Target: tgt})
	}
	writeJSON(w, http.StatusOK, ConnectorsResponse{Connectors: results})
}
