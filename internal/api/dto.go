package api

import (
	"github.com/starford/corkboard/internal/geometry"
	"github.com/starford/corkboard/internal/models"
)

// CaseSummary is a lightweight item in the case list response.
type CaseSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CardCount   int    `json:"cardCount"`
	LinkCount   int    `json:"linkCount"`
	TaskCount   int    `json:"taskCount"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
}

// CaseListResponse wraps the case collection plus the active case id.
type CaseListResponse struct {
	Cases  []CaseSummary `json:"cases"`
	Active string        `json:"active,omitempty"`
}

// CreateCaseRequest is the request body for creating a case.
type CreateCaseRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SetActiveCaseRequest selects which case the board shows.
type SetActiveCaseRequest struct {
	ID string `json:"id"`
}

// AddCardRequest pins a new card at a canvas position.
type AddCardRequest struct {
	Type     string          `json:"type"`
	Position models.Position `json:"position"`
}

// PositionRequest carries a drag update for one card.
type PositionRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SelectionRequest marks a card as selected; an empty id clears selection.
type SelectionRequest struct {
	ID string `json:"id"`
}

// AddLinkRequest connects two cards with red string.
type AddLinkRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// AddTaskRequest appends a checklist item to the active case.
type AddTaskRequest struct {
	Text string `json:"text"`
}

// BoardNode is one renderable card in the board view, carrying its
// reconciliation state so the renderer can drive enter/exit animations.
type BoardNode struct {
	ID       string              `json:"id"`
	Position models.Position     `json:"position"`
	Card     models.EvidenceCard `json:"data"`
	State    string              `json:"state"`
}

// BoardEdge is one renderable connector in the board view.
type BoardEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
}

// BoardResponse is the render-ready view of the active case.
type BoardResponse struct {
	CaseID   string      `json:"caseId,omitempty"`
	Selected string      `json:"selected,omitempty"`
	Nodes    []BoardNode `json:"nodes"`
	Edges    []BoardEdge `json:"edges"`
}

// ConnectorQuery asks for anchored endpoints of one connector. Rects are the
// measured card rectangles; points are the renderer's raw endpoints, used as
// a fallback while a rect is unmeasured.
type ConnectorQuery struct {
	ID         string         `json:"id"`
	SourceRect geometry.Rect  `json:"sourceRect"`
	TargetRect geometry.Rect  `json:"targetRect"`
	SourcePt   geometry.Point `json:"sourcePoint"`
	TargetPt   geometry.Point `json:"targetPoint"`
}

// ConnectorResult is one resolved connector. Suppressed connectors (degenerate
// geometry) are omitted from the response entirely.
type ConnectorResult struct {
	ID     string         `json:"id"`
	Source geometry.Point `json:"source"`
	Target geometry.Point `json:"target"`
}

// ConnectorsRequest wraps a batch of connector queries.
type ConnectorsRequest struct {
	Connectors []ConnectorQuery `json:"connectors"`
}

// ConnectorsResponse wraps resolved connectors.
type ConnectorsResponse struct {
	Connectors []ConnectorResult `json:"connectors"`
}

// AttachmentUploadResponse is returned after a successful image upload.
type AttachmentUploadResponse struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
}
