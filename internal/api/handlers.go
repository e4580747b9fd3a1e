package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/corkboard/internal/apperr"
	"github.com/starford/corkboard/internal/boardservice"
	"github.com/starford/corkboard/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc *boardservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *boardservice.Service) *Handler {
	return &Handler{svc: svc}
}

// writeErr maps domain errors to HTTP status codes.
func writeErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrNoActiveCase):
		writeJSON(w, http.StatusConflict, errorBody("no active case"))
	case errors.Is(err, apperr.ErrSelfLink):
		writeJSON(w, http.StatusBadRequest, errorBody("cannot link a card to itself"))
	case errors.Is(err, apperr.ErrDuplicateLink):
		writeJSON(w, http.StatusConflict, errorBody("cards are already linked"))
	case errors.Is(err, apperr.ErrInvalidType):
		writeJSON(w, http.StatusBadRequest, errorBody("unknown card type"))
	case errors.Is(err, apperr.ErrInvalidSnapshot):
		writeJSON(w, http.StatusBadRequest, errorBody("invalid snapshot"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// ListCases handles GET /api/cases.
func (h *Handler) ListCases(w http.ResponseWriter, r *http.Request) {
	cases := h.svc.Cases()
	resp := CaseListResponse{
		Cases:  make([]CaseSummary, len(cases)),
		Active: h.svc.ActiveCaseID(),
	}
	for i, c := range cases {
		resp.Cases[i] = CaseSummary{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
			CardCount:   len(c.Cards),
			LinkCount:   len(c.Links),
			TaskCount:   len(c.Tasks),
			CreatedAt:   c.CreatedAt,
			UpdatedAt:   c.UpdatedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateCase handles POST /api/cases.
func (h *Handler) CreateCase(w http.ResponseWriter, r *http.Request) {
	var req CreateCaseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c := h.svc.CreateCase(req.Name, req.Description)
	writeJSON(w, http.StatusCreated, c)
}

// SetActiveCase handles PUT /api/cases/active.
func (h *Handler) SetActiveCase(w http.ResponseWriter, r *http.Request) {
	var req SetActiveCaseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	if err := h.svc.SetActiveCase(req.ID); err != nil {
		writeErr(w, "activate case", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddCard handles POST /api/cards.
func (h *Handler) AddCard(w http.ResponseWriter, r *http.Request) {
	var req AddCardRequest
	if !decodeBody(w, r, &req) {
		return
	}
	card, err := h.svc.AddCard(models.EvidenceType(req.Type), req.Position)
	if err != nil {
		writeErr(w, "add card", err)
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

// UpdateCard handles PATCH /api/cards/{id}. Absent fields are left untouched.
func (h *Handler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var patch boardservice.CardPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	if err := h.svc.UpdateCard(id, patch); err != nil {
		writeErr(w, "update card", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteCard handles DELETE /api/cards/{id}.
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteCard(chi.URLParam(r, "id")); err != nil {
		writeErr(w, "delete card", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DuplicateCard handles POST /api/cards/{id}/duplicate.
func (h *Handler) DuplicateCard(w http.ResponseWriter, r *http.Request) {
	card, err := h.svc.DuplicateCard(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, "duplicate card", err)
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

// UpdateCardPosition handles PUT /api/cards/{id}/position.
//
// Drag events stream in from the renderer and can race a concurrent delete,
// so a stale card id is a silent no-op rather than an error.
func (h *Handler) UpdateCardPosition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req PositionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	err := h.svc.UpdateCardPosition(id, models.Position{X: req.X, Y: req.Y})
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		writeErr(w, "move card", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateSelection handles PUT /api/selection. An empty id clears the
// selection. Stale ids are accepted; the selection is transient UI state.
func (h *Handler) UpdateSelection(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.svc.SelectCard(req.ID)
	w.WriteHeader(http.StatusNoContent)
}

// AddLink handles POST /api/links.
func (h *Handler) AddLink(w http.ResponseWriter, r *http.Request) {
	var req AddLinkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Source == "" || req.Target == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("source and target are required"))
		return
	}
	link, err := h.svc.AddLink(req.Source, req.Target)
	if err != nil {
		writeErr(w, "add link", err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

// DeleteLink handles DELETE /api/links/{id}.
func (h *Handler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteLink(chi.URLParam(r, "id")); err != nil {
		writeErr(w, "delete link", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddTask handles POST /api/tasks.
func (h *Handler) AddTask(w http.ResponseWriter, r *http.Request) {
	var req AddTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("text is required"))
		return
	}
	task, err := h.svc.AddTask(req.Text)
	if err != nil {
		writeErr(w, "add task", err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// ToggleTask handles PATCH /api/tasks/{id}: flips the completed flag.
func (h *Handler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ToggleTask(chi.URLParam(r, "id")); err != nil {
		writeErr(w, "toggle task", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteTask handles DELETE /api/tasks/{id}.
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTask(chi.URLParam(r, "id")); err != nil {
		writeErr(w, "delete task", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportCase handles GET /api/export: the active case as a pretty-printed
// snapshot, served as a download.
func (h *Handler) ExportCase(w http.ResponseWriter, r *http.Request) {
	text, err := h.svc.ExportCase()
	if err != nil {
		writeErr(w, "export case", err)
		return
	}
	id := h.svc.ActiveCaseID()
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, text)
}

// ImportCase handles POST /api/import: the body is a raw snapshot. The
// imported case gets a fresh collection-local id and becomes active.
func (h *Handler) ImportCase(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	c, err := h.svc.ImportCase(string(body))
	if err != nil {
		writeErr(w, "import case", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}
