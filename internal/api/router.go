package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/corkboard/internal/boardservice"
	"github.com/starford/corkboard/internal/reconcile"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// attachmentsDir is where uploaded card images land.
func NewRouter(svc *boardservice.Service, rec *reconcile.Reconciler, authEnabled bool, token string, sseHandler http.Handler, attachmentsDir string) chi.Router {
	h := NewHandler(svc)
	bh := NewBoardHandler(svc, rec)
	ah := NewAttachmentHandler(attachmentsDir)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Cases.
	r.Get("/cases", h.ListCases)
	r.Post("/cases", h.CreateCase)
	r.Put("/cases/active", h.SetActiveCase)

	// Cards.
	r.Post("/cards", h.AddCard)
	r.Patch("/cards/{id}", h.UpdateCard)
	r.Delete("/cards/{id}", h.DeleteCard)
	r.Post("/cards/{id}/duplicate", h.DuplicateCard)
	r.Put("/cards/{id}/position", h.UpdateCardPosition)

	// Selection.
	r.Put("/selection", h.UpdateSelection)

	// Links.
	r.Post("/links", h.AddLink)
	r.Delete("/links/{id}", h.DeleteLink)

	// Tasks.
	r.Post("/tasks", h.AddTask)
	r.Patch("/tasks/{id}", h.ToggleTask)
	r.Delete("/tasks/{id}", h.DeleteTask)

	// Snapshot import/export.
	r.Get("/export", h.ExportCase)
	r.Post("/import", h.ImportCase)

	// Render view.
	r.Get("/board", bh.Board)
	r.Post("/board/connectors", bh.Connectors)

	// Attachments upload (auth-protected).
	r.Post("/attachments", ah.Upload)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
