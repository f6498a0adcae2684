package release

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/zcomx/zcomix/internal/platform/request"
	"github.com/zcomx/zcomix/internal/platform/respond"
)

// Handler implements the HTTP layer for the release pipeline. Its routes
// attach to the book router; release is an operation on books, not a
// resource of its own.
type Handler struct {
	driver *Driver
}

// NewHandler constructs a new release [Handler].
func NewHandler(driver *Driver) *Handler {
	return &Handler{driver: driver}
}

// Register attaches the release endpoints to the book router.
func (handler *Handler) Register(router chi.Router) {
	router.Post("/{id}/release", handler.requestRelease)
	router.Post("/{id}/unrelease", handler.requestUnrelease)
}

// barrierResponse is the 422 payload listing everything that blocks a
// release.
type barrierResponse struct {
	Barriers []Barrier `json:"barriers"`
}

/*
POST /api/v1/books/{id}/release.

Description: Evaluates the release gate eagerly. When barriers apply they
are all returned at once so the user can fix them in one pass; otherwise
the book enters the releasing state and the pipeline runs in the
background.

Response:
  - 202: Release accepted and queued
  - 409: A release is already in flight, or the book is released
  - 422: barrierResponse with every triggered barrier
*/
func (handler *Handler) requestRelease(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	barriers, err := handler.driver.RequestRelease(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if len(barriers) > 0 {
		respond.JSON(writer, http.StatusUnprocessableEntity, barrierResponse{Barriers: barriers})
		return
	}

	writer.WriteHeader(http.StatusAccepted)
}

/*
POST /api/v1/books/{id}/unrelease.

Description: Queues the reverse transition. The archive and torrent are
removed in the background; the page ledger survives untouched, so the
book can be released again later.

Response:
  - 202: Reversal accepted and queued
  - 409: The book is not released
*/
func (handler *Handler) requestUnrelease(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.driver.RequestUnrelease(request.Context(), id); err != nil {
		respond.Error(writer, request, err)
		return
	}

	writer.WriteHeader(http.StatusAccepted)
}
