package link

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/zcomx/zcomix/internal/platform/request"
	"github.com/zcomx/zcomix/internal/platform/respond"
)

// Handler implements the HTTP layer for links.
type Handler struct {
	service *Service
}

// NewHandler constructs a new link [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the link endpoints for one owner kind. The router is
// mounted under both /books/{ownerID}/links and /creators/{ownerID}/links.
func (handler *Handler) Routes(owner OwnerKind) chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.list(owner))
	router.Post("/", handler.attach(owner))
	router.Delete("/{linkID}", handler.detach(owner))
	router.Put("/order", handler.reorder(owner))

	return router
}

// linkRequest defines the inbound JSON schema for link creation.
type linkRequest struct {
	URL   string `json:"url"`
	Text  string `json:"text"`
	Title string `json:"title"`
}

func (handler *Handler) list(owner OwnerKind) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		ownerID, err := requestutil.IntParam(request, "ownerID")
		if err != nil {
			respond.Error(writer, request, err)
			return
		}

		links, err := handler.service.ListLinks(request.Context(), owner, ownerID)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}

		respond.OK(writer, links)
	}
}

func (handler *Handler) attach(owner OwnerKind) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		ownerID, err := requestutil.IntParam(request, "ownerID")
		if err != nil {
			respond.Error(writer, request, err)
			return
		}

		var payload linkRequest
		if err := requestutil.DecodeJSON(request, &payload); err != nil {
			respond.Error(writer, request, err)
			return
		}

		l := &Link{URL: payload.URL, Text: payload.Text, Title: payload.Title}
		if err := handler.service.AttachLink(request.Context(), owner, ownerID, l); err != nil {
			respond.Error(writer, request, err)
			return
		}

		respond.Created(writer, l)
	}
}

func (handler *Handler) detach(owner OwnerKind) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		ownerID, err := requestutil.IntParam(request, "ownerID")
		if err != nil {
			respond.Error(writer, request, err)
			return
		}
		linkID, err := requestutil.IntParam(request, "linkID")
		if err != nil {
			respond.Error(writer, request, err)
			return
		}

		if err := handler.service.DetachLink(request.Context(), owner, ownerID, linkID); err != nil {
			respond.Error(writer, request, err)
			return
		}

		respond.NoContent(writer)
	}
}

// reorderRequest carries the new link order.
type reorderRequest struct {
	LinkIDs []int64 `json:"link_ids"`
}

func (handler *Handler) reorder(owner OwnerKind) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		ownerID, err := requestutil.IntParam(request, "ownerID")
		if err != nil {
			respond.Error(writer, request, err)
			return
		}

		var payload reorderRequest
		if err := requestutil.DecodeJSON(request, &payload); err != nil {
			respond.Error(writer, request, err)
			return
		}

		if err := handler.service.ReorderLinks(request.Context(), owner, ownerID, payload.LinkIDs); err != nil {
			respond.Error(writer, request, err)
			return
		}

		respond.NoContent(writer)
	}
}
