package feed

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zcomx/zcomix/internal/platform/respond"
)

// Handler serves the RSS channels.
type Handler struct {
	renderer *Renderer
}

// NewHandler constructs a new feed [Handler].
func NewHandler(renderer *Renderer) *Handler {
	return &Handler{renderer: renderer}
}

// Routes returns a [chi.Router] configured with the feed endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/{kind}", handler.render)
	router.Get("/{kind}/{ref}", handler.render)
	return router
}

/*
GET /rss/{kind} and GET /rss/{kind}/{ref}.

Description: Streams the RSS channel. kind is one of all, creator, book;
ref scopes the latter two by id (or slug, for creators).

Response:
  - 200: application/rss+xml document
  - 404: Unknown kind, book, or creator
*/
func (handler *Handler) render(writer http.ResponseWriter, request *http.Request) {
	kind, err := ParseKind(chi.URLParam(request, "kind"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	body, err := handler.renderer.Render(request.Context(), kind, chi.URLParam(request, "ref"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	writer.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	writer.WriteHeader(http.StatusOK)
	writer.Write(body)
}
