package image

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/zcomx/zcomix/internal/platform/apperr"
	requestutil "github.com/zcomx/zcomix/internal/platform/request"
	"github.com/zcomx/zcomix/internal/platform/respond"
)

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/{key}", handler.serve)
}

// serve streams a stored derivative. The requested size falls back to the
// original when the derivative does not exist; a 404 is returned only when
// the reference itself is unknown.
func (handler *Handler) serve(writer http.ResponseWriter, request *http.Request) {
	ref, err := ParseRef(requestutil.Param(request, "key"))
	if err != nil {
		respond.Error(writer, request, apperr.NotFound("Image"))
		return
	}

	size := ParseSize(request.URL.Query().Get("size"))

	path, served, err := handler.store.Resolve(ref, size)
	if err != nil {
		respond.Error(writer, request, apperr.NotFound("Image"))
		return
	}

	file, err := os.Open(path)
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}

	writer.Header().Set("Content-Type", MIMEType(ref.DerivativeExt(served)))
	http.ServeContent(writer, request, ref.Filename, info.ModTime(), file)
}
