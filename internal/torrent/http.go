package torrent

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zcomx/zcomix/internal/platform/apperr"
	requestutil "github.com/zcomx/zcomix/internal/platform/request"
	"github.com/zcomx/zcomix/internal/platform/respond"
)

// Handler serves torrent downloads out of the archive tree.
type Handler struct {
	books    BookStore
	creators CreatorStore
	root     string
}

// NewHandler constructs a new torrent [Handler].
func NewHandler(books BookStore, creators CreatorStore, root string) *Handler {
	return &Handler{books: books, creators: creators, root: root}
}

// Routes returns a [chi.Router] configured with the torrent endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/all", handler.downloadAll)
	router.Get("/book/{id}", handler.downloadBook)
	router.Get("/creator/{identifier}", handler.downloadCreator)
	return router
}

/*
GET /torrent/book/{id}.

Description: Streams the single-file torrent for a released book.

Response:
  - 200: application/x-bittorrent document
  - 404: Unknown book, or book has no torrent yet
*/
func (handler *Handler) downloadBook(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	b, err := handler.books.GetByID(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	if b.Torrent == nil {
		respond.Error(writer, request, apperr.NotFound("Torrent"))
		return
	}

	handler.serve(writer, request, *b.Torrent)
}

// GET /torrent/creator/{identifier}. Accepts a numeric id or a slug.
func (handler *Handler) downloadCreator(writer http.ResponseWriter, request *http.Request) {
	identifier := requestutil.Param(request, "identifier")

	var (
		torrent *string
		err     error
	)
	if id, parseErr := strconv.ParseInt(identifier, 10, 64); parseErr == nil {
		c, getErr := handler.creators.GetByID(request.Context(), id)
		if getErr == nil {
			torrent = c.Torrent
		}
		err = getErr
	} else {
		c, getErr := handler.creators.GetBySlug(request.Context(), identifier)
		if getErr == nil {
			torrent = c.Torrent
		}
		err = getErr
	}
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	if torrent == nil {
		respond.Error(writer, request, apperr.NotFound("Torrent"))
		return
	}

	handler.serve(writer, request, *torrent)
}

// GET /torrent/all. Streams the site-wide torrent.
func (handler *Handler) downloadAll(writer http.ResponseWriter, request *http.Request) {
	handler.serve(writer, request, allTorrentRel)
}

func (handler *Handler) serve(writer http.ResponseWriter, request *http.Request, rel string) {
	file, err := os.Open(filepath.Join(handler.root, filepath.FromSlash(rel)))
	if err != nil {
		respond.Error(writer, request, apperr.NotFound("Torrent"))
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}

	name := path.Base(rel)
	writer.Header().Set("Content-Type", "application/x-bittorrent")
	writer.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeContent(writer, request, name, info.ModTime(), file)
}
