package book

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/zcomx/zcomix/internal/platform/apperr"
	requestutil "github.com/zcomx/zcomix/internal/platform/request"
	"github.com/zcomx/zcomix/internal/platform/respond"
	"github.com/zcomx/zcomix/pkg/pagination"
)

// Handler implements the HTTP layer for books: discovery, management,
// the page ledger, and archive downloads.
//
// # Routing Strategy
//
//   - Discovery: search and detail reads, accessible to all visitors.
//   - Management: mutative endpoints (create, update, pages, metadata).
//     The authentication layer sits in front of the API and is not
//     modelled here.
type Handler struct {
	service *Service
	// archiveRoot is the base directory containing cbz/ and tor/ trees.
	archiveRoot string
}

// NewHandler constructs a new book [Handler].
func NewHandler(service *Service, archiveRoot string) *Handler {
	return &Handler{service: service, archiveRoot: archiveRoot}
}

// Routes returns a [chi.Router] configured with the book endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.searchBooks)
	router.Post("/", handler.createBook)
	router.Get("/{id}", handler.getBook)
	router.Patch("/{id}", handler.updateBook)
	router.Delete("/{id}", handler.deleteBook)
	router.Get("/{id}.cbz", handler.downloadArchive)

	router.Post("/{id}/pages", handler.uploadPages)
	router.Delete("/{id}/pages/{pageID}", handler.deletePage)
	router.Post("/{id}/post-image-upload", handler.postImageUpload)

	router.Get("/{id}/metadata", handler.getMetadata)
	router.Put("/{id}/metadata", handler.setMetadata)
	router.Delete("/{id}/metadata", handler.deleteMetadata)

	return router
}

// # Discovery Endpoints

/*
GET /api/v1/books.

Description: Searches active books by title substring, paginated.

Request:
  - q: string (Title substring, case-insensitive)
  - limit: int
  - page: int

Response:
  - 200: []Book
*/
func (handler *Handler) searchBooks(writer http.ResponseWriter, request *http.Request) {
	paginationParams := pagination.FromRequest(request)
	query := request.URL.Query().Get("q")

	books, total, err := handler.service.SearchBooks(request.Context(), query, paginationParams)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, books, pagination.NewMeta(paginationParams.Page, paginationParams.Limit, total))
}

// GET /api/v1/books/{id}. Returns the book with its page ledger.
func (handler *Handler) getBook(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	b, err := handler.service.GetBook(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, b)
}

/*
GET /api/v1/books/{id}.cbz.

Description: Streams the built archive of a released book. Responds 404
until the release pipeline has produced the archive.
*/
func (handler *Handler) downloadArchive(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	b, err := handler.service.GetBook(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if b.Archive == nil {
		respond.Error(writer, request, apperr.NotFound("Archive"))
		return
	}

	path := filepath.Join(handler.archiveRoot, filepath.FromSlash(*b.Archive))
	file, err := os.Open(path)
	if err != nil {
		respond.Error(writer, request, apperr.NotFound("Archive"))
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}

	writer.Header().Set("Content-Type", "application/vnd.comicbook+zip")
	writer.Header().Set("Content-Disposition", `attachment; filename="`+b.ArchiveName()+`"`)
	http.ServeContent(writer, request, b.ArchiveName(), info.ModTime(), file)
}

// # Request Payloads

// bookRequest defines the inbound JSON schema for book creation and update.
type bookRequest struct {
	CreatorID int64  `json:"creator_id"`
	Title     string `json:"title"`
	Kind      Kind   `json:"kind"`
	Number    int    `json:"number"`
	OfNumber  int    `json:"of_number"`
	Year      int    `json:"year"`
	License   string `json:"license"`
}

// # Management Endpoints

// POST /api/v1/books.
func (handler *Handler) createBook(writer http.ResponseWriter, request *http.Request) {
	var payload bookRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	b := &Book{
		CreatorID: payload.CreatorID,
		Title:     payload.Title,
		Kind:      payload.Kind,
		Number:    payload.Number,
		OfNumber:  payload.OfNumber,
		Year:      payload.Year,
		License:   payload.License,
	}

	if err := handler.service.CreateBook(request.Context(), b); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, b)
}

// PATCH /api/v1/books/{id}.
func (handler *Handler) updateBook(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	b, err := handler.service.GetBook(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	payload := bookRequest{
		Title:    b.Title,
		Kind:     b.Kind,
		Number:   b.Number,
		OfNumber: b.OfNumber,
		Year:     b.Year,
		License:  b.License,
	}
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	b.Title = payload.Title
	b.Kind = payload.Kind
	b.Number = payload.Number
	b.OfNumber = payload.OfNumber
	b.Year = payload.Year
	b.License = payload.License

	if err := handler.service.UpdateBook(request.Context(), b); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, b)
}

// DELETE /api/v1/books/{id}. Disables the book and schedules background
// removal of its artifacts.
func (handler *Handler) deleteBook(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.DisableBook(request.Context(), id); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # Metadata Endpoints

// GET /api/v1/books/{id}/metadata.
func (handler *Handler) getMetadata(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	m, err := handler.service.GetMetadata(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, m)
}

// PUT /api/v1/books/{id}/metadata. Replaces the whole document.
func (handler *Handler) setMetadata(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var m Metadata
	if err := requestutil.DecodeJSON(request, &m); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.SetMetadata(request.Context(), id, &m); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, m)
}

// DELETE /api/v1/books/{id}/metadata.
func (handler *Handler) deleteMetadata(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.DeleteMetadata(request.Context(), id); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
