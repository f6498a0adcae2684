package creator

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/zcomx/zcomix/internal/platform/apperr"
	requestutil "github.com/zcomx/zcomix/internal/platform/request"
	"github.com/zcomx/zcomix/internal/platform/respond"
	"github.com/zcomx/zcomix/pkg/pagination"
)

// Handler implements the HTTP layer for creators.
type Handler struct {
	service *Service
}

// NewHandler constructs a new creator [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns a [chi.Router] configured with the creator endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.searchCreators)
	router.Post("/", handler.createCreator)
	router.Get("/{identifier}", handler.getCreator)
	router.Patch("/{id}", handler.updateCreator)

	router.Post("/{id}/portrait", handler.uploadPortrait)
	router.Post("/{id}/indicia", handler.uploadIndicia)

	return router
}

// GET /api/v1/creators. Name substring search, paginated.
func (handler *Handler) searchCreators(writer http.ResponseWriter, request *http.Request) {
	paginationParams := pagination.FromRequest(request)
	query := request.URL.Query().Get("q")

	creators, total, err := handler.service.SearchCreators(request.Context(), query, paginationParams)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, creators, pagination.NewMeta(paginationParams.Page, paginationParams.Limit, total))
}

// GET /api/v1/creators/{identifier}. Accepts a numeric id or a slug.
func (handler *Handler) getCreator(writer http.ResponseWriter, request *http.Request) {
	identifier := requestutil.Param(request, "identifier")

	c, err := handler.service.GetCreator(request.Context(), identifier)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, c)
}

// creatorRequest defines the inbound JSON schema for creator writes.
type creatorRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PaypalEmail string `json:"paypal_email"`
}

// POST /api/v1/creators.
func (handler *Handler) createCreator(writer http.ResponseWriter, request *http.Request) {
	var payload creatorRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	c := &Creator{
		Name:        payload.Name,
		Email:       payload.Email,
		PaypalEmail: payload.PaypalEmail,
	}

	if err := handler.service.CreateCreator(request.Context(), c); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, c)
}

// PATCH /api/v1/creators/{id}.
func (handler *Handler) updateCreator(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	c, err := handler.service.repo.GetByID(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	payload := creatorRequest{
		Name:        c.Name,
		Email:       c.Email,
		PaypalEmail: c.PaypalEmail,
	}
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	c.Name = payload.Name
	c.Email = payload.Email
	c.PaypalEmail = payload.PaypalEmail

	if err := handler.service.UpdateCreator(request.Context(), c); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, c)
}

// setImageFunc is the shape shared by SetPortrait and SetIndicia.
type setImageFunc func(ctx context.Context, id int64, path, filename string) (*Creator, error)

// POST /api/v1/creators/{id}/portrait. Single-file multipart upload.
func (handler *Handler) uploadPortrait(writer http.ResponseWriter, request *http.Request) {
	handler.uploadImage(writer, request, handler.service.SetPortrait)
}

// POST /api/v1/creators/{id}/indicia. Single-file multipart upload.
func (handler *Handler) uploadIndicia(writer http.ResponseWriter, request *http.Request) {
	handler.uploadImage(writer, request, handler.service.SetIndicia)
}

func (handler *Handler) uploadImage(writer http.ResponseWriter, request *http.Request, set setImageFunc) {
	id, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	request.Body = http.MaxBytesReader(writer, request.Body, 64<<20)
	if err := request.ParseMultipartForm(32 << 20); err != nil {
		respond.Error(writer, request, apperr.ValidationError("Invalid multipart payload"))
		return
	}
	defer request.MultipartForm.RemoveAll()

	files := request.MultipartForm.File["file"]
	if len(files) != 1 {
		respond.Error(writer, request, apperr.ValidationError("Exactly one file is required"))
		return
	}

	tempPath, err := saveTemp(files[0])
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}
	defer os.Remove(tempPath)

	c, err := set(request.Context(), id, tempPath, files[0].Filename)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, c)
}

// saveTemp copies a multipart file to a temp path; the image store works
// on filesystem paths.
func saveTemp(header *multipart.FileHeader) (string, error) {
	src, err := header.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.CreateTemp("", "upload-*"+filepath.Ext(header.Filename))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	return dst.Name(), nil
}
