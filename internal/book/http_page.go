package book

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/zcomx/zcomix/internal/image"
	"github.com/zcomx/zcomix/internal/platform/apperr"
	requestutil "github.com/zcomx/zcomix/internal/platform/request"
	"github.com/zcomx/zcomix/internal/platform/respond"
)

// maxUploadBytes bounds one multipart upload request.
const maxUploadBytes = 500 << 20

// uploadResult describes the outcome for one uploaded file. Failures are
// reported per file and never abort sibling uploads.
type uploadResult struct {
	Name   string  `json:"name"`
	Size   int64   `json:"size"`
	PageID int64   `json:"book_page_id,omitempty"`
	PageNo int     `json:"page_no,omitempty"`
	Error  string  `json:"error,omitempty"`
	Pages  []int64 `json:"book_page_ids,omitempty"`
}

// uploadResponse is the JSON body of POST /books/{id}/pages.
type uploadResponse struct {
	Files []uploadResult `json:"files"`
}

/*
POST /api/v1/books/{id}/pages.

Description: Multipart upload of one or more files. Each file is
classified: images are appended to the page ledger, zip archives are
unpacked and their image members appended in name order, anything else is
reported as unsupported. The response carries one entry per input file.

Response:
  - 200: {files: [...]} with per-file success or error
*/
func (handler *Handler) uploadPages(writer http.ResponseWriter, request *http.Request) {
	bookID, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	request.Body = http.MaxBytesReader(writer, request.Body, maxUploadBytes)
	if err := request.ParseMultipartForm(32 << 20); err != nil {
		respond.Error(writer, request, apperr.ValidationError("Invalid multipart payload"))
		return
	}
	defer request.MultipartForm.RemoveAll()

	files := request.MultipartForm.File["files"]
	if len(files) == 0 {
		respond.Error(writer, request, apperr.ValidationError("No files uploaded"))
		return
	}

	response := uploadResponse{Files: make([]uploadResult, 0, len(files))}
	for _, header := range files {
		response.Files = append(response.Files, handler.ingestUpload(request, bookID, header))
	}

	respond.JSON(writer, http.StatusOK, response)
}

// ingestUpload classifies and processes one part of the multipart body.
func (handler *Handler) ingestUpload(request *http.Request, bookID int64, header *multipart.FileHeader) uploadResult {
	result := uploadResult{Name: header.Filename, Size: header.Size}

	tempPath, err := saveTemp(header)
	if err != nil {
		result.Error = "Unable to read upload"
		return result
	}
	defer os.Remove(tempPath)

	switch classifyUpload(header.Filename) {
	case uploadImage:
		page, err := handler.service.AddPage(request.Context(), bookID, tempPath, header.Filename)
		if err != nil {
			result.Error = uploadErrorMessage(err)
			return result
		}
		result.PageID = page.ID
		result.PageNo = page.PageNo

	case uploadArchive:
		pageIDs, err := handler.ingestArchive(request, bookID, tempPath)
		if err != nil {
			result.Error = uploadErrorMessage(err)
			return result
		}
		result.Pages = pageIDs

	default:
		result.Error = "Unsupported file type"
	}

	return result
}

// ingestArchive unpacks a zip/cbz upload and appends its image members in
// lexicographic name order.
func (handler *Handler) ingestArchive(request *http.Request, bookID int64, path string) ([]int64, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, apperr.ValidationError("Corrupt or unreadable archive")
	}
	defer reader.Close()

	members := make([]*zip.File, 0, len(reader.File))
	for _, member := range reader.File {
		if member.FileInfo().IsDir() {
			continue
		}
		if classifyUpload(member.Name) != uploadImage {
			continue
		}
		members = append(members, member)
	}
	if len(members) == 0 {
		return nil, apperr.ValidationError("Archive contains no images")
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })

	tempDir, err := os.MkdirTemp("", "unpack-*")
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer os.RemoveAll(tempDir)

	pageIDs := make([]int64, 0, len(members))
	for _, member := range members {
		memberPath, err := extractMember(member, tempDir)
		if err != nil {
			return pageIDs, err
		}

		page, err := handler.service.AddPage(request.Context(), bookID, memberPath, filepath.Base(member.Name))
		if err != nil {
			return pageIDs, err
		}
		pageIDs = append(pageIDs, page.ID)
	}

	return pageIDs, nil
}

func extractMember(member *zip.File, dir string) (string, error) {
	src, err := member.Open()
	if err != nil {
		return "", apperr.ValidationError("Corrupt archive member: " + member.Name)
	}
	defer src.Close()

	// Flatten the member path; only the basename matters for ingestion.
	dstPath := filepath.Join(dir, filepath.Base(member.Name))
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", apperr.Internal(err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", apperr.ValidationError("Corrupt archive member: " + member.Name)
	}
	return dstPath, nil
}

// DELETE /api/v1/books/{id}/pages/{pageID}.
func (handler *Handler) deletePage(writer http.ResponseWriter, request *http.Request) {
	bookID, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	pageID, err := requestutil.IntParam(request, "pageID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.DeletePage(request.Context(), bookID, pageID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// postImageUploadRequest carries the final page order settled by the
// uploader.
type postImageUploadRequest struct {
	BookPageIDs []int64 `json:"book_page_ids"`
}

/*
POST /api/v1/books/{id}/post-image-upload.

Description: Finalises an upload batch. Applies the submitted page order
(renumbering to 1..N, deleting pages absent from the list) and queues
derivative optimization for every page image.
*/
func (handler *Handler) postImageUpload(writer http.ResponseWriter, request *http.Request) {
	bookID, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var payload postImageUploadRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.PostImageUpload(request.Context(), bookID, payload.BookPageIDs); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # Upload Classification

type uploadKind int

const (
	uploadUnsupported uploadKind = iota
	uploadImage
	uploadArchive
)

func classifyUpload(filename string) uploadKind {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".ppm":
		return uploadImage
	case ".zip", ".cbz":
		return uploadArchive
	default:
		return uploadUnsupported
	}
}

// saveTemp copies one multipart file to a temp path on disk. The image
// store works on filesystem paths, not streams.
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

// uploadErrorMessage extracts a client-safe message for the per-file report.
func uploadErrorMessage(err error) string {
	var tooSmall *image.TooSmallError
	if errors.As(err, &tooSmall) {
		return tooSmall.Error()
	}
	if errors.Is(err, image.ErrUnsupportedFormat) {
		return "File is not a recognised image"
	}
	if appError := apperr.As(err); appError != nil {
		if len(appError.Details) > 0 {
			return appError.Details[0].Message
		}
		return appError.Message
	}
	return "Upload failed"
}
