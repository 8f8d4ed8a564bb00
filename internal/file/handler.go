package file

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/sahajkedia/student-profile-challenge/internal/auth"
	"github.com/sahajkedia/student-profile-challenge/internal/httputil"

	"github.com/go-chi/chi/v5"
)

// multipartSlack covers the multipart framing and form fields around the file.
const multipartSlack = 1 << 20

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/files", func(r chi.Router) {
		r.Use(auth.RequireAuthenticated)
		r.Post("/upload", h.Upload)
		r.Get("/", h.List)
		r.Get("/{fileId}", h.Download)
		r.Delete("/{fileId}", h.Delete)
	})
}

type uploadResponse struct {
	Message  string `json:"message"`
	FileID   int64  `json:"fileId"`
	FileName string `json:"fileName"`
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentIdentity(r.Context())

	upload, err := readUpload(w, r)
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to upload file")
		return
	}

	f, err := h.service.Upload(r.Context(), caller, upload)
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to upload file")
		return
	}

	h.logger.InfoContext(r.Context(), "file uploaded", "file_id", f.ID, "user_id", caller.ID, "size", f.FileSize)
	httputil.RespondWithJSON(w, http.StatusOK, uploadResponse{
		Message:  "File uploaded successfully",
		FileID:   f.ID,
		FileName: f.OriginalName,
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentIdentity(r.Context())

	files, err := h.service.List(r.Context(), caller)
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to get files")
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, files)
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentIdentity(r.Context())

	id, err := httputil.PathID(r, "fileId")
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to download file")
		return
	}

	f, err := h.service.Download(r.Context(), caller, id)
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to download file")
		return
	}

	w.Header().Set("Content-Type", ContentType(f.OriginalName))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": f.OriginalName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(f.Data); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write file", "file_id", f.ID, "error", err)
	}
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentIdentity(r.Context())

	id, err := httputil.PathID(r, "fileId")
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to delete file")
		return
	}

	if err := h.service.Delete(r.Context(), caller, id); err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to delete file")
		return
	}
	httputil.RespondWithMessage(w, http.StatusOK, "File deleted successfully")
}

// readUpload pulls the "file" part and the optional "fileType" field out of
// a multipart body capped just above MaxSize.
func readUpload(w http.ResponseWriter, r *http.Request) (Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxSize+multipartSlack)

	if err := r.ParseMultipartForm(MaxSize + multipartSlack); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return Upload{}, ErrTooLarge
		}
		return Upload{}, ErrNoFile
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		return Upload{}, ErrNoFile
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		return Upload{}, err
	}

	return Upload{
		OriginalName: header.Filename,
		DeclaredType: header.Header.Get("Content-Type"),
		FileType:     r.FormValue("fileType"),
		Data:         data,
	}, nil
}
