package class

import (
	"log/slog"
	"net/http"

	"github.com/sahajkedia/student-profile-challenge/internal/auth"
	"github.com/sahajkedia/student-profile-challenge/internal/httputil"

	"github.com/go-chi/chi/v5"
)

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
	r.Route("/classes", func(r chi.Router) {
		r.Use(auth.RequireAuthenticated)
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Post("/{id}/enroll", h.Enroll)
		r.Delete("/{id}/students/{studentId}", h.RemoveStudent)
	})
}

type createResponse struct {
	Message string `json:"message"`
	ClassID int64  `json:"classId"`
	Class   *Class `json:"class"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentIdentity(r.Context())

	classes, err := h.service.List(r.Context(), caller)
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to get classes")
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, classes)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentIdentity(r.Context())

	var req CreateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to create class")
		return
	}

	c, err := h.service.Create(r.Context(), caller, req)
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to create class")
		return
	}

	h.logger.InfoContext(r.Context(), "class created", "class_id", c.ID, "teacher_id", c.TeacherID)
	httputil.RespondWithJSON(w, http.StatusCreated, createResponse{
		Message: "Class created successfully",
		ClassID: c.ID,
		Class:   c,
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentIdentity(r.Context())

	classID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to get class details")
		return
	}

	detail, err := h.service.Get(r.Context(), caller, classID)
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to get class details")
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, detail)
}

func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentIdentity(r.Context())

	classID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to enroll student")
		return
	}

	var req EnrollRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to enroll student")
		return
	}

	if err := h.service.Enroll(r.Context(), caller, classID, req.StudentID); err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to enroll student")
		return
	}
	httputil.RespondWithMessage(w, http.StatusOK, "Student enrolled successfully")
}

func (h *Handler) RemoveStudent(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentIdentity(r.Context())

	classID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to remove student")
		return
	}
	studentID, err := httputil.PathID(r, "studentId")
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to remove student")
		return
	}

	if err := h.service.RemoveStudent(r.Context(), caller, classID, studentID); err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to remove student")
		return
	}
	httputil.RespondWithMessage(w, http.StatusOK, "Student removed successfully")
}
