package profile

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
	r.Route("/profiles", func(r chi.Router) {
		r.Use(auth.RequireAuthenticated)
		r.With(auth.RequireAnyRole(auth.RoleTeacher, auth.RoleAdmin)).Get("/", h.List)
		r.Post("/", h.Save)
		r.Get("/{userId}", h.Get)
		r.Delete("/{userId}", h.Delete)
	})
}

type saveResponse struct {
	Message string `json:"message"`
	Profile *View  `json:"profile"`
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentIdentity(r.Context())

	userID, err := httputil.PathID(r, "userId")
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to get profile")
		return
	}

	view, err := h.service.Get(r.Context(), caller, userID)
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to get profile")
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, view)
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentIdentity(r.Context())

	var req SaveRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to save profile")
		return
	}

	view, err := h.service.Save(r.Context(), caller, req)
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to save profile")
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, saveResponse{
		Message: "Profile saved successfully",
		Profile: view,
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentIdentity(r.Context())

	views, err := h.service.List(r.Context(), caller)
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to get profiles")
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, views)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentIdentity(r.Context())

	userID, err := httputil.PathID(r, "userId")
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to delete profile")
		return
	}

	if err := h.service.Delete(r.Context(), caller, userID); err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to delete profile")
		return
	}
	httputil.RespondWithMessage(w, http.StatusOK, "Profile deleted successfully")
}
