package survey

import (
	"log/slog"
	"net"
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
	r.Route("/surveys", func(r chi.Router) {
		r.Use(auth.RequireAuthenticated)
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/assign", h.Assign)
		r.Post("/{id}/respond", h.Respond)
		r.Get("/{id}/responses", h.ListResponses)
	})
}

type createResponse struct {
	Message  string  `json:"message"`
	SurveyID int64   `json:"surveyId"`
	Survey   *Survey `json:"survey"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentIdentity(r.Context())

	var req CreateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to create survey")
		return
	}

	survey, err := h.service.Create(r.Context(), caller, req)
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to create survey")
		return
	}

	h.logger.InfoContext(r.Context(), "survey created", "survey_id", survey.ID, "teacher_id", survey.TeacherID)
	httputil.RespondWithJSON(w, http.StatusCreated, createResponse{
		Message:  "Survey created successfully",
		SurveyID: survey.ID,
		Survey:   survey,
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentIdentity(r.Context())

	surveys, err := h.service.List(r.Context(), caller, filterFromQuery(r))
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to get surveys")
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, surveys)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentIdentity(r.Context())

	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to get survey")
		return
	}

	detail, err := h.service.Get(r.Context(), caller, id)
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to get survey")
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, detail)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentIdentity(r.Context())

	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to update survey")
		return
	}

	var req UpdateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to update survey")
		return
	}

	if err := h.service.Update(r.Context(), caller, id, req); err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to update survey")
		return
	}
	httputil.RespondWithMessage(w, http.StatusOK, "Survey updated successfully")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentIdentity(r.Context())

	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to delete survey")
		return
	}

	if err := h.service.Delete(r.Context(), caller, id); err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to delete survey")
		return
	}
	h.logger.InfoContext(r.Context(), "survey deleted", "survey_id", id, "user_id", caller.ID)
	httputil.RespondWithMessage(w, http.StatusOK, "Survey deleted successfully")
}

func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentIdentity(r.Context())

	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to assign survey")
		return
	}

	var req AssignRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to assign survey")
		return
	}

	if err := h.service.Assign(r.Context(), caller, id, req); err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to assign survey")
		return
	}
	httputil.RespondWithMessage(w, http.StatusOK, "Survey assigned successfully")
}

func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentIdentity(r.Context())

	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to submit response")
		return
	}

	var req RespondRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to submit response")
		return
	}

	if _, err := h.service.Respond(r.Context(), caller, id, req, clientOf(r)); err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to submit response")
		return
	}
	httputil.RespondWithMessage(w, http.StatusOK, "Response saved successfully")
}

func (h *Handler) ListResponses(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentIdentity(r.Context())

	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to get responses")
		return
	}

	responses, err := h.service.ListResponses(r.Context(), caller, id)
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Failed to get responses")
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, responses)
}

// filterFromQuery reads ?active= and ?template=. A present parameter filters
// on whether its value is exactly "true".
func filterFromQuery(r *http.Request) Filter {
	q := r.URL.Query()
	var f Filter
	if q.Has("active") {
		v := q.Get("active") == "true"
		f.Active = &v
	}
	if q.Has("template") {
		v := q.Get("template") == "true"
		f.Template = &v
	}
	return f
}

func clientOf(r *http.Request) Client {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return Client{
		IPAddress: ip,
		UserAgent: r.UserAgent(),
	}
}
