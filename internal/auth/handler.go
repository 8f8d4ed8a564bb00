package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sahajkedia/student-profile-challenge/internal/apperr"
	"github.com/sahajkedia/student-profile-challenge/internal/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const resetRequestedMessage = "If the email exists, a reset link has been sent"

type Handler struct {
	service   *Service
	sessions  *Sessions
	logger    *slog.Logger
	validator *validator.Validate
}

func NewHandler(service *Service, sessions *Sessions, logger *slog.Logger) *Handler {
	return &Handler{
		service:   service,
		sessions:  sessions,
		logger:    logger,
		validator: validator.New(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/reset-password", h.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(RequireAuthenticated)
			r.Put("/profile", h.UpdateProfile)
			r.Post("/change-password", h.ChangePassword)
		})
	})
}

type userResponse struct {
	Message string      `json:"message"`
	User    interface{} `json:"user"`
}

type meResponse struct {
	Authenticated bool     `json:"authenticated"`
	User          Identity `json:"user"`
}

// Register creates an account and signs the new user in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Registration failed")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		msg := httputil.ValidationMessage(err, map[string]string{
			"Role.oneof": "Invalid role specified",
		}, "All fields are required")
		httputil.RespondWithMessage(w, http.StatusBadRequest, msg)
		return
	}

	user, err := h.service.Register(r.Context(), req)
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Registration failed")
		return
	}

	identity, err := h.sessions.Start(w, r, user)
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Registration failed")
		return
	}

	h.logger.InfoContext(r.Context(), "user registered", "user_id", user.ID, "role", user.Role)
	httputil.RespondWithJSON(w, http.StatusCreated, userResponse{
		Message: "User registered successfully",
		User:    identity,
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Login failed")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.RespondWithMessage(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.service.Login(r.Context(), req)
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Login failed")
		return
	}

	identity, err := h.sessions.Start(w, r, user)
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Login failed")
		return
	}

	h.logger.InfoContext(r.Context(), "user logged in", "user_id", user.ID)
	httputil.RespondWithJSON(w, http.StatusOK, userResponse{
		Message: "Login successful",
		User:    identity,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(w, r); err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Logout failed")
		return
	}
	httputil.RespondWithMessage(w, http.StatusOK, "Logout successful")
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := CurrentIdentity(r.Context())
	if !ok {
		respondUnauthenticated(w, "Not authenticated")
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, meResponse{Authenticated: true, User: identity})
}

// UpdateProfile renames the caller and refreshes the session copy.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	caller, _ := CurrentIdentity(r.Context())

	var req UpdateProfileRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Profile update failed")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.RespondWithMessage(w, http.StatusBadRequest, "First name and last name are required")
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), caller.ID, req)
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Profile update failed")
		return
	}

	identity, err := h.sessions.Refresh(w, r, user)
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Profile update failed")
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, userResponse{
		Message: "Profile updated successfully",
		User:    identity,
	})
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Password reset request failed")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.RespondWithMessage(w, http.StatusBadRequest, "Email is required")
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Password reset request failed")
		return
	}
	httputil.RespondWithMessage(w, http.StatusOK, resetRequestedMessage)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Password reset failed")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		msg := httputil.ValidationMessage(err, map[string]string{
			"min": "Password must be at least 6 characters long",
		}, "Token and new password are required")
		httputil.RespondWithMessage(w, http.StatusBadRequest, msg)
		return
	}

	err := h.service.ResetPassword(r.Context(), req)
	if errors.Is(err, ErrInvalidResetToken) {
		// the reset form treats a dead link as bad input
		msg, _ := apperr.Message(err)
		httputil.RespondWithMessage(w, http.StatusBadRequest, msg)
		return
	}
	if err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Password reset failed")
		return
	}
	httputil.RespondWithMessage(w, http.StatusOK, "Password reset successful")
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	caller, _ := CurrentIdentity(r.Context())

	var req ChangePasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Password change failed")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		msg := httputil.ValidationMessage(err, map[string]string{
			"min": "New password must be at least 6 characters long",
		}, "Current password and new password are required")
		httputil.RespondWithMessage(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.service.ChangePassword(r.Context(), caller.ID, req); err != nil {
		httputil.RespondWithError(w, r, h.logger, err, "Password change failed")
		return
	}
	httputil.RespondWithMessage(w, http.StatusOK, "Password changed successfully")
}
