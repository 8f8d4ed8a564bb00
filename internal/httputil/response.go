package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sahajkedia/student-profile-challenge/internal/apperr"

	"github.com/go-chi/chi/v5"
)

// RespondWithJSON writes a JSON response
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to marshal response", "error", err)
		code = http.StatusInternalServerError
		response = []byte(`{"message":"Internal server error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// RespondWithMessage writes {"message": message}
func RespondWithMessage(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]string{"message": message})
}

// RespondWithError answers with the status and message of a classified error.
// Anything else is logged with full detail and answered with fallback.
func RespondWithError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, fallback string) {
	if msg, ok := apperr.Message(err); ok {
		status := apperr.Status(err)
		logger.WarnContext(r.Context(), "request rejected",
			"path", r.URL.Path,
			"status", status,
			"reason", msg,
		)
		RespondWithMessage(w, status, msg)
		return
	}

	logger.ErrorContext(r.Context(), fallback,
		"path", r.URL.Path,
		"method", r.Method,
		"error", err,
	)
	RespondWithMessage(w, http.StatusInternalServerError, fallback)
}

// DecodeJSON decodes the request body into v. An empty body leaves v untouched.
func DecodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperr.Validation("Invalid request body")
	}
	return nil
}

// PathID parses a positive integer URL parameter.
func PathID(r *http.Request, key string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("Invalid " + key)
	}
	return id, nil
}
