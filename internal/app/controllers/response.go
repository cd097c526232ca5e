package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dimasfh/sociagram/internal/app/repositories"
	"github.com/dimasfh/sociagram/internal/app/services"
)

var ErrInvalidParam = errors.New("invalid param")

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var vErr *services.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, repositories.ErrUserNotFound),
		errors.Is(err, repositories.ErrPostNotFound),
		errors.Is(err, repositories.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, repositories.ErrUserAlreadyExists):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, services.ErrAlreadyFollowing),
		errors.Is(err, services.ErrNotFollowing),
		errors.Is(err, services.ErrUnsupportedMediaType):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
