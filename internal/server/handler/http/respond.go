package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/teashop/internal/service"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeValidationErrors answers 400 with the failing field and rule of every
// validation error.
func writeValidationErrors(w http.ResponseWriter, msg string, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Namespace()] = fe.Tag()
	}
	writeJSON(w, http.StatusBadRequest, map[string]any{"error": msg, "fields": fields})
}

// writeServiceError maps service errors to status codes. Unclassified errors
// are storage failures: they are logged and hidden from the client.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	default:
		if log != nil {
			log.Error("request failed", zap.String("op", op), zap.Error(err))
		}
		writeError(w, http.StatusInternalServerError, "server error")
	}
}
