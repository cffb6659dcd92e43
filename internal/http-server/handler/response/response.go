package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"img-thumbs/internal/domain"

	"github.com/wb-go/wbf/zlog"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, logger *zlog.Zerolog, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func Message(w http.ResponseWriter, logger *zlog.Zerolog, status int, message string) {
	JSON(w, logger, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

// Error writes err with the status code of its kind. Internal errors are
// logged and their details are not exposed.
func Error(w http.ResponseWriter, logger *zlog.Zerolog, err error) {
	status := Status(err)

	resp := ErrorResponse{
		Error:   http.StatusText(status),
		Message: err.Error(),
	}

	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Msg("Request failed")
		resp.Message = "internal error"
	}

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Basic realm="thumbs", charset="UTF-8"`)
	}

	JSON(w, logger, status, resp)
}

func Status(err error) int {
	var maxBytes *http.MaxBytesError

	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrDecode),
		errors.Is(err, domain.ErrEncode):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
