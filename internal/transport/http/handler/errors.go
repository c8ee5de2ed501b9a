package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/zeni-bff/internal/domain"
)

// httpError maps domain sentinels to status codes. Unknown errors become a 500
// whose detail is only exposed when debug is set.
func httpError(w http.ResponseWriter, err error, debug bool) {
	switch {
	case errors.Is(err, domain.ErrBadRequest), errors.Is(err, domain.ErrInvalidOrExpired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrDelivery):
		slog.Error("delivery failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to deliver message")
	default:
		slog.Error("request failed", "err", err)
		env := MessageEnvelope{Message: "internal server error"}
		if debug {
			env.Error = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, env)
	}
}
