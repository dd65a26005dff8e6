package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/BrandonDHaskell/doorlock/internal/doorlock/service"
	"github.com/BrandonDHaskell/doorlock/internal/doorlock/store"
	"github.com/BrandonDHaskell/doorlock/internal/doorlock/types"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg})
}

// writeServiceError maps service and store errors onto HTTP statuses:
// validation problems are the caller's fault, everything else is ours.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrStorage):
		s.logger.Error().Err(err).
			Str("op", op).
			Str("request_id", requestIDFrom(r.Context())).
			Msg("storage error")
		writeError(w, http.StatusInternalServerError, "storage error")
	default:
		s.logger.Error().Err(err).
			Str("op", op).
			Str("request_id", requestIDFrom(r.Context())).
			Msg("unexpected error")
		writeError(w, http.StatusInternalServerError, "unexpected server error")
	}
}
