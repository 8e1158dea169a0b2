package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"quiz-share-service/internal/domain"
)

const internalErrorMessage = "Something went wrong"

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps domain errors to status codes. Anything unrecognised is
// logged and answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var ve *domain.ValidationError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: ve.Reason})
	case errors.Is(err, domain.ErrAlreadySubmitted):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: domain.ErrAlreadySubmitted.Error()})
	case errors.Is(err, domain.ErrPayloadTooLarge), errors.As(err, &tooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: domain.ErrPayloadTooLarge.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Unauthorized"})
	case errors.Is(err, domain.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorBody{Error: "Forbidden"})
	case errors.Is(err, domain.ErrNoSubmission):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "You haven't taken this quiz yet"})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Quiz not found"})
	default:
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: internalErrorMessage})
	}
}

// decodeJSON reads the request body into dst. Size overruns surface as
// *http.MaxBytesError, everything else as a validation failure.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return domain.Invalid("Invalid JSON body")
	}
	return nil
}
