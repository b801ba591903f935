package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rasxm/simplerss/internal/app"
	"github.com/rasxm/simplerss/internal/entity"
)

// writeJSON marshals v completely before anything is written
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	body, err := json.Marshal(v)

	if err != nil {
		handleError(w, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if _, err := w.Write(body); err != nil {
		handleBadResponse(err, v)
	}
}

// handleError responds with an error message
func handleError(w http.ResponseWriter, err error, statusCode int) {
	logger := app.Logger()

	if statusCode >= http.StatusInternalServerError {
		logger.Error("Request error", "error", err, "status", statusCode)
	} else {
		logger.Warn("Request error", "error", err, "status", statusCode)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := map[string]string{"error": err.Error()}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		handleBadResponse(err, response)
	}
}

// statusForError maps pipeline errors to HTTP statuses
func statusForError(err error) int {
	var (
		upstreamErr  *entity.UpstreamError
		malformedErr *entity.MalformedFeedError
	)

	switch {
	case errors.Is(err, entity.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrForbiddenTarget):
		return http.StatusForbidden
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &upstreamErr):
		if upstreamErr.Timeout() {
			return http.StatusGatewayTimeout
		}

		return http.StatusBadGateway
	case errors.As(err, &malformedErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func handleBadResponse(err error, resp any) {
	app.Logger().Error(
		"failed to write a response",
		"error", err,
		"response", resp,
	)
}
