package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/geoassist/internal/model"
)

// StatusClientClosedRequest is reported when a request was cancelled,
// usually superseded by a newer one from the same session.
const StatusClientClosedRequest = 499

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("api: request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.Error(err),
		)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func classify(err error) (int, string) {
	var inv *model.InvalidInputError
	var nf *model.NotFoundError
	switch {
	case errors.As(err, &inv):
		return http.StatusBadRequest, inv.Error()
	case errors.As(err, &nf):
		return http.StatusNotFound, nf.Error()
	case model.IsNotFound(err):
		return http.StatusNotFound, model.ErrNotFound.Error()
	case errors.Is(err, errReportsDisabled):
		return http.StatusServiceUnavailable, errReportsDisabled.Error()
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "request cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &model.InvalidInputError{Field: "body", Reason: "must be a JSON object"}
	}
	return nil
}
