// Package v1handler implements the version 1 HTTP handlers of the link
// service.
package v1handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"linkmint/pkg/logger"
	"linkmint/pkg/serrors"
	"linkmint/pkg/session"

	"go.uber.org/zap"
)

// Deps holds the collaborators of the v1 handlers. Sessions is optional and
// only feeds the health endpoint.
type Deps struct {
	Engine   Rewriter
	Sessions *session.Manager
}

// Handler serves the v1 routes.
type Handler struct {
	deps Deps
}

// New creates a v1 Handler.
func New(deps Deps) *Handler {
	return &Handler{deps: deps}
}

// Register mounts the v1 routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/rewrite", h.RewriteContent)
	mux.HandleFunc("POST /v1/generate", h.GenerateLinks)
	mux.HandleFunc("GET /health", h.Health)
}

// maxBodyBytes bounds request bodies; rewrite inputs are chat-sized.
const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return serrors.Wrap(serrors.ErrBadRequest, err, "could not decode request body")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps semantic error kinds onto HTTP statuses. Unknown errors are
// logged and reported as a bare 500 so internals never leak to clients.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, serrors.ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, serrors.ErrUnauthorized), errors.Is(err, serrors.ErrAuthExpired):
		status = http.StatusUnauthorized
	case errors.Is(err, serrors.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, serrors.ErrTimeout), errors.Is(err, serrors.ErrResolutionTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, serrors.ErrUnavailable), errors.Is(err, serrors.ErrRetriesExhausted):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		logger.Error(r.Context(), "handler error", zap.Error(err))
		writeJSON(w, status, errorResponse{Error: "internal error"})

		return
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}
