package v1handler

import (
	"net/http"

	"linkmint/pkg/domain"
)

// HealthResponse reports service liveness and, when an affiliate session is
// configured, its freshness.
type HealthResponse struct {
	Status  string          `json:"status"`
	Session *domain.Session `json:"session,omitempty"`
}

// Health reports liveness. The session state is informational; an expired
// session does not fail the check because Amazon-only monetization still
// works.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}

	if h.deps.Sessions != nil {
		valid, lastValidated := h.deps.Sessions.Valid()
		resp.Session = &domain.Session{Valid: valid, LastValidatedAt: lastValidated}
	}

	writeJSON(w, http.StatusOK, resp)
}
