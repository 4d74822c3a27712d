package v1handler

import (
	"net/http"

	"linkmint/pkg/domain"
	"linkmint/pkg/serrors"
)

// maxGenerateURLs bounds one generate batch.
const maxGenerateURLs = 50

// GenerateRequest asks for monetized replacements of a URL batch.
type GenerateRequest struct {
	URLs []string `json:"urls"`
}

// GenerateResponse maps each original URL to its monetization result.
type GenerateResponse struct {
	Results map[string]domain.MonetizationResult `json:"results"`
}

// GenerateLinks resolves and monetizes each submitted URL without any text
// substitution.
func (h *Handler) GenerateLinks(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)

		return
	}
	if len(req.URLs) == 0 {
		writeError(w, r, serrors.With(serrors.ErrBadRequest, "urls required"))

		return
	}
	if len(req.URLs) > maxGenerateURLs {
		writeError(w, r, serrors.With(serrors.ErrBadRequest, "at most %d urls per request", maxGenerateURLs))

		return
	}

	results := h.deps.Engine.ComputeRewrites(r.Context(), req.URLs)
	writeJSON(w, http.StatusOK, GenerateResponse{Results: results})
}
