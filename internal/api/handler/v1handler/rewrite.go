package v1handler

import (
	"net/http"

	"linkmint/internal/rewrite"
	"linkmint/pkg/serrors"
)

// RewriteRequest carries either free text, structured content or both.
type RewriteRequest struct {
	Text       string              `json:"text,omitempty"`
	Structured *rewrite.Structured `json:"structured,omitempty"`
}

// RewriteResponse mirrors the request shape with replacements applied.
type RewriteResponse struct {
	Text       string              `json:"text,omitempty"`
	Structured *rewrite.Structured `json:"structured,omitempty"`
	Changed    bool                `json:"changed"`
	// Notes explains per original URL what happened to it.
	Notes map[string]string `json:"notes,omitempty"`
}

// RewriteContent monetizes every URL found in the request's text and
// structured content.
func (h *Handler) RewriteContent(w http.ResponseWriter, r *http.Request) {
	var req RewriteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)

		return
	}
	if req.Text == "" && req.Structured == nil {
		writeError(w, r, serrors.With(serrors.ErrBadRequest, "text or structured content required"))

		return
	}

	ctx := r.Context()
	resp := RewriteResponse{Notes: make(map[string]string)}

	if req.Text != "" {
		out, changed, notes := h.deps.Engine.RewriteText(ctx, req.Text)
		resp.Text = out
		resp.Changed = changed
		for u, n := range notes {
			resp.Notes[u] = n
		}
	}

	if req.Structured != nil {
		out, changed, notes := h.deps.Engine.RewriteStructured(ctx, *req.Structured)
		resp.Structured = &out
		resp.Changed = resp.Changed || changed
		for u, n := range notes {
			resp.Notes[u] = n
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
