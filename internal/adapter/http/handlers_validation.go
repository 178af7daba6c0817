package http

import (
	"net/http"

	"github.com/Strob0t/CatalogForge/internal/domain/validation"
)

// --- Image Validation Endpoints ---

// ValidateImage handles POST /api/v1/images/validate
//
// Decode and check failures are part of the outcome (status "error"), not
// transport errors, so a scored response is always 200.
func (h *Handlers) ValidateImage(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[validation.ValidateRequest](w, r)
	if !ok {
		return
	}
	out, err := h.Validation.Validate(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "image validation failed")
		return
	}
	writeJSON(w, http.StatusOK, out)
}
