package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/CatalogForge/internal/domain/sku"
)

// --- SKU Endpoints ---

// GenerateSKU handles POST /api/v1/skus/generate
func (h *Handlers) GenerateSKU(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[sku.GenerateRequest](w, r)
	if !ok {
		return
	}
	res, err := h.SKUs.Generate(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "sku generation failed")
		return
	}
	if res.Outcome == sku.OutcomeConflictUnresolved {
		writeJSON(w, http.StatusConflict, res)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// GetProduct handles GET /api/v1/skus/{sku}
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	canonical := chi.URLParam(r, "sku")
	rec, err := h.SKUs.Lookup(r.Context(), canonical)
	if err != nil {
		writeDomainError(w, err, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// CheckSKUUnique handles GET /api/v1/skus/{sku}/unique
func (h *Handlers) CheckSKUUnique(w http.ResponseWriter, r *http.Request) {
	canonical := chi.URLParam(r, "sku")
	unique, err := h.SKUs.Unique(r.Context(), canonical)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"canonical_sku": canonical,
		"unique":        unique,
	})
}
