package api

import (
	"net/http"

	"github.com/erazemk/bdmotors/internal/inventory"
)

// InventoryHandler handles the single-product endpoints.
type InventoryHandler struct {
	Service *inventory.Service
}

// Get handles GET /inventory/{id}.
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.Service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		serviceError(w, r, err, "failed to get product")
		return
	}
	jsonResponse(w, http.StatusOK, product)
}

// Adjust handles POST /inventory/{id}. With restockQuantity the stock grows
// by that amount; without it one unit is sold.
func (h *InventoryHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	restock, err := inventory.ParseRestock(r.URL.Query().Get("restockQuantity"))
	if err != nil {
		serviceError(w, r, err, "failed to update quantity")
		return
	}

	result, err := h.Service.AdjustQuantity(r.Context(), r.PathValue("id"), restock)
	if err != nil {
		serviceError(w, r, err, "failed to update quantity")
		return
	}
	jsonResponse(w, http.StatusOK, result)
}

// Delete handles DELETE /inventory/{id}.
func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		serviceError(w, r, err, "failed to delete product")
		return
	}
	jsonResponse(w, http.StatusOK, result)
}
