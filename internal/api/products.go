package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/bdmotors/internal/inventory"
	"github.com/erazemk/bdmotors/internal/model"
)

// ProductsHandler handles the product listing and insert endpoints.
type ProductsHandler struct {
	Service *inventory.Service
}

// List handles GET /product.
func (h *ProductsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := inventory.ParsePage(q.Get("selectedPage"), q.Get("pageLoadSize"))
	if err != nil {
		serviceError(w, r, err, "failed to list products")
		return
	}

	products, err := h.Service.List(r.Context(), page)
	if err != nil {
		serviceError(w, r, err, "failed to list products")
		return
	}
	productsResponse(w, products)
}

// Home handles GET /product/home.
func (h *ProductsHandler) Home(w http.ResponseWriter, r *http.Request) {
	products, err := h.Service.Home(r.Context())
	if err != nil {
		serviceError(w, r, err, "failed to list products")
		return
	}
	productsResponse(w, products)
}

// MyItems handles GET /product/myItem. When the route is authenticated, only
// the token's owner may list their items.
func (h *ProductsHandler) MyItems(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")

	if claims := GetClaims(r.Context()); claims != nil && claims.Email != email {
		slog.Warn("owner mismatch", "token_email", claims.Email, "email", email)
		jsonError(w, http.StatusForbidden, "forbidden access")
		return
	}

	products, err := h.Service.MyItems(r.Context(), email)
	if err != nil {
		serviceError(w, r, err, "failed to list items")
		return
	}
	productsResponse(w, products)
}

// Count handles GET /productCount.
func (h *ProductsHandler) Count(w http.ResponseWriter, r *http.Request) {
	count, err := h.Service.Count(r.Context())
	if err != nil {
		serviceError(w, r, err, "failed to count products")
		return
	}
	jsonResponse(w, http.StatusOK, model.Count{Count: count})
}

// Featured handles GET /featureProduct.
func (h *ProductsHandler) Featured(w http.ResponseWriter, r *http.Request) {
	products, err := h.Service.Featured(r.Context())
	if err != nil {
		serviceError(w, r, err, "failed to list featured products")
		return
	}
	productsResponse(w, products)
}

// Create handles POST /product.
func (h *ProductsHandler) Create(w http.ResponseWriter, r *http.Request) {
	// Limit to 1 MB.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	doc, err := model.DecodeProduct(r.Body)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Service.Insert(r.Context(), doc)
	if err != nil {
		serviceError(w, r, err, "failed to add item")
		return
	}
	jsonResponse(w, http.StatusCreated, result)
}

func productsResponse(w http.ResponseWriter, products []model.Product) {
	if products == nil {
		products = []model.Product{}
	}
	jsonResponse(w, http.StatusOK, products)
}
