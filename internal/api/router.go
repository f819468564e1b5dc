package api

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/erazemk/bdmotors/internal/inventory"
)

// Features switches optional endpoints on and off.
type Features struct {
	EnableDelete bool
	EnableInsert bool
	// RequireAuth guards /product/myItem with a bearer token and serves
	// POST /login. JWTSecret must be set when it is enabled.
	RequireAuth bool
	JWTSecret   string
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(svc *inventory.Service, features Features) http.Handler {
	mux := http.NewServeMux()

	productsHandler := &ProductsHandler{Service: svc}
	inventoryHandler := &InventoryHandler{Service: svc}

	mux.HandleFunc("GET /{$}", root)
	mux.HandleFunc("GET /healthz", healthz(svc))

	// Listings.
	mux.HandleFunc("GET /product", productsHandler.List)
	mux.HandleFunc("GET /product/home", productsHandler.Home)
	mux.HandleFunc("GET /productCount", productsHandler.Count)
	mux.HandleFunc("GET /featureProduct", productsHandler.Featured)

	if features.RequireAuth {
		authHandler := &AuthHandler{JWTSecret: features.JWTSecret}
		authMW := AuthMiddleware(features.JWTSecret)

		mux.HandleFunc("POST /login", authHandler.Login)
		mux.Handle("GET /product/myItem", authMW(http.HandlerFunc(productsHandler.MyItems)))
	} else {
		mux.HandleFunc("GET /product/myItem", productsHandler.MyItems)
	}

	// Single product.
	mux.HandleFunc("GET /inventory/{id}", inventoryHandler.Get)
	mux.HandleFunc("POST /inventory/{id}", inventoryHandler.Adjust)
	if features.EnableDelete {
		mux.HandleFunc("DELETE /inventory/{id}", inventoryHandler.Delete)
	}
	if features.EnableInsert {
		mux.HandleFunc("POST /product", productsHandler.Create)
	}

	return mux
}

// Handler wraps the router with request id, logging and CORS middleware.
func Handler(svc *inventory.Service, features Features) http.Handler {
	return RequestIDMiddleware(LoggingMiddleware(CORSMiddleware(NewRouter(svc, features))))
}

// root handles GET /.
func root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := io.WriteString(w, "BDMOTORS is running"); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// healthz handles GET /healthz.
func healthz(svc *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Ping(r.Context()); err != nil {
			slog.Error("store unreachable", "error", err)
			jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
