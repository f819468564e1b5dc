package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/bdmotors/internal/auth"
)

// AuthHandler issues access tokens.
type AuthHandler struct {
	JWTSecret string
}

type loginRequest struct {
	Email string `json:"email"`
}

type loginResponse struct {
	AccessToken string `json:"accessToken"`
}

// Login handles POST /login. The client identity is the submitted email;
// credentials are checked by the identity provider in front of this service.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" {
		jsonError(w, http.StatusBadRequest, "email required")
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, req.Email)
	if err != nil {
		slog.Error("failed to generate token", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	slog.Info("token issued", "email", req.Email)
	jsonResponse(w, http.StatusOK, loginResponse{AccessToken: token})
}
