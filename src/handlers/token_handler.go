package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/insiderfolio/backend/src/logger"
	"github.com/username/insiderfolio/backend/src/security"
	"github.com/username/insiderfolio/backend/src/utils"
)

// TokenHandler exchanges the configured API key for a short-lived JWT.
type TokenHandler struct {
	authService *security.AuthService
}

func NewTokenHandler(authService *security.AuthService) *TokenHandler {
	return &TokenHandler{authService: authService}
}

type tokenRequest struct {
	APIKey string `json:"apiKey"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (h *TokenHandler) HandleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.APIKey == "" {
		utils.SendJSONError(w, "apiKey required", http.StatusBadRequest)
		return
	}

	if err := h.authService.VerifyAPIKey(req.APIKey); err != nil {
		logger.L.Warn("Token request with invalid API key", "remoteAddr", r.RemoteAddr)
		utils.SendJSONError(w, "invalid API key", http.StatusUnauthorized)
		return
	}

	token, err := h.authService.GenerateToken("ingest-client")
	if err != nil {
		logger.L.Error("Failed to generate token", "error", err)
		utils.SendJSONError(w, "failed to generate token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tokenResponse{Token: token})
}
