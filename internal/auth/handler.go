package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/carbocredit/backend/internal/models"
)

type LoginRequest struct {
	WalletAddress string `json:"walletAddress"`
}

type LoginResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	user, token, err := h.svc.Login(r.Context(), req.WalletAddress)
	if err != nil {
		if errors.Is(err, ErrMissingWallet) {
			http.Error(w, `{"error":"wallet address required"}`, http.StatusBadRequest)
			return
		}
		h.log.Error("login failed", "error", err)
		http.Error(w, `{"error":"authentication failed"}`, http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(LoginResponse{User: user, Token: token})
}

// Logout exists for frontend symmetry; sessions are stateless.
func (h *Handler) Logout(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "logout successful"})
}
