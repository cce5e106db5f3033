package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/rhcare/clinic-api/internal/domain"
	mw "github.com/rhcare/clinic-api/internal/http/middleware"
	"github.com/rhcare/clinic-api/internal/http/response"
	"github.com/rhcare/clinic-api/internal/service"
	"github.com/rhcare/clinic-api/pkg/config"
)

type AuthHandler struct {
	auth   service.AuthService
	config *config.Config
}

func NewAuthHandler(auth service.AuthService, config *config.Config) *AuthHandler {
	return &AuthHandler{auth: auth, config: config}
}

func (h *AuthHandler) BootstrapAdmin(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("X-ADMIN-KEY")
	secret := h.config.Auth.AdminBootstrapKey
	if secret == "" || subtle.ConstantTimeCompare([]byte(key), []byte(secret)) != 1 {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req domain.BootstrapAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	admin, err := h.auth.BootstrapAdmin(r.Context(), &req)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, map[string]any{
		"message": "Admin account created successfully",
		"admin": map[string]any{
			"id":    admin.ID,
			"email": admin.Email,
			"role":  admin.Role,
		},
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	result, err := h.auth.Login(r.Context(), &req)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	if !result.MFARequired {
		// Step-up exempt account: the session token is issued immediately.
		response.JSON(w, http.StatusOK, map[string]any{
			"message": "Login successful",
			"token":   result.Token,
			"user":    result.User,
		})
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"message": "MFA code sent to your phone",
		"user_id": result.UserID,
	})
}

func (h *AuthHandler) VerifyMFA(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyMFARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	result, err := h.auth.VerifyMFA(r.Context(), &req)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"token":   result.Token,
		"user":    result.User,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := mw.TokenFrom(r)
	if err := h.auth.Logout(r.Context(), token); err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}
