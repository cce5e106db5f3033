package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rhcare/clinic-api/internal/domain"
	mw "github.com/rhcare/clinic-api/internal/http/middleware"
	"github.com/rhcare/clinic-api/internal/http/response"
	"github.com/rhcare/clinic-api/internal/service"
)

type InvitationHandler struct {
	invitations service.InvitationService
}

func NewInvitationHandler(invitations service.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitations: invitations}
}

func (h *InvitationHandler) Invite(w http.ResponseWriter, r *http.Request) {
	var req domain.InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	inv, err := h.invitations.Invite(r.Context(), mw.UserFrom(r), &req)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, map[string]any{
		"message":    "Invitation sent successfully",
		"invitation": inv,
		"token":      inv.Token,
	})
}

func (h *InvitationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req domain.RedeemInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	user, err := h.invitations.Redeem(r.Context(), token, &req)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, map[string]any{
		"message": "Account created successfully. You can now log in.",
		"user_id": user.ID,
	})
}

func (h *InvitationHandler) List(w http.ResponseWriter, r *http.Request) {
	invitations, err := h.invitations.List(r.Context(), mw.UserFrom(r))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"invitations": invitations})
}

func (h *InvitationHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.invitations.Revoke(r.Context(), mw.UserFrom(r), id); err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"message": "Invitation revoked"})
}
