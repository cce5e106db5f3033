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

type AdminHandler struct {
	staff service.StaffService
}

func NewAdminHandler(staff service.StaffService) *AdminHandler {
	return &AdminHandler{staff: staff}
}

func (h *AdminHandler) ListStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := h.staff.ListStaff(r.Context(), mw.UserFrom(r))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"staff": staff})
}

func (h *AdminHandler) GetStaff(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user, err := h.staff.GetStaff(r.Context(), mw.UserFrom(r), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *AdminHandler) UpdateStaff(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req domain.UpdateStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	user, err := h.staff.UpdateStaff(r.Context(), mw.UserFrom(r), id, &req)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"message": "Staff member updated",
		"user":    user,
	})
}

func (h *AdminHandler) ActivateStaff(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, domain.StatusActive, "Staff member activated")
}

func (h *AdminHandler) DeactivateStaff(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, domain.StatusInactive, "Staff member deactivated")
}

func (h *AdminHandler) setStatus(w http.ResponseWriter, r *http.Request, status, message string) {
	id := chi.URLParam(r, "id")
	user, err := h.staff.SetStaffStatus(r.Context(), mw.UserFrom(r), id, status)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"message": message,
		"user":    user,
	})
}

func (h *AdminHandler) DeleteStaff(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.staff.DeleteStaff(r.Context(), mw.UserFrom(r), id); err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"message": "Staff member deleted"})
}

func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.staff.DashboardStats(r.Context(), mw.UserFrom(r))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"stats": stats})
}
