package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rhcare/clinic-api/internal/domain"
	mw "github.com/rhcare/clinic-api/internal/http/middleware"
	"github.com/rhcare/clinic-api/internal/http/response"
	"github.com/rhcare/clinic-api/internal/service"
)

type StaffHandler struct {
	staff service.StaffService
}

func NewStaffHandler(staff service.StaffService) *StaffHandler {
	return &StaffHandler{staff: staff}
}

func (h *StaffHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := mw.UserFrom(r)
	response.JSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *StaffHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	user, err := h.staff.UpdateOwnProfile(r.Context(), mw.UserFrom(r), &req)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"message": "Profile updated successfully",
		"user":    user,
	})
}

func (h *StaffHandler) EmploymentInfo(w http.ResponseWriter, r *http.Request) {
	user := mw.UserFrom(r)
	if user.Profile == nil {
		response.NotFound(w, "no employment record on file")
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"employment": user.Profile})
}
