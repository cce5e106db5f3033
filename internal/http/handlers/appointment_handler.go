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

type AppointmentHandler struct {
	appointments service.AppointmentService
}

func NewAppointmentHandler(appointments service.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments}
}

// Book is the public booking endpoint. No session required.
func (h *AppointmentHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req domain.BookAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	appt, err := h.appointments.Book(r.Context(), &req)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, map[string]any{
		"message":           "Appointment booked successfully",
		"confirmation_code": appt.ConfirmationCode,
		"appointment":       appt,
	})
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.AppointmentFilter{
		Status:      q.Get("status"),
		Date:        q.Get("date"),
		UnitService: q.Get("unit_service"),
		Search:      q.Get("search"),
	}

	appointments, err := h.appointments.List(r.Context(), mw.UserFrom(r), filter)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"appointments": appointments})
}

func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req domain.UpdateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	appt, err := h.appointments.Update(r.Context(), mw.UserFrom(r), id, &req)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"message":     "Appointment updated",
		"appointment": appt,
	})
}
