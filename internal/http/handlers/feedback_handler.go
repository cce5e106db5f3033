package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rhcare/clinic-api/internal/domain"
	mw "github.com/rhcare/clinic-api/internal/http/middleware"
	"github.com/rhcare/clinic-api/internal/http/response"
	"github.com/rhcare/clinic-api/internal/service"
)

type FeedbackHandler struct {
	feedback service.FeedbackService
}

func NewFeedbackHandler(feedback service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback}
}

func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req domain.SubmitFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	fb, err := h.feedback.Submit(r.Context(), mw.UserFrom(r), &req)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, map[string]any{
		"message":  "Feedback submitted successfully",
		"feedback": fb,
	})
}

func (h *FeedbackHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.FeedbackFilter{
		Type:       q.Get("type"),
		Status:     q.Get("status"),
		AssignedTo: q.Get("assigned_to"),
	}
	if p := q.Get("priority"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			filter.Priority = n
		}
	}

	items, err := h.feedback.List(r.Context(), mw.UserFrom(r), filter)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"feedback": items})
}

// MyFeedback lists only the caller's own submissions, regardless of role.
func (h *FeedbackHandler) MyFeedback(w http.ResponseWriter, r *http.Request) {
	user := mw.UserFrom(r)
	items, err := h.feedback.List(r.Context(), user, domain.FeedbackFilter{UserID: user.ID})
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"feedback": items})
}

func (h *FeedbackHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	fb, err := h.feedback.Get(r.Context(), mw.UserFrom(r), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"feedback": fb})
}

func (h *FeedbackHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req domain.UpdateFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	fb, err := h.feedback.Update(r.Context(), mw.UserFrom(r), id, &req)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"message":  "Feedback updated",
		"feedback": fb,
	})
}

func (h *FeedbackHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.feedback.Stats(r.Context(), mw.UserFrom(r))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"stats": stats})
}
