package domain

import (
	"strings"
	"time"
)

const (
	FeedbackOpen       = "open"
	FeedbackInProgress = "in_progress"
	FeedbackResolved   = "resolved"
	FeedbackClosed     = "closed"
)

var feedbackTypes = map[string]bool{
	"suggestion": true,
	"complaint":  true,
	"compliment": true,
	"question":   true,
	"other":      true,
}

var feedbackStatuses = map[string]bool{
	FeedbackOpen:       true,
	FeedbackInProgress: true,
	FeedbackResolved:   true,
	FeedbackClosed:     true,
}

type Feedback struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id,omitempty"`
	Type       string    `json:"type"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Priority   int       `json:"priority"`
	Anonymous  bool      `json:"anonymous"`
	Status     string    `json:"status"`
	AdminNotes string    `json:"admin_notes,omitempty"`
	AssignedTo string    `json:"assigned_to,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type SubmitFeedbackRequest struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Priority  int    `json:"priority,omitempty"`
	Anonymous bool   `json:"anonymous,omitempty"`
}

func (r *SubmitFeedbackRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	if r.Priority == 0 {
		r.Priority = 1
	}
}

func (r *SubmitFeedbackRequest) Validate() error {
	v := NewValidationError()
	if !feedbackTypes[r.Type] {
		v.Add("type", "type must be one of suggestion, complaint, compliment, question, other")
	}
	if r.Title == "" {
		v.Add("title", "title is required")
	}
	if r.Content == "" {
		v.Add("content", "content is required")
	}
	if r.Priority < 1 || r.Priority > 5 {
		v.Add("priority", "priority must be between 1 and 5")
	}
	return v.OrNil()
}

type UpdateFeedbackRequest struct {
	Status     *string `json:"status,omitempty"`
	AdminNotes *string `json:"admin_notes,omitempty"`
	AssignedTo *string `json:"assigned_to,omitempty"`
	Priority   *int    `json:"priority,omitempty"`
}

func (r *UpdateFeedbackRequest) Validate() error {
	v := NewValidationError()
	if r.Status != nil && !feedbackStatuses[*r.Status] {
		v.Add("status", "invalid status")
	}
	if r.Priority != nil && (*r.Priority < 1 || *r.Priority > 5) {
		v.Add("priority", "priority must be between 1 and 5")
	}
	return v.OrNil()
}

type FeedbackFilter struct {
	UserID     string // non-empty restricts to a single owner
	Type       string
	Status     string
	Priority   int
	AssignedTo string
}

// FeedbackStats summarizes feedback for the admin dashboard.
type FeedbackStats struct {
	Total    int            `json:"total"`
	ByType   map[string]int `json:"by_type"`
	ByStatus map[string]int `json:"by_status"`
}
