package domain

import (
	"strings"
	"time"
)

// Invitation states. Accepted and revoked are terminal.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationRevoked  = "revoked"
)

type Invitation struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Token          string    `json:"-"`
	InvitedBy      string    `json:"invited_by"`
	Role           string    `json:"role"`
	Status         string    `json:"status"`
	ExpiresAt      time.Time `json:"expires_at"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	JobTitle       string    `json:"job_title"`
	DepartmentUnit string    `json:"department_unit"`
	StartDate      time.Time `json:"start_date"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (i *Invitation) IsPending(now time.Time) bool {
	return i.Status == InvitationPending && now.Before(i.ExpiresAt)
}

type InviteRequest struct {
	Email      string `json:"email"`
	Role       string `json:"role"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Department string `json:"department"`
	StartDate  string `json:"start_date,omitempty"` // YYYY-MM-DD
}

func (r *InviteRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Department = strings.TrimSpace(r.Department)
}

func (r *InviteRequest) Validate() error {
	v := NewValidationError()
	if r.Email == "" {
		v.Add("email", "email is required")
	} else if !isValidEmail(r.Email) {
		v.Add("email", "invalid email format")
	}
	if !staffRoles[r.Role] {
		v.Add("role", "role must be one of staff, admin, hr, payroll")
	}
	if r.FirstName == "" {
		v.Add("first_name", "first_name is required")
	}
	if r.LastName == "" {
		v.Add("last_name", "last_name is required")
	}
	if r.Department == "" {
		v.Add("department", "department is required")
	}
	if r.StartDate != "" {
		if _, err := time.Parse("2006-01-02", r.StartDate); err != nil {
			v.Add("start_date", "start_date must be YYYY-MM-DD")
		}
	}
	return v.OrNil()
}

// ParsedStartDate falls back to today when the field was omitted.
func (r *InviteRequest) ParsedStartDate(now time.Time) time.Time {
	if r.StartDate == "" {
		return now.Truncate(24 * time.Hour)
	}
	d, err := time.Parse("2006-01-02", r.StartDate)
	if err != nil {
		return now.Truncate(24 * time.Hour)
	}
	return d
}

type RedeemInvitationRequest struct {
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	Phone                string `json:"phone"`
}

func (r *RedeemInvitationRequest) Normalize() {
	r.Phone = strings.TrimSpace(r.Phone)
}

func (r *RedeemInvitationRequest) Validate() error {
	v := NewValidationError()
	validatePassword(v, r.Password, r.PasswordConfirmation)
	if r.Phone == "" {
		v.Add("phone", "phone is required")
	} else if !isValidPhone(r.Phone) {
		v.Add("phone", "invalid phone format")
	}
	return v.OrNil()
}
