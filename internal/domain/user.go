package domain

import (
	"regexp"
	"strings"
	"time"
)

type User struct {
	ID           string        `json:"id"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	Name         string        `json:"name"`
	Phone        string        `json:"phone,omitempty"`
	Role         string        `json:"role"`
	Status       string        `json:"status"`
	Profile      *StaffProfile `json:"staff_profile,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

type StaffProfile struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	JobTitle       string    `json:"job_title"`
	DepartmentUnit string    `json:"department_unit"`
	StartDate      time.Time `json:"start_date"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Staff roles. Patient is the bare end-user role; "staff" listings exclude it.
const (
	RoleStaff   = "staff"
	RoleAdmin   = "admin"
	RoleHR      = "hr"
	RolePayroll = "payroll"
	RolePatient = "patient"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

var staffRoles = map[string]bool{
	RoleStaff:   true,
	RoleAdmin:   true,
	RoleHR:      true,
	RolePayroll: true,
}

func IsStaffRole(role string) bool {
	return staffRoles[role]
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// UserInfo is the credential without sensitive fields, as returned by the API.
type UserInfo struct {
	ID      string        `json:"id"`
	Email   string        `json:"email"`
	Name    string        `json:"name"`
	Phone   string        `json:"phone,omitempty"`
	Role    string        `json:"role"`
	Status  string        `json:"status"`
	Profile *StaffProfile `json:"staff_profile,omitempty"`
}

func (u *User) ToUserInfo() *UserInfo {
	return &UserInfo{
		ID:      u.ID,
		Email:   u.Email,
		Name:    u.Name,
		Phone:   u.Phone,
		Role:    u.Role,
		Status:  u.Status,
		Profile: u.Profile,
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *LoginRequest) Validate() error {
	v := NewValidationError()
	if r.Email == "" {
		v.Add("email", "email is required")
	} else if !isValidEmail(r.Email) {
		v.Add("email", "invalid email format")
	}
	if r.Password == "" {
		v.Add("password", "password is required")
	}
	return v.OrNil()
}

type VerifyMFARequest struct {
	UserID string `json:"user_id"`
	Code   string `json:"code"`
}

func (r *VerifyMFARequest) Validate() error {
	v := NewValidationError()
	if r.UserID == "" {
		v.Add("user_id", "user_id is required")
	}
	if len(r.Code) != 6 {
		v.Add("code", "code must be 6 digits")
	}
	return v.OrNil()
}

type BootstrapAdminRequest struct {
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	Phone                string `json:"phone,omitempty"`
	Name                 string `json:"name,omitempty"`
}

func (r *BootstrapAdminRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
}

func (r *BootstrapAdminRequest) Validate() error {
	v := NewValidationError()
	if r.Email == "" {
		v.Add("email", "email is required")
	} else if !isValidEmail(r.Email) {
		v.Add("email", "invalid email format")
	}
	validatePassword(v, r.Password, r.PasswordConfirmation)
	if r.Phone != "" && !isValidPhone(r.Phone) {
		v.Add("phone", "invalid phone format")
	}
	return v.OrNil()
}

type UpdateProfileRequest struct {
	Name           *string `json:"name,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	FirstName      *string `json:"first_name,omitempty"`
	LastName       *string `json:"last_name,omitempty"`
	JobTitle       *string `json:"job_title,omitempty"`
	DepartmentUnit *string `json:"department_unit,omitempty"`
}

func (r *UpdateProfileRequest) Validate() error {
	v := NewValidationError()
	if r.Phone != nil && !isValidPhone(*r.Phone) {
		v.Add("phone", "invalid phone format")
	}
	return v.OrNil()
}

// UpdateStaffRequest is the admin-side variant: profile fields plus role/status.
type UpdateStaffRequest struct {
	UpdateProfileRequest
	Role   *string `json:"role,omitempty"`
	Status *string `json:"status,omitempty"`
}

func (r *UpdateStaffRequest) Validate() error {
	v := NewValidationError()
	if r.Phone != nil && !isValidPhone(*r.Phone) {
		v.Add("phone", "invalid phone format")
	}
	if r.Role != nil && !staffRoles[*r.Role] {
		v.Add("role", "invalid role")
	}
	if r.Status != nil && *r.Status != StatusActive && *r.Status != StatusInactive {
		v.Add("status", "invalid status")
	}
	return v.OrNil()
}

func validatePassword(v *ValidationError, password, confirmation string) {
	if password == "" {
		v.Add("password", "password is required")
	} else if len(password) < 8 {
		v.Add("password", "password must be at least 8 characters")
	} else if password != confirmation {
		v.Add("password", "password confirmation does not match")
	}
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
var phoneRegex = regexp.MustCompile(`^[\+]?[\d\s\-\(\)]+$`)

func isValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

func isValidPhone(phone string) bool {
	return phoneRegex.MatchString(phone) && len(phone) >= 7
}
