package domain

import (
	"strings"
	"time"
)

const (
	AppointmentPending   = "pending"
	AppointmentConfirmed = "confirmed"
	AppointmentCancelled = "cancelled"
	AppointmentCompleted = "completed"
)

const (
	AppointmentInPerson = "in_person"
	AppointmentOnline   = "online"
	AppointmentFollowUp = "follow_up"
)

var appointmentTypes = map[string]bool{
	AppointmentInPerson: true,
	AppointmentOnline:   true,
	AppointmentFollowUp: true,
}

var appointmentStatuses = map[string]bool{
	AppointmentPending:   true,
	AppointmentConfirmed: true,
	AppointmentCancelled: true,
	AppointmentCompleted: true,
}

type Patient struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone"`
	DOB       *time.Time `json:"dob,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type Appointment struct {
	ID               string    `json:"id"`
	PatientID        string    `json:"patient_id"`
	Patient          *Patient  `json:"patient,omitempty"`
	UnitService      string    `json:"unit_service"`
	ScheduledAt      time.Time `json:"datetime"`
	Type             string    `json:"type"`
	Notes            string    `json:"notes,omitempty"`
	ConfirmationCode string    `json:"confirmation_code"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type BookAppointmentRequest struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Email       string `json:"email,omitempty"`
	DOB         string `json:"dob,omitempty"` // YYYY-MM-DD
	UnitService string `json:"unit_service"`
	Datetime    string `json:"datetime"` // RFC 3339
	Type        string `json:"type"`
	Notes       string `json:"notes,omitempty"`
}

func (r *BookAppointmentRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.UnitService = strings.TrimSpace(r.UnitService)
}

func (r *BookAppointmentRequest) Validate() error {
	v := NewValidationError()
	if r.Name == "" {
		v.Add("name", "name is required")
	}
	if r.Phone == "" {
		v.Add("phone", "phone is required")
	} else if !isValidPhone(r.Phone) {
		v.Add("phone", "invalid phone format")
	}
	if r.Email != "" && !isValidEmail(r.Email) {
		v.Add("email", "invalid email format")
	}
	if r.DOB != "" {
		if _, err := time.Parse("2006-01-02", r.DOB); err != nil {
			v.Add("dob", "dob must be YYYY-MM-DD")
		}
	}
	if r.UnitService == "" {
		v.Add("unit_service", "unit_service is required")
	}
	if r.Datetime == "" {
		v.Add("datetime", "datetime is required")
	} else if _, err := time.Parse(time.RFC3339, r.Datetime); err != nil {
		v.Add("datetime", "datetime must be RFC 3339")
	}
	if !appointmentTypes[r.Type] {
		v.Add("type", "type must be one of in_person, online, follow_up")
	}
	return v.OrNil()
}

type UpdateAppointmentRequest struct {
	Status   *string `json:"status,omitempty"`
	Datetime *string `json:"datetime,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

func (r *UpdateAppointmentRequest) Validate() error {
	v := NewValidationError()
	if r.Status != nil && !appointmentStatuses[*r.Status] {
		v.Add("status", "invalid status")
	}
	if r.Datetime != nil {
		if _, err := time.Parse(time.RFC3339, *r.Datetime); err != nil {
			v.Add("datetime", "datetime must be RFC 3339")
		}
	}
	return v.OrNil()
}

// AppointmentFilter narrows staff appointment listings.
type AppointmentFilter struct {
	Status      string
	Date        string // YYYY-MM-DD
	UnitService string
	Search      string // matches confirmation code or patient name/phone/email
}
