package domain

import (
	"testing"
	"time"
)

func TestLoginRequestNormalize(t *testing.T) {
	r := &LoginRequest{Email: "  Admin@Clinic.TEST  ", Password: "x"}
	r.Normalize()
	if r.Email != "admin@clinic.test" {
		t.Errorf("email = %q", r.Email)
	}
}

func TestBootstrapAdminRequestValidate(t *testing.T) {
	tests := []struct {
		name     string
		req      BootstrapAdminRequest
		badField string
	}{
		{"missing email", BootstrapAdminRequest{Password: "longenough", PasswordConfirmation: "longenough"}, "email"},
		{"bad email", BootstrapAdminRequest{Email: "nope", Password: "longenough", PasswordConfirmation: "longenough"}, "email"},
		{"short password", BootstrapAdminRequest{Email: "a@b.test", Password: "short", PasswordConfirmation: "short"}, "password"},
		{"mismatch", BootstrapAdminRequest{Email: "a@b.test", Password: "longenough", PasswordConfirmation: "different"}, "password"},
		{"bad phone", BootstrapAdminRequest{Email: "a@b.test", Password: "longenough", PasswordConfirmation: "longenough", Phone: "abc"}, "phone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			v, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("got %v, want ValidationError", err)
			}
			if _, found := v.Fields[tt.badField]; !found {
				t.Errorf("expected error on %q, got %v", tt.badField, v.Fields)
			}
		})
	}

	ok := BootstrapAdminRequest{
		Email:                "a@b.test",
		Password:             "longenough",
		PasswordConfirmation: "longenough",
		Phone:                "+1 555 000 1111",
	}
	if err := ok.Validate(); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}
}

func TestInviteRequestValidate(t *testing.T) {
	req := InviteRequest{
		Email:      "new@clinic.test",
		Role:       RoleStaff,
		FirstName:  "Jo",
		LastName:   "Reyes",
		Department: "ICU",
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	req.Role = "patient"
	err := req.Validate()
	v, ok := err.(*ValidationError)
	if !ok || v.Fields["role"] == "" {
		t.Errorf("patient role should be rejected, got %v", err)
	}
}

func TestInvitationIsPending(t *testing.T) {
	now := time.Now()
	inv := Invitation{Status: InvitationPending, ExpiresAt: now.Add(time.Hour)}
	if !inv.IsPending(now) {
		t.Error("live invitation reported not pending")
	}

	inv.ExpiresAt = now.Add(-time.Minute)
	if inv.IsPending(now) {
		t.Error("expired invitation reported pending")
	}

	inv.ExpiresAt = now.Add(time.Hour)
	inv.Status = InvitationRevoked
	if inv.IsPending(now) {
		t.Error("revoked invitation reported pending")
	}
}

func TestValidationErrorKeepsFirstMessage(t *testing.T) {
	v := NewValidationError()
	v.Add("email", "first")
	v.Add("email", "second")
	if v.Fields["email"] != "first" {
		t.Errorf("got %q, want the first message to win", v.Fields["email"])
	}
}
