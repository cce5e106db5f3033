package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rhcare/clinic-api/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// NoopBus discards events. Used when NATS is disabled.
type NoopBus struct{}

func (NoopBus) Publish(ctx context.Context, subject string, data interface{}) error { return nil }
func (NoopBus) Close() error                                                        { return nil }

// Event subjects
const (
	LoginSucceeded    = "auth.login.succeeded"
	MFAVerified       = "auth.mfa.verified"
	StaffInvited      = "staff.invited"
	StaffProvisioned  = "staff.provisioned"
	StaffDeactivated  = "staff.deactivated"
	AppointmentBooked = "appointment.booked"
	FeedbackSubmitted = "feedback.submitted"
)

// Event payloads
type LoginSucceededEvent struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	MFAExempt bool      `json:"mfa_exempt"`
	At        time.Time `json:"at"`
}

type MFAVerifiedEvent struct {
	UserID string    `json:"user_id"`
	Email  string    `json:"email"`
	At     time.Time `json:"at"`
}

type StaffInvitedEvent struct {
	InvitationID string    `json:"invitation_id"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	InvitedBy    string    `json:"invited_by"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type StaffProvisionedEvent struct {
	UserID       string    `json:"user_id"`
	InvitationID string    `json:"invitation_id"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	At           time.Time `json:"at"`
}

type StaffDeactivatedEvent struct {
	UserID string    `json:"user_id"`
	By     string    `json:"by"`
	At     time.Time `json:"at"`
}

type AppointmentBookedEvent struct {
	AppointmentID    string    `json:"appointment_id"`
	PatientID        string    `json:"patient_id"`
	UnitService      string    `json:"unit_service"`
	ScheduledAt      time.Time `json:"scheduled_at"`
	ConfirmationCode string    `json:"confirmation_code"`
}

type FeedbackSubmittedEvent struct {
	FeedbackID string `json:"feedback_id"`
	Type       string `json:"type"`
	Priority   int    `json:"priority"`
}
