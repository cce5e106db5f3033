package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/rhcare/clinic-api/internal/domain"
	"github.com/rhcare/clinic-api/internal/repo/postgres"
	"github.com/rhcare/clinic-api/pkg/events"
	"github.com/rhcare/clinic-api/pkg/logger"
)

type AppointmentService interface {
	Book(ctx context.Context, req *domain.BookAppointmentRequest) (*domain.Appointment, error)
	List(ctx context.Context, requester *domain.User, f domain.AppointmentFilter) ([]domain.Appointment, error)
	Update(ctx context.Context, requester *domain.User, id string, req *domain.UpdateAppointmentRequest) (*domain.Appointment, error)
}

type appointmentService struct {
	appointments postgres.AppointmentsRepo
	eventBus     events.Publisher
}

func NewAppointmentService(appointments postgres.AppointmentsRepo, eventBus events.Publisher) AppointmentService {
	return &appointmentService{appointments: appointments, eventBus: eventBus}
}

func (s *appointmentService) Book(ctx context.Context, req *domain.BookAppointmentRequest) (*domain.Appointment, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	scheduledAt, _ := time.Parse(time.RFC3339, req.Datetime)
	var dob *time.Time
	if req.DOB != "" {
		if d, err := time.Parse("2006-01-02", req.DOB); err == nil {
			dob = &d
		}
	}

	confirmation, err := newConfirmationCode(time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to generate confirmation code: %w", err)
	}

	appt, err := s.appointments.Book(ctx, postgres.BookAppointmentParams{
		PatientName:  req.Name,
		PatientPhone: req.Phone,
		PatientEmail: req.Email,
		PatientDOB:   dob,
		UnitService:  req.UnitService,
		ScheduledAt:  scheduledAt,
		Type:         req.Type,
		Notes:        req.Notes,
		Confirmation: confirmation,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to book appointment: %w", err)
	}

	if err := s.eventBus.Publish(ctx, events.AppointmentBooked, events.AppointmentBookedEvent{
		AppointmentID:    appt.ID,
		PatientID:        appt.PatientID,
		UnitService:      appt.UnitService,
		ScheduledAt:      appt.ScheduledAt,
		ConfirmationCode: appt.ConfirmationCode,
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish booking event", "error", err, "appointment_id", appt.ID)
	}

	return appt, nil
}

func (s *appointmentService) List(ctx context.Context, requester *domain.User, f domain.AppointmentFilter) ([]domain.Appointment, error) {
	if requester.Role != domain.RoleAdmin && requester.Role != domain.RoleStaff {
		return nil, domain.ErrUnauthorized
	}
	appts, err := s.appointments.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appts, nil
}

func (s *appointmentService) Update(ctx context.Context, requester *domain.User, id string, req *domain.UpdateAppointmentRequest) (*domain.Appointment, error) {
	if !requester.IsAdmin() {
		return nil, domain.ErrUnauthorized
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var scheduledAt *time.Time
	if req.Datetime != nil {
		if d, err := time.Parse(time.RFC3339, *req.Datetime); err == nil {
			scheduledAt = &d
		}
	}

	return s.appointments.Update(ctx, id, req.Status, req.Notes, scheduledAt)
}

const confirmationAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// newConfirmationCode builds codes like RHC-20260831-X7KQ2M.
func newConfirmationCode(now time.Time) (string, error) {
	suffix := make([]byte, 6)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(confirmationAlphabet))))
		if err != nil {
			return "", err
		}
		suffix[i] = confirmationAlphabet[n.Int64()]
	}
	return fmt.Sprintf("RHC-%s-%s", now.Format("20060102"), suffix), nil
}
