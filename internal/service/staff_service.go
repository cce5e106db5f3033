package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rhcare/clinic-api/internal/domain"
	"github.com/rhcare/clinic-api/internal/repo/postgres"
	"github.com/rhcare/clinic-api/pkg/events"
	"github.com/rhcare/clinic-api/pkg/logger"
)

type StaffService interface {
	Get(ctx context.Context, id string) (*domain.User, error)
	UpdateOwnProfile(ctx context.Context, user *domain.User, req *domain.UpdateProfileRequest) (*domain.User, error)
	ListStaff(ctx context.Context, requester *domain.User) ([]domain.User, error)
	GetStaff(ctx context.Context, requester *domain.User, id string) (*domain.User, error)
	UpdateStaff(ctx context.Context, requester *domain.User, id string, req *domain.UpdateStaffRequest) (*domain.User, error)
	SetStaffStatus(ctx context.Context, requester *domain.User, id, status string) (*domain.User, error)
	DeleteStaff(ctx context.Context, requester *domain.User, id string) error
	DashboardStats(ctx context.Context, requester *domain.User) (map[string]int, error)
}

type staffService struct {
	users        postgres.UsersRepo
	appointments postgres.AppointmentsRepo
	feedback     postgres.FeedbackRepo
	eventBus     events.Publisher
}

func NewStaffService(
	users postgres.UsersRepo,
	appointments postgres.AppointmentsRepo,
	feedback postgres.FeedbackRepo,
	eventBus events.Publisher,
) StaffService {
	return &staffService{
		users:        users,
		appointments: appointments,
		feedback:     feedback,
		eventBus:     eventBus,
	}
}

func (s *staffService) Get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (s *staffService) UpdateOwnProfile(ctx context.Context, user *domain.User, req *domain.UpdateProfileRequest) (*domain.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.Name != nil || req.Phone != nil {
		if err := s.users.UpdateUserFields(ctx, user.ID, req.Name, req.Phone, nil, nil); err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	}
	if req.FirstName != nil || req.LastName != nil || req.JobTitle != nil || req.DepartmentUnit != nil {
		if err := s.users.UpdateProfileFields(ctx, user.ID, req.FirstName, req.LastName, req.JobTitle, req.DepartmentUnit); err != nil {
			return nil, fmt.Errorf("failed to update profile: %w", err)
		}
	}
	return s.Get(ctx, user.ID)
}

func (s *staffService) ListStaff(ctx context.Context, requester *domain.User) ([]domain.User, error) {
	if !requester.IsAdmin() {
		return nil, domain.ErrUnauthorized
	}
	staff, err := s.users.ListStaff(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	return staff, nil
}

func (s *staffService) GetStaff(ctx context.Context, requester *domain.User, id string) (*domain.User, error) {
	if !requester.IsAdmin() {
		return nil, domain.ErrUnauthorized
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.IsStaffRole(user.Role) {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (s *staffService) UpdateStaff(ctx context.Context, requester *domain.User, id string, req *domain.UpdateStaffRequest) (*domain.User, error) {
	if !requester.IsAdmin() {
		return nil, domain.ErrUnauthorized
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.GetStaff(ctx, requester, id); err != nil {
		return nil, err
	}

	if err := s.users.UpdateUserFields(ctx, id, req.Name, req.Phone, req.Role, nil); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if req.FirstName != nil || req.LastName != nil || req.JobTitle != nil || req.DepartmentUnit != nil {
		if err := s.users.UpdateProfileFields(ctx, id, req.FirstName, req.LastName, req.JobTitle, req.DepartmentUnit); err != nil {
			return nil, fmt.Errorf("failed to update profile: %w", err)
		}
	}
	// Status changes go through the guarded path so a blanket update cannot
	// deactivate the last admin.
	if req.Status != nil {
		return s.SetStaffStatus(ctx, requester, id, *req.Status)
	}
	return s.Get(ctx, id)
}

func (s *staffService) SetStaffStatus(ctx context.Context, requester *domain.User, id, status string) (*domain.User, error) {
	if !requester.IsAdmin() {
		return nil, domain.ErrUnauthorized
	}

	if err := s.users.SetStatus(ctx, id, status); err != nil {
		return nil, err
	}

	if status == domain.StatusInactive {
		if err := s.eventBus.Publish(ctx, events.StaffDeactivated, events.StaffDeactivatedEvent{
			UserID: id,
			By:     requester.ID,
			At:     time.Now(),
		}); err != nil {
			logger.WarnContext(ctx, "Failed to publish deactivation event", "error", err, "target", id)
		}
	}

	return s.Get(ctx, id)
}

func (s *staffService) DeleteStaff(ctx context.Context, requester *domain.User, id string) error {
	if !requester.IsAdmin() {
		return domain.ErrUnauthorized
	}
	return s.users.Delete(ctx, id)
}

func (s *staffService) DashboardStats(ctx context.Context, requester *domain.User) (map[string]int, error) {
	if !requester.IsAdmin() {
		return nil, domain.ErrUnauthorized
	}

	totalStaff, err := s.users.CountStaff(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count staff: %w", err)
	}
	pendingAppointments, err := s.appointments.CountByStatus(ctx, domain.AppointmentPending)
	if err != nil {
		return nil, fmt.Errorf("failed to count appointments: %w", err)
	}
	openFeedback, err := s.feedback.CountOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count feedback: %w", err)
	}

	return map[string]int{
		"total_staff":          totalStaff,
		"pending_appointments": pendingAppointments,
		"open_feedback":        openFeedback,
	}, nil
}
