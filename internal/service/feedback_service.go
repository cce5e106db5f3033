package service

import (
	"context"
	"fmt"

	"github.com/rhcare/clinic-api/internal/domain"
	"github.com/rhcare/clinic-api/internal/repo/postgres"
	"github.com/rhcare/clinic-api/pkg/events"
	"github.com/rhcare/clinic-api/pkg/logger"
)

type FeedbackService interface {
	Submit(ctx context.Context, user *domain.User, req *domain.SubmitFeedbackRequest) (*domain.Feedback, error)
	List(ctx context.Context, requester *domain.User, f domain.FeedbackFilter) ([]domain.Feedback, error)
	Get(ctx context.Context, requester *domain.User, id string) (*domain.Feedback, error)
	Update(ctx context.Context, requester *domain.User, id string, req *domain.UpdateFeedbackRequest) (*domain.Feedback, error)
	Stats(ctx context.Context, requester *domain.User) (*domain.FeedbackStats, error)
}

type feedbackService struct {
	feedback postgres.FeedbackRepo
	eventBus events.Publisher
}

func NewFeedbackService(feedback postgres.FeedbackRepo, eventBus events.Publisher) FeedbackService {
	return &feedbackService{feedback: feedback, eventBus: eventBus}
}

func (s *feedbackService) Submit(ctx context.Context, user *domain.User, req *domain.SubmitFeedbackRequest) (*domain.Feedback, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	fb := &domain.Feedback{
		Type:      req.Type,
		Title:     req.Title,
		Content:   req.Content,
		Priority:  req.Priority,
		Anonymous: req.Anonymous,
	}
	if !req.Anonymous {
		fb.UserID = user.ID
	}

	if err := s.feedback.Create(ctx, fb); err != nil {
		return nil, fmt.Errorf("failed to create feedback: %w", err)
	}

	if err := s.eventBus.Publish(ctx, events.FeedbackSubmitted, events.FeedbackSubmittedEvent{
		FeedbackID: fb.ID,
		Type:       fb.Type,
		Priority:   fb.Priority,
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish feedback event", "error", err, "feedback_id", fb.ID)
	}

	return fb, nil
}

func (s *feedbackService) List(ctx context.Context, requester *domain.User, f domain.FeedbackFilter) ([]domain.Feedback, error) {
	// Non-admins only ever see their own feedback.
	if !requester.IsAdmin() {
		f.UserID = requester.ID
	}
	out, err := s.feedback.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return out, nil
}

func (s *feedbackService) Get(ctx context.Context, requester *domain.User, id string) (*domain.Feedback, error) {
	fb, err := s.feedback.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}
	if fb == nil {
		return nil, domain.ErrNotFound
	}
	if !requester.IsAdmin() && fb.UserID != requester.ID {
		return nil, domain.ErrUnauthorized
	}
	return fb, nil
}

func (s *feedbackService) Update(ctx context.Context, requester *domain.User, id string, req *domain.UpdateFeedbackRequest) (*domain.Feedback, error) {
	if !requester.IsAdmin() {
		return nil, domain.ErrUnauthorized
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.feedback.Update(ctx, id, req.Status, req.AdminNotes, req.AssignedTo, req.Priority)
}

func (s *feedbackService) Stats(ctx context.Context, requester *domain.User) (*domain.FeedbackStats, error) {
	if !requester.IsAdmin() {
		return nil, domain.ErrUnauthorized
	}
	return s.feedback.Stats(ctx)
}
