package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rhcare/clinic-api/internal/domain"
	"github.com/rhcare/clinic-api/internal/service"
	"github.com/rhcare/clinic-api/pkg/events"
)

func validFeedback() *domain.SubmitFeedbackRequest {
	return &domain.SubmitFeedbackRequest{
		Type:    "suggestion",
		Title:   "Longer lunch breaks",
		Content: "The cafeteria queue eats half the break.",
	}
}

func TestSubmitFeedback(t *testing.T) {
	svc := service.NewFeedbackService(newMockFeedbackRepo(), events.NoopBus{})
	ctx := context.Background()
	staff := &domain.User{ID: "s1", Role: domain.RoleStaff}

	fb, err := svc.Submit(ctx, staff, validFeedback())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if fb.Status != domain.FeedbackOpen {
		t.Errorf("status = %q, want open", fb.Status)
	}
	if fb.Priority != 1 {
		t.Errorf("priority = %d, want default 1", fb.Priority)
	}
	if fb.UserID != staff.ID {
		t.Errorf("user id = %q, want %q", fb.UserID, staff.ID)
	}

	// Anonymous submissions are not linked to the author.
	anon := validFeedback()
	anon.Anonymous = true
	fb2, err := svc.Submit(ctx, staff, anon)
	if err != nil {
		t.Fatal(err)
	}
	if fb2.UserID != "" {
		t.Errorf("anonymous feedback should not carry a user id, got %q", fb2.UserID)
	}
}

func TestFeedbackVisibility(t *testing.T) {
	repo := newMockFeedbackRepo()
	svc := service.NewFeedbackService(repo, events.NoopBus{})
	ctx := context.Background()

	admin := &domain.User{ID: "a1", Role: domain.RoleAdmin}
	alice := &domain.User{ID: "u1", Role: domain.RoleStaff}
	bob := &domain.User{ID: "u2", Role: domain.RoleStaff}

	mine, err := svc.Submit(ctx, alice, validFeedback())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Submit(ctx, bob, validFeedback()); err != nil {
		t.Fatal(err)
	}

	// Staff listing is forced down to the caller's own items.
	items, err := svc.List(ctx, alice, domain.FeedbackFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ID != mine.ID {
		t.Errorf("staff list = %+v, want only own feedback", items)
	}

	// Admins see everything.
	all, err := svc.List(ctx, admin, domain.FeedbackFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("admin list len = %d, want 2", len(all))
	}

	// Direct reads follow the same rule.
	if _, err := svc.Get(ctx, bob, mine.ID); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("other user's feedback: got %v, want ErrUnauthorized", err)
	}
	if _, err := svc.Get(ctx, admin, mine.ID); err != nil {
		t.Errorf("admin get: %v", err)
	}
}

func TestFeedbackAdminOps(t *testing.T) {
	repo := newMockFeedbackRepo()
	svc := service.NewFeedbackService(repo, events.NoopBus{})
	ctx := context.Background()

	admin := &domain.User{ID: "a1", Role: domain.RoleAdmin}
	staff := &domain.User{ID: "u1", Role: domain.RoleStaff}

	fb, err := svc.Submit(ctx, staff, validFeedback())
	if err != nil {
		t.Fatal(err)
	}

	resolved := domain.FeedbackResolved
	if _, err := svc.Update(ctx, staff, fb.ID, &domain.UpdateFeedbackRequest{Status: &resolved}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("staff update: got %v, want ErrUnauthorized", err)
	}
	updated, err := svc.Update(ctx, admin, fb.ID, &domain.UpdateFeedbackRequest{Status: &resolved})
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if updated.Status != domain.FeedbackResolved {
		t.Errorf("status = %q, want resolved", updated.Status)
	}

	if _, err := svc.Stats(ctx, staff); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("staff stats: got %v, want ErrUnauthorized", err)
	}
	stats, err := svc.Stats(ctx, admin)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 1 || stats.ByStatus[domain.FeedbackResolved] != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
