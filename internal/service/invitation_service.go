package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rhcare/clinic-api/internal/domain"
	"github.com/rhcare/clinic-api/internal/notify"
	"github.com/rhcare/clinic-api/internal/repo/postgres"
	"github.com/rhcare/clinic-api/pkg/config"
	"github.com/rhcare/clinic-api/pkg/events"
	"github.com/rhcare/clinic-api/pkg/logger"
)

type InvitationService interface {
	Invite(ctx context.Context, inviter *domain.User, req *domain.InviteRequest) (*domain.Invitation, error)
	Redeem(ctx context.Context, token string, req *domain.RedeemInvitationRequest) (*domain.User, error)
	List(ctx context.Context, requester *domain.User) ([]domain.Invitation, error)
	Revoke(ctx context.Context, requester *domain.User, id string) error
}

type invitationService struct {
	invitations postgres.InvitationsRepo
	users       postgres.UsersRepo
	mailer      notify.InviteMailer
	eventBus    events.Publisher
	config      *config.Config
}

func NewInvitationService(
	invitations postgres.InvitationsRepo,
	users postgres.UsersRepo,
	mailer notify.InviteMailer,
	eventBus events.Publisher,
	config *config.Config,
) InvitationService {
	return &invitationService{
		invitations: invitations,
		users:       users,
		mailer:      mailer,
		eventBus:    eventBus,
		config:      config,
	}
}

func (s *invitationService) Invite(ctx context.Context, inviter *domain.User, req *domain.InviteRequest) (*domain.Invitation, error) {
	if !inviter.IsAdmin() {
		return nil, domain.ErrUnauthorized
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrEmailTaken
	}

	token, err := newInviteToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invitation token: %w", err)
	}

	now := time.Now()
	inv := &domain.Invitation{
		Email:          req.Email,
		Token:          token,
		InvitedBy:      inviter.ID,
		Role:           req.Role,
		ExpiresAt:      now.Add(s.config.Auth.InvitationTTL),
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		JobTitle:       "Staff",
		DepartmentUnit: req.Department,
		StartDate:      req.ParsedStartDate(now),
	}
	if err := s.invitations.Create(ctx, inv); err != nil {
		return nil, err
	}

	acceptURL := fmt.Sprintf("%s/invitation/accept/%s", s.config.Email.InviteBaseURL, token)
	if err := s.mailer.SendInvitation(inv.Email, inv.FirstName, acceptURL, token); err != nil {
		// Delivery failure does not roll back the invitation; the token is in
		// the response for out-of-band hand-off.
		logger.ErrorContext(ctx, "Failed to send invitation email", "error", err, "invitation_id", inv.ID)
	}

	if err := s.eventBus.Publish(ctx, events.StaffInvited, events.StaffInvitedEvent{
		InvitationID: inv.ID,
		Email:        inv.Email,
		Role:         inv.Role,
		InvitedBy:    inv.InvitedBy,
		ExpiresAt:    inv.ExpiresAt,
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish invitation event", "error", err, "invitation_id", inv.ID)
	}

	return inv, nil
}

func (s *invitationService) Redeem(ctx context.Context, token string, req *domain.RedeemInvitationRequest) (*domain.User, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	passwordHash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.invitations.Redeem(ctx, token, passwordHash, req.Phone)
	if err != nil {
		return nil, err
	}

	if err := s.eventBus.Publish(ctx, events.StaffProvisioned, events.StaffProvisionedEvent{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		At:     time.Now(),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish provisioning event", "error", err, "user_id", user.ID)
	}

	return user, nil
}

func (s *invitationService) List(ctx context.Context, requester *domain.User) ([]domain.Invitation, error) {
	if !requester.IsAdmin() {
		return nil, domain.ErrUnauthorized
	}
	invs, err := s.invitations.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return invs, nil
}

func (s *invitationService) Revoke(ctx context.Context, requester *domain.User, id string) error {
	if !requester.IsAdmin() {
		return domain.ErrUnauthorized
	}
	return s.invitations.Revoke(ctx, id)
}

// newInviteToken returns 240 bits of randomness, hex encoded.
func newInviteToken() (string, error) {
	buf := make([]byte, 30)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
