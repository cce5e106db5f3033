package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rhcare/clinic-api/internal/domain"
	"github.com/rhcare/clinic-api/internal/notify"
	"github.com/rhcare/clinic-api/internal/repo/postgres"
	"github.com/rhcare/clinic-api/internal/session"
	"github.com/rhcare/clinic-api/pkg/config"
	"github.com/rhcare/clinic-api/pkg/events"
	"github.com/rhcare/clinic-api/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	BootstrapAdmin(ctx context.Context, req *domain.BootstrapAdminRequest) (*domain.User, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResult, error)
	VerifyMFA(ctx context.Context, req *domain.VerifyMFARequest) (*domain.SessionResult, error)
	Logout(ctx context.Context, token string) error
}

type authService struct {
	users    postgres.UsersRepo
	mfa      postgres.MFARepo
	sessions session.Store
	sms      notify.SMSSender
	eventBus events.Publisher
	config   *config.Config
	exempt   map[string]bool
}

func NewAuthService(
	users postgres.UsersRepo,
	mfa postgres.MFARepo,
	sessions session.Store,
	sms notify.SMSSender,
	eventBus events.Publisher,
	config *config.Config,
) AuthService {
	exempt := make(map[string]bool, len(config.Auth.MFAExemptEmails))
	for _, email := range config.Auth.MFAExemptEmails {
		exempt[email] = true
	}
	return &authService{
		users:    users,
		mfa:      mfa,
		sessions: sessions,
		sms:      sms,
		eventBus: eventBus,
		config:   config,
		exempt:   exempt,
	}
}

func (s *authService) BootstrapAdmin(ctx context.Context, req *domain.BootstrapAdminRequest) (*domain.User, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.users.AdminExists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing admin: %w", err)
	}
	if exists {
		return nil, domain.ErrAdminExists
	}

	passwordHash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin, err := s.users.Create(ctx, postgres.CreateUserParams{
		Email:        req.Email,
		PasswordHash: passwordHash,
		Name:         req.Name,
		Phone:        req.Phone,
		Role:         domain.RoleAdmin,
		Status:       domain.StatusActive,
	})
	if err != nil {
		return nil, err
	}

	if err := s.users.CreateProfile(ctx, postgres.CreateProfileParams{
		UserID:         admin.ID,
		FirstName:      admin.Name,
		DepartmentUnit: "Administration",
		StartDate:      time.Now().Truncate(24 * time.Hour),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to create bootstrap admin profile", "error", err, "user_id", admin.ID)
	}

	return admin, nil
}

func (s *authService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}

	valid, err := argon2id.ComparePasswordAndHash(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return nil, domain.ErrInvalidCredentials
	}

	if !user.IsActive() {
		return nil, domain.ErrAccountInactive
	}

	if s.exempt[user.Email] {
		token, err := s.sessions.Issue(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to issue session: %w", err)
		}
		s.publishLogin(ctx, user, true)
		return &domain.LoginResult{
			UserID: user.ID,
			Token:  token,
			User:   user.ToUserInfo(),
		}, nil
	}

	if user.Phone == "" {
		return nil, domain.ErrPhoneMissing
	}

	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate MFA code: %w", err)
	}

	codeHash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash MFA code: %w", err)
	}

	expiresAt := time.Now().Add(s.config.Auth.MFACodeTTL)
	if err := s.mfa.Create(ctx, user.ID, string(codeHash), expiresAt); err != nil {
		return nil, fmt.Errorf("failed to store MFA code: %w", err)
	}

	// Code delivery is mandatory for login; a user who never receives the
	// code cannot complete authentication.
	if err := s.sms.SendMFACode(user.Phone, code); err != nil {
		logger.ErrorContext(ctx, "Failed to send MFA code", "error", err, "user_id", user.ID)
		return nil, fmt.Errorf("%w: %w", domain.ErrCodeDelivery, err)
	}

	return &domain.LoginResult{
		UserID:      user.ID,
		MFARequired: true,
	}, nil
}

func (s *authService) VerifyMFA(ctx context.Context, req *domain.VerifyMFARequest) (*domain.SessionResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}

	ok, err := s.mfa.Consume(ctx, user.ID, req.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to verify MFA code: %w", err)
	}
	if !ok {
		return nil, domain.ErrInvalidCode
	}

	token, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}

	if err := s.eventBus.Publish(ctx, events.MFAVerified, events.MFAVerifiedEvent{
		UserID: user.ID,
		Email:  user.Email,
		At:     time.Now(),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish MFA event", "error", err, "user_id", user.ID)
	}
	s.publishLogin(ctx, user, false)

	return &domain.SessionResult{
		Token: token,
		User:  user.ToUserInfo(),
	}, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Revoke(ctx, token); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

func (s *authService) publishLogin(ctx context.Context, user *domain.User, exempt bool) {
	if err := s.eventBus.Publish(ctx, events.LoginSucceeded, events.LoginSucceededEvent{
		UserID:    user.ID,
		Email:     user.Email,
		MFAExempt: exempt,
		At:        time.Now(),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish login event", "error", err, "user_id", user.ID)
	}
}

// SweepExpiredMFACodes prunes stale one-time-code records every interval
// until ctx is cancelled. Run it in its own goroutine.
func SweepExpiredMFACodes(ctx context.Context, mfa postgres.MFARepo, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := mfa.DeleteExpired(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to prune MFA codes", "error", err)
				continue
			}
			if n > 0 {
				logger.InfoContext(ctx, "Pruned stale MFA codes", "deleted", n)
			}
		}
	}
}

// generateCode returns a uniform random 6-digit code, leading zeros kept.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
