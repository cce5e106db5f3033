package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rhcare/clinic-api/internal/domain"
)

type InvitationsRepo interface {
	Create(ctx context.Context, inv *domain.Invitation) error
	FindByID(ctx context.Context, id string) (*domain.Invitation, error)
	List(ctx context.Context) ([]domain.Invitation, error)
	Revoke(ctx context.Context, id string) error
	// Redeem provisions a credential and profile from a pending, unexpired
	// invitation and marks it accepted, all in one transaction.
	Redeem(ctx context.Context, token, passwordHash, phone string) (*domain.User, error)
}

type InvitationsRepoImpl struct{ pool *pgxpool.Pool }

func NewInvitationsRepo(pool *pgxpool.Pool) *InvitationsRepoImpl {
	return &InvitationsRepoImpl{pool: pool}
}

const invitationColumns = `id, email, token, invited_by, role, status, expires_at,
first_name, last_name, job_title, department_unit, start_date, created_at, updated_at`

func (r *InvitationsRepoImpl) Create(ctx context.Context, inv *domain.Invitation) error {
	const q = `
INSERT INTO invitations (id, email, token, invited_by, role, status, expires_at,
                         first_name, last_name, job_title, department_unit, start_date)
VALUES ($1,$2,$3,$4,$5,'pending',$6,$7,$8,$9,$10,$11)
RETURNING created_at, updated_at`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	inv.Status = domain.InvitationPending
	err := r.pool.QueryRow(ctx, q,
		inv.ID, inv.Email, inv.Token, inv.InvitedBy, inv.Role, inv.ExpiresAt,
		inv.FirstName, inv.LastName, inv.JobTitle, inv.DepartmentUnit, inv.StartDate,
	).Scan(&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		// Partial unique index on (email) WHERE status='pending' backs the
		// one-pending-invitation-per-email rule.
		if isUniqueViolation(err) {
			return domain.ErrDuplicateInvitation
		}
		return err
	}
	return nil
}

func (r *InvitationsRepoImpl) FindByID(ctx context.Context, id string) (*domain.Invitation, error) {
	const q = `SELECT ` + invitationColumns + ` FROM invitations WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	inv, err := scanInvitation(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return inv, err
}

func (r *InvitationsRepoImpl) List(ctx context.Context) ([]domain.Invitation, error) {
	const q = `SELECT ` + invitationColumns + ` FROM invitations ORDER BY created_at DESC`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

func (r *InvitationsRepoImpl) Revoke(ctx context.Context, id string) error {
	const q = `UPDATE invitations SET status='revoked', updated_at=now() WHERE id=$1 AND status='pending'`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *InvitationsRepoImpl) Redeem(ctx context.Context, token, passwordHash, phone string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var user domain.User
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		// Lock the invitation row so two redeemers of the same token cannot
		// both provision an account.
		const sel = `
SELECT id, email, role, first_name, last_name, job_title, department_unit, start_date
FROM invitations
WHERE token=$1 AND status='pending' AND expires_at > now()
FOR UPDATE`
		var (
			invID, email, role               string
			firstName, lastName, title, dept string
			startDate                        time.Time
		)
		err := tx.QueryRow(ctx, sel, token).Scan(
			&invID, &email, &role, &firstName, &lastName, &title, &dept, &startDate,
		)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrInvalidOrExpiredToken
		}
		if err != nil {
			return err
		}

		const insUser = `
INSERT INTO users (id, email, password_hash, name, phone, role, status)
VALUES ($1,$2,$3,$4,$5,$6,'active')
RETURNING id, email, password_hash, name, phone, role, status, created_at, updated_at`
		err = tx.QueryRow(ctx, insUser, uuid.NewString(), email, passwordHash, firstName, phone, role).Scan(
			&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.Phone, &user.Role, &user.Status,
			&user.CreatedAt, &user.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrEmailTaken
			}
			return err
		}

		const insProfile = `
INSERT INTO staff_profiles (id, user_id, first_name, last_name, job_title, department_unit, start_date)
VALUES ($1,$2,$3,$4,$5,$6,$7)`
		if _, err := tx.Exec(ctx, insProfile, uuid.NewString(), user.ID, firstName, lastName, title, dept, startDate); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `UPDATE invitations SET status='accepted', updated_at=now() WHERE id=$1`, invID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func scanInvitation(row pgx.Row) (*domain.Invitation, error) {
	var inv domain.Invitation
	err := row.Scan(
		&inv.ID, &inv.Email, &inv.Token, &inv.InvitedBy, &inv.Role, &inv.Status, &inv.ExpiresAt,
		&inv.FirstName, &inv.LastName, &inv.JobTitle, &inv.DepartmentUnit, &inv.StartDate,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
