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

type CreateUserParams struct {
	Email        string
	PasswordHash string
	Name         string
	Phone        string
	Role         string
	Status       string
}

type CreateProfileParams struct {
	UserID         string
	FirstName      string
	LastName       string
	JobTitle       string
	DepartmentUnit string
	StartDate      time.Time
}

type UsersRepo interface {
	Create(ctx context.Context, p CreateUserParams) (*domain.User, error)
	CreateProfile(ctx context.Context, p CreateProfileParams) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	AdminExists(ctx context.Context) (bool, error)
	ListStaff(ctx context.Context) ([]domain.User, error)
	UpdateUserFields(ctx context.Context, id string, name, phone, role, status *string) error
	UpdateProfileFields(ctx context.Context, userID string, firstName, lastName, jobTitle, departmentUnit *string) error
	SetStatus(ctx context.Context, id, status string) error
	Delete(ctx context.Context, id string) error
	CountStaff(ctx context.Context) (int, error)
}

type UsersRepoImpl struct{ pool *pgxpool.Pool }

func NewUsersRepo(pool *pgxpool.Pool) *UsersRepoImpl { return &UsersRepoImpl{pool: pool} }

const userColumns = `u.id, u.email, u.password_hash, u.name, u.phone, u.role, u.status, u.created_at, u.updated_at`

func (r *UsersRepoImpl) Create(ctx context.Context, p CreateUserParams) (*domain.User, error) {
	const q = `
INSERT INTO users (id, email, password_hash, name, phone, role, status)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id, email, password_hash, name, phone, role, status, created_at, updated_at`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var u domain.User
	err := r.pool.QueryRow(ctx, q, uuid.NewString(), p.Email, p.PasswordHash, p.Name, p.Phone, p.Role, p.Status).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Phone, &u.Role, &u.Status, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, err
	}
	return &u, nil
}

func (r *UsersRepoImpl) CreateProfile(ctx context.Context, p CreateProfileParams) error {
	const q = `
INSERT INTO staff_profiles (id, user_id, first_name, last_name, job_title, department_unit, start_date)
VALUES ($1,$2,$3,$4,$5,$6,$7)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.pool.Exec(ctx, q, uuid.NewString(), p.UserID, p.FirstName, p.LastName, p.JobTitle, p.DepartmentUnit, p.StartDate)
	return err
}

func (r *UsersRepoImpl) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users u WHERE u.email=$1`
	return r.findOne(ctx, q, email)
}

func (r *UsersRepoImpl) FindByID(ctx context.Context, id string) (*domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users u WHERE u.id=$1`
	u, err := r.findOne(ctx, q, id)
	if err != nil || u == nil {
		return u, err
	}
	profile, err := r.findProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Profile = profile
	return u, nil
}

func (r *UsersRepoImpl) findOne(ctx context.Context, q string, arg any) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var u domain.User
	err := r.pool.QueryRow(ctx, q, arg).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Phone, &u.Role, &u.Status, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UsersRepoImpl) findProfile(ctx context.Context, userID string) (*domain.StaffProfile, error) {
	const q = `
SELECT id, user_id, first_name, last_name, job_title, department_unit, start_date, created_at, updated_at
FROM staff_profiles WHERE user_id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var p domain.StaffProfile
	err := r.pool.QueryRow(ctx, q, userID).Scan(
		&p.ID, &p.UserID, &p.FirstName, &p.LastName, &p.JobTitle, &p.DepartmentUnit, &p.StartDate, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *UsersRepoImpl) AdminExists(ctx context.Context) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE role='admin')`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var exists bool
	err := r.pool.QueryRow(ctx, q).Scan(&exists)
	return exists, err
}

func (r *UsersRepoImpl) ListStaff(ctx context.Context) ([]domain.User, error) {
	const q = `
SELECT ` + userColumns + `,
       p.id, p.first_name, p.last_name, p.job_title, p.department_unit, p.start_date
FROM users u
LEFT JOIN staff_profiles p ON p.user_id = u.id
WHERE u.role <> 'patient'
ORDER BY u.created_at`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		var u domain.User
		var pid, first, last, title, dept *string
		var start *time.Time
		if err := rows.Scan(
			&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Phone, &u.Role, &u.Status, &u.CreatedAt, &u.UpdatedAt,
			&pid, &first, &last, &title, &dept, &start,
		); err != nil {
			return nil, err
		}
		if pid != nil {
			u.Profile = &domain.StaffProfile{
				ID:             *pid,
				UserID:         u.ID,
				FirstName:      deref(first),
				LastName:       deref(last),
				JobTitle:       deref(title),
				DepartmentUnit: deref(dept),
			}
			if start != nil {
				u.Profile.StartDate = *start
			}
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UsersRepoImpl) UpdateUserFields(ctx context.Context, id string, name, phone, role, status *string) error {
	const q = `
UPDATE users SET
  name   = COALESCE($2, name),
  phone  = COALESCE($3, phone),
  role   = COALESCE($4, role),
  status = COALESCE($5, status),
  updated_at = now()
WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	tag, err := r.pool.Exec(ctx, q, id, name, phone, role, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UsersRepoImpl) UpdateProfileFields(ctx context.Context, userID string, firstName, lastName, jobTitle, departmentUnit *string) error {
	const q = `
UPDATE staff_profiles SET
  first_name      = COALESCE($2, first_name),
  last_name       = COALESCE($3, last_name),
  job_title       = COALESCE($4, job_title),
  department_unit = COALESCE($5, department_unit),
  updated_at      = now()
WHERE user_id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.pool.Exec(ctx, q, userID, firstName, lastName, jobTitle, departmentUnit)
	return err
}

// SetStatus deactivates or activates a staff member. Deactivating the last
// active admin is refused inside a single transaction. The whole admin row
// set is locked before counting: with a row lock on just the target, two
// concurrent deactivations of two different admins would each count the
// other as still active and both commit, leaving zero active admins.
func (r *UsersRepoImpl) SetStatus(ctx context.Context, id, status string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		activeAdmins := 0
		if status == domain.StatusInactive {
			// Stable lock order so concurrent deactivations serialize here
			// rather than deadlock.
			_, active, err := lockAdminRows(ctx, tx)
			if err != nil {
				return err
			}
			activeAdmins = active
		}

		var role, current string
		err := tx.QueryRow(ctx, `SELECT role, status FROM users WHERE id=$1 AND role <> 'patient' FOR UPDATE`, id).Scan(&role, &current)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		if status == domain.StatusInactive && role == domain.RoleAdmin &&
			current == domain.StatusActive && activeAdmins <= 1 {
			return domain.ErrLastAdmin
		}
		_, err = tx.Exec(ctx, `UPDATE users SET status=$2, updated_at=now() WHERE id=$1`, id, status)
		return err
	})
}

// lockAdminRows takes row locks on every admin and counts the locked rows,
// active ones separately. Callers that might reduce the admin count must go
// through here before their own checks so the count cannot go stale
// mid-transaction.
func lockAdminRows(ctx context.Context, tx pgx.Tx) (total, active int, err error) {
	rows, err := tx.Query(ctx, `SELECT status FROM users WHERE role='admin' ORDER BY id FOR UPDATE`)
	if err != nil {
		return 0, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return 0, 0, err
		}
		total++
		if s == domain.StatusActive {
			active++
		}
	}
	return total, active, rows.Err()
}

// Delete removes a staff member, refusing to delete the last admin. The
// admin set is locked up front for the same reason as in SetStatus.
func (r *UsersRepoImpl) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		admins, _, err := lockAdminRows(ctx, tx)
		if err != nil {
			return err
		}

		var role string
		err = tx.QueryRow(ctx, `SELECT role FROM users WHERE id=$1 AND role <> 'patient' FOR UPDATE`, id).Scan(&role)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		if role == domain.RoleAdmin && admins <= 1 {
			return domain.ErrLastAdmin
		}
		_, err = tx.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
		return err
	})
}

func (r *UsersRepoImpl) CountStaff(ctx context.Context) (int, error) {
	const q = `SELECT count(*) FROM users WHERE role <> 'patient'`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var n int
	err := r.pool.QueryRow(ctx, q).Scan(&n)
	return n, err
}

func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
