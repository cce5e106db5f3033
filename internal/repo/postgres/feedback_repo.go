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

type FeedbackRepo interface {
	Create(ctx context.Context, fb *domain.Feedback) error
	FindByID(ctx context.Context, id string) (*domain.Feedback, error)
	List(ctx context.Context, f domain.FeedbackFilter) ([]domain.Feedback, error)
	Update(ctx context.Context, id string, status, adminNotes, assignedTo *string, priority *int) (*domain.Feedback, error)
	Stats(ctx context.Context) (*domain.FeedbackStats, error)
	CountOpen(ctx context.Context) (int, error)
}

type FeedbackRepoImpl struct{ pool *pgxpool.Pool }

func NewFeedbackRepo(pool *pgxpool.Pool) *FeedbackRepoImpl { return &FeedbackRepoImpl{pool: pool} }

const feedbackColumns = `id, user_id, type, title, content, priority, anonymous, status, admin_notes, assigned_to, created_at, updated_at`

func (r *FeedbackRepoImpl) Create(ctx context.Context, fb *domain.Feedback) error {
	const q = `
INSERT INTO feedback (id, user_id, type, title, content, priority, anonymous, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,'open')
RETURNING created_at, updated_at`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	fb.Status = domain.FeedbackOpen
	var userID *string
	if fb.UserID != "" {
		userID = &fb.UserID
	}
	return r.pool.QueryRow(ctx, q, fb.ID, userID, fb.Type, fb.Title, fb.Content, fb.Priority, fb.Anonymous).
		Scan(&fb.CreatedAt, &fb.UpdatedAt)
}

func (r *FeedbackRepoImpl) FindByID(ctx context.Context, id string) (*domain.Feedback, error) {
	const q = `SELECT ` + feedbackColumns + ` FROM feedback WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	fb, err := scanFeedback(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return fb, err
}

func (r *FeedbackRepoImpl) List(ctx context.Context, f domain.FeedbackFilter) ([]domain.Feedback, error) {
	q := `SELECT ` + feedbackColumns + ` FROM feedback WHERE 1=1`
	args := []any{}
	if f.UserID != "" {
		args = append(args, f.UserID)
		q += ` AND user_id = $` + itoa(len(args))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		q += ` AND type = $` + itoa(len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		q += ` AND status = $` + itoa(len(args))
	}
	if f.Priority != 0 {
		args = append(args, f.Priority)
		q += ` AND priority = $` + itoa(len(args))
	}
	if f.AssignedTo != "" {
		args = append(args, f.AssignedTo)
		q += ` AND assigned_to = $` + itoa(len(args))
	}
	q += ` ORDER BY created_at DESC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Feedback
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *fb)
	}
	return out, rows.Err()
}

func (r *FeedbackRepoImpl) Update(ctx context.Context, id string, status, adminNotes, assignedTo *string, priority *int) (*domain.Feedback, error) {
	const q = `
UPDATE feedback SET
  status      = COALESCE($2, status),
  admin_notes = COALESCE($3, admin_notes),
  assigned_to = COALESCE($4, assigned_to),
  priority    = COALESCE($5, priority),
  updated_at  = now()
WHERE id=$1
RETURNING ` + feedbackColumns
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	fb, err := scanFeedback(r.pool.QueryRow(ctx, q, id, status, adminNotes, assignedTo, priority))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return fb, err
}

func (r *FeedbackRepoImpl) Stats(ctx context.Context) (*domain.FeedbackStats, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	stats := &domain.FeedbackStats{
		ByType:   make(map[string]int),
		ByStatus: make(map[string]int),
	}
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM feedback`).Scan(&stats.Total); err != nil {
		return nil, err
	}

	if err := r.groupCount(ctx, `SELECT type, count(*) FROM feedback GROUP BY type`, stats.ByType); err != nil {
		return nil, err
	}
	if err := r.groupCount(ctx, `SELECT status, count(*) FROM feedback GROUP BY status`, stats.ByStatus); err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *FeedbackRepoImpl) groupCount(ctx context.Context, q string, into map[string]int) error {
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		into[key] = n
	}
	return rows.Err()
}

func (r *FeedbackRepoImpl) CountOpen(ctx context.Context) (int, error) {
	const q = `SELECT count(*) FROM feedback WHERE status='open'`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var n int
	err := r.pool.QueryRow(ctx, q).Scan(&n)
	return n, err
}

func scanFeedback(row pgx.Row) (*domain.Feedback, error) {
	var fb domain.Feedback
	var userID, adminNotes, assignedTo *string
	err := row.Scan(
		&fb.ID, &userID, &fb.Type, &fb.Title, &fb.Content, &fb.Priority, &fb.Anonymous, &fb.Status,
		&adminNotes, &assignedTo, &fb.CreatedAt, &fb.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	fb.UserID = deref(userID)
	fb.AdminNotes = deref(adminNotes)
	fb.AssignedTo = deref(assignedTo)
	return &fb, nil
}
