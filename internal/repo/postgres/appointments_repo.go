package postgres

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rhcare/clinic-api/internal/domain"
)

type BookAppointmentParams struct {
	PatientName  string
	PatientPhone string
	PatientEmail string
	PatientDOB   *time.Time
	UnitService  string
	ScheduledAt  time.Time
	Type         string
	Notes        string
	Confirmation string
}

type AppointmentsRepo interface {
	// Book finds or creates the patient by phone and inserts the appointment
	// in one transaction.
	Book(ctx context.Context, p BookAppointmentParams) (*domain.Appointment, error)
	List(ctx context.Context, f domain.AppointmentFilter) ([]domain.Appointment, error)
	Update(ctx context.Context, id string, status, notes *string, scheduledAt *time.Time) (*domain.Appointment, error)
	CountByStatus(ctx context.Context, status string) (int, error)
}

type AppointmentsRepoImpl struct{ pool *pgxpool.Pool }

func NewAppointmentsRepo(pool *pgxpool.Pool) *AppointmentsRepoImpl {
	return &AppointmentsRepoImpl{pool: pool}
}

func (r *AppointmentsRepoImpl) Book(ctx context.Context, p BookAppointmentParams) (*domain.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var appt domain.Appointment
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		// Upsert keyed on phone so concurrent bookings for the same patient
		// converge on one row.
		const upsertPatient = `
INSERT INTO patients (id, name, email, phone, dob)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (phone) DO UPDATE SET name = EXCLUDED.name
RETURNING id`
		var patientID string
		err := tx.QueryRow(ctx, upsertPatient, uuid.NewString(), p.PatientName, p.PatientEmail, p.PatientPhone, p.PatientDOB).Scan(&patientID)
		if err != nil {
			return err
		}

		const ins = `
INSERT INTO appointments (id, patient_id, unit_service, datetime, type, notes, confirmation_code, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,'pending')
RETURNING id, patient_id, unit_service, datetime, type, notes, confirmation_code, status, created_at, updated_at`
		var notes *string
		if err := tx.QueryRow(ctx, ins, uuid.NewString(), patientID, p.UnitService, p.ScheduledAt, p.Type, p.Notes, p.Confirmation).Scan(
			&appt.ID, &appt.PatientID, &appt.UnitService, &appt.ScheduledAt, &appt.Type, &notes,
			&appt.ConfirmationCode, &appt.Status, &appt.CreatedAt, &appt.UpdatedAt,
		); err != nil {
			return err
		}
		appt.Notes = deref(notes)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func (r *AppointmentsRepoImpl) List(ctx context.Context, f domain.AppointmentFilter) ([]domain.Appointment, error) {
	q := `
SELECT a.id, a.patient_id, a.unit_service, a.datetime, a.type, a.notes, a.confirmation_code, a.status,
       a.created_at, a.updated_at,
       p.name, p.email, p.phone
FROM appointments a
JOIN patients p ON p.id = a.patient_id
WHERE 1=1`
	args := []any{}
	if f.Status != "" {
		args = append(args, f.Status)
		q += ` AND a.status = $` + itoa(len(args))
	}
	if f.Date != "" {
		args = append(args, f.Date)
		q += ` AND a.datetime::date = $` + itoa(len(args)) + `::date`
	}
	if f.UnitService != "" {
		args = append(args, "%"+f.UnitService+"%")
		q += ` AND a.unit_service ILIKE $` + itoa(len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := itoa(len(args))
		q += ` AND (a.confirmation_code ILIKE $` + n +
			` OR p.name ILIKE $` + n +
			` OR p.phone ILIKE $` + n +
			` OR p.email ILIKE $` + n + `)`
	}
	q += ` ORDER BY a.datetime DESC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Appointment
	for rows.Next() {
		var a domain.Appointment
		var notes, pEmail *string
		var patient domain.Patient
		if err := rows.Scan(
			&a.ID, &a.PatientID, &a.UnitService, &a.ScheduledAt, &a.Type, &notes, &a.ConfirmationCode, &a.Status,
			&a.CreatedAt, &a.UpdatedAt,
			&patient.Name, &pEmail, &patient.Phone,
		); err != nil {
			return nil, err
		}
		a.Notes = deref(notes)
		patient.ID = a.PatientID
		patient.Email = deref(pEmail)
		a.Patient = &patient
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AppointmentsRepoImpl) Update(ctx context.Context, id string, status, notes *string, scheduledAt *time.Time) (*domain.Appointment, error) {
	const q = `
UPDATE appointments SET
  status     = COALESCE($2, status),
  notes      = COALESCE($3, notes),
  datetime   = COALESCE($4, datetime),
  updated_at = now()
WHERE id=$1
RETURNING id, patient_id, unit_service, datetime, type, notes, confirmation_code, status, created_at, updated_at`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var a domain.Appointment
	var n *string
	err := r.pool.QueryRow(ctx, q, id, status, notes, scheduledAt).Scan(
		&a.ID, &a.PatientID, &a.UnitService, &a.ScheduledAt, &a.Type, &n, &a.ConfirmationCode, &a.Status,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Notes = deref(n)
	return &a, nil
}

func (r *AppointmentsRepoImpl) CountByStatus(ctx context.Context, status string) (int, error) {
	const q = `SELECT count(*) FROM appointments WHERE status=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var n int
	err := r.pool.QueryRow(ctx, q, status).Scan(&n)
	return n, err
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
