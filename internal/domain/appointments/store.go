package appointments

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrConflict = errors.New("appointment overlaps an existing booking for this staff member")

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const appointmentColumns = `
  id, tenant_id, staff_id, COALESCE(contact_id::text, ''), title, COALESCE(notes, ''),
  starts_at, ends_at, status, created_at, updated_at`

func scanAppointment(row pgx.Row) (Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.TenantID, &a.StaffID, &a.ContactID, &a.Title, &a.Notes,
		&a.StartsAt, &a.EndsAt, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// ListRange returns a tenant's appointments intersecting [from, to).
func (s *Store) ListRange(ctx context.Context, tenantID string, from, to time.Time) ([]Appointment, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+appointmentColumns+`
    FROM appointments
    WHERE tenant_id = $1 AND starts_at < $3 AND ends_at > $2
    ORDER BY starts_at
  `, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appointments []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, a)
	}
	return appointments, rows.Err()
}

func (s *Store) Get(ctx context.Context, tenantID, appointmentID string) (Appointment, error) {
	return scanAppointment(s.DB.QueryRow(ctx, `
    SELECT `+appointmentColumns+`
    FROM appointments
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, appointmentID))
}

// lockStaffSchedule serializes bookings per (tenant, staff) for the rest
// of the transaction. Without it two concurrent transactions under READ
// COMMITTED would each count zero clashes and both insert.
func lockStaffSchedule(ctx context.Context, tx pgx.Tx, tenantID, staffID string) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1 || '/' || $2, 0))`, tenantID, staffID)
	return err
}

// overlapViolation reports whether err is the appointments exclusion
// constraint rejecting an overlapping booking.
func overlapViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

// Create books an appointment, rejecting any overlap with an existing
// booked appointment for the same staff member. An advisory lock
// serializes the check against concurrent bookings; the table's
// exclusion constraint is the backstop.
func (s *Store) Create(ctx context.Context, tenantID string, a Appointment) (string, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	if err := lockStaffSchedule(ctx, tx, tenantID, a.StaffID); err != nil {
		return "", err
	}

	var clashes int
	err = tx.QueryRow(ctx, `
    SELECT COUNT(1) FROM appointments
    WHERE tenant_id = $1 AND staff_id = $2 AND status = 'booked'
      AND starts_at < $4 AND ends_at > $3
  `, tenantID, a.StaffID, a.StartsAt, a.EndsAt).Scan(&clashes)
	if err != nil {
		return "", err
	}
	if clashes > 0 {
		return "", ErrConflict
	}

	var id string
	err = tx.QueryRow(ctx, `
    INSERT INTO appointments (tenant_id, staff_id, contact_id, title, notes, starts_at, ends_at, status)
    VALUES ($1, $2, NULLIF($3, '')::uuid, $4, NULLIF($5, ''), $6, $7, 'booked')
    RETURNING id
  `, tenantID, a.StaffID, a.ContactID, a.Title, a.Notes, a.StartsAt, a.EndsAt).Scan(&id)
	if err != nil {
		if overlapViolation(err) {
			return "", ErrConflict
		}
		return "", err
	}
	return id, tx.Commit(ctx)
}

// Reschedule moves a booked appointment, applying the same overlap check
// against the staff member's other bookings.
func (s *Store) Reschedule(ctx context.Context, tenantID, appointmentID string, startsAt, endsAt time.Time) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var staffID string
	err = tx.QueryRow(ctx, `
    SELECT staff_id FROM appointments
    WHERE tenant_id = $1 AND id = $2 AND status = 'booked'
  `, tenantID, appointmentID).Scan(&staffID)
	if err != nil {
		return err
	}

	if err := lockStaffSchedule(ctx, tx, tenantID, staffID); err != nil {
		return err
	}

	var clashes int
	err = tx.QueryRow(ctx, `
    SELECT COUNT(1) FROM appointments
    WHERE tenant_id = $1 AND staff_id = $2 AND status = 'booked' AND id <> $3
      AND starts_at < $5 AND ends_at > $4
  `, tenantID, staffID, appointmentID, startsAt, endsAt).Scan(&clashes)
	if err != nil {
		return err
	}
	if clashes > 0 {
		return ErrConflict
	}

	_, err = tx.Exec(ctx, `
    UPDATE appointments SET starts_at = $1, ends_at = $2, updated_at = now()
    WHERE tenant_id = $3 AND id = $4
  `, startsAt, endsAt, tenantID, appointmentID)
	if err != nil {
		if overlapViolation(err) {
			return ErrConflict
		}
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) Cancel(ctx context.Context, tenantID, appointmentID string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE appointments SET status = 'cancelled', updated_at = now()
    WHERE tenant_id = $1 AND id = $2 AND status = 'booked'
  `, tenantID, appointmentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
