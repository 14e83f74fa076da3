package opstore

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// ClassStatus mirrors the status column's allowed values (spec.md §3).
type ClassStatus string

const (
	ClassStatusScheduled ClassStatus = "scheduled"
	ClassStatusEnded     ClassStatus = "ended"
	ClassStatusCancelled ClassStatus = "cancelled"
)

// Class is the operational store's row for a single class meeting.
type Class struct {
	ClassID      string
	Status       ClassStatus
	MeetingStart time.Time
	MeetingEnd   time.Time
	ZoomID       string
	StudentID    string
	TeacherID    string
	AITriggered  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ListEndedUndispatched returns up to limit classes that have ended but have
// not yet been dispatched to the webhook (spec.md §4.1 step 1: "select
// classes with status=ended and ai_triggered=false").
func (s *Store) ListEndedUndispatched(ctx context.Context, limit int) ([]Class, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT class_id, status, meeting_start, meeting_end, zoom_id,
		       student_id, teacher_id, ai_triggered, created_at, updated_at
		FROM classes
		WHERE status = 'ended' AND ai_triggered = FALSE
		ORDER BY meeting_end ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Class
	for rows.Next() {
		var c Class
		if err := rows.Scan(&c.ClassID, &c.Status, &c.MeetingStart, &c.MeetingEnd,
			&c.ZoomID, &c.StudentID, &c.TeacherID, &c.AITriggered,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MarkDispatched flips ai_triggered to true via a conditional UPDATE, the
// compare-and-set that gives the Class Monitor exactly-once dispatch
// (spec.md §4.1 step 3, §9 "exactly-once via CAS not distributed locks").
// A zero rows-affected result means another monitor instance already won
// the race, surfaced as ErrAlreadyDispatched so the caller does not count
// the class as dispatched by itself. The Class Monitor calls this only after
// its own webhook call succeeded; the receiver relies on the Idempotency-Key
// header to recognize such a repeated delivery.
func (s *Store) MarkDispatched(ctx context.Context, classID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE classes
		SET ai_triggered = TRUE, updated_at = now()
		WHERE class_id = $1 AND ai_triggered = FALSE
	`, classID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyDispatched
	}
	return nil
}

// GetClass fetches a single class by ID, used by the Trigger & Read HTTP
// surface's status lookups.
func (s *Store) GetClass(ctx context.Context, classID string) (Class, error) {
	var c Class
	err := s.pool.QueryRow(ctx, `
		SELECT class_id, status, meeting_start, meeting_end, zoom_id,
		       student_id, teacher_id, ai_triggered, created_at, updated_at
		FROM classes WHERE class_id = $1
	`, classID).Scan(&c.ClassID, &c.Status, &c.MeetingStart, &c.MeetingEnd,
		&c.ZoomID, &c.StudentID, &c.TeacherID, &c.AITriggered,
		&c.CreatedAt, &c.UpdatedAt)
	if err == pgx.ErrNoRows {
		return Class{}, ErrNotFound
	}
	return c, err
}

// TeacherEmail resolves a teacher's notification address, used by the
// Dispatch Client payload (spec.md §4.2).
func (s *Store) TeacherEmail(ctx context.Context, teacherID string) (string, error) {
	var email string
	err := s.pool.QueryRow(ctx, `SELECT email FROM users WHERE user_id = $1`, teacherID).Scan(&email)
	if err == pgx.ErrNoRows {
		return "", ErrNotFound
	}
	return email, err
}
