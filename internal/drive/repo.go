package drive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository persists can-drive data. Queries are written with ? placeholders
// and rebound for the active driver.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a repo.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// inTx runs fn in a transaction, committing only when fn returns nil.
func (r *Repository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func get(ctx context.Context, q sqlx.ExtContext, dest any, query string, args ...any) error {
	err := sqlx.GetContext(ctx, q, dest, q.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func selectAll(ctx context.Context, q sqlx.ExtContext, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, q, dest, q.Rebind(query), args...)
}

func exec(ctx context.Context, q sqlx.ExtContext, query string, args ...any) (int64, error) {
	res, err := q.ExecContext(ctx, q.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func newID() string {
	return uuid.NewString()
}

// --- events

// ListEvents returns all events, newest first.
func (r *Repository) ListEvents(ctx context.Context) ([]Event, error) {
	events := []Event{}
	err := selectAll(ctx, r.db, &events, `
		SELECT id, name, school_year, active, start_date, end_date, created_at
		FROM events ORDER BY created_at DESC, id`)
	return events, err
}

// GetEvent returns a single event by id.
func (r *Repository) GetEvent(ctx context.Context, id string) (Event, error) {
	var evt Event
	err := get(ctx, r.db, &evt, `
		SELECT id, name, school_year, active, start_date, end_date, created_at
		FROM events WHERE id = ?`, id)
	return evt, err
}

// ActiveEvent returns the active event.
func (r *Repository) ActiveEvent(ctx context.Context) (Event, error) {
	var evt Event
	err := get(ctx, r.db, &evt, `
		SELECT id, name, school_year, active, start_date, end_date, created_at
		FROM events WHERE active = ? ORDER BY created_at DESC LIMIT 1`, true)
	return evt, err
}

// InsertEvent writes a new event; when active it deactivates the others.
func (r *Repository) InsertEvent(ctx context.Context, evt Event) (Event, error) {
	if evt.ID == "" {
		evt.ID = newID()
	}
	evt.CreatedAt = now()
	if evt.StartDate.IsZero() {
		evt.StartDate = evt.CreatedAt
	}
	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		if evt.Active {
			if _, err := exec(ctx, tx, `UPDATE events SET active = ? WHERE active = ?`, false, true); err != nil {
				return err
			}
		}
		_, err := exec(ctx, tx, `
			INSERT INTO events (id, name, school_year, active, start_date, end_date, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			evt.ID, evt.Name, evt.SchoolYear, evt.Active, evt.StartDate, evt.EndDate, evt.CreatedAt)
		return err
	})
	if err != nil {
		return Event{}, fmt.Errorf("insert event: %w", err)
	}
	return evt, nil
}

// ActivateEvent makes id the single active event.
func (r *Repository) ActivateEvent(ctx context.Context, id string) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		var exists int
		if err := get(ctx, tx, &exists, `SELECT COUNT(*) FROM events WHERE id = ?`, id); err != nil {
			return err
		}
		if exists == 0 {
			return ErrNotFound
		}
		if _, err := exec(ctx, tx, `UPDATE events SET active = ? WHERE id <> ?`, false, id); err != nil {
			return err
		}
		_, err := exec(ctx, tx, `UPDATE events SET active = ? WHERE id = ?`, true, id)
		return err
	})
}

// CountEvents returns the number of events.
func (r *Repository) CountEvents(ctx context.Context) (int, error) {
	var n int
	err := get(ctx, r.db, &n, `SELECT COUNT(*) FROM events`)
	return n, err
}

// ResetEvent removes everything owned by the event, keeping the event row.
func (r *Repository) ResetEvent(ctx context.Context, eventID string) (ResetResult, error) {
	var res ResetResult
	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		if _, err = exec(ctx, tx, `DELETE FROM street_claims WHERE event_id = ?`, eventID); err != nil {
			return err
		}
		if res.Reservations, err = exec(ctx, tx, `DELETE FROM reservations WHERE event_id = ?`, eventID); err != nil {
			return err
		}
		if res.Donations, err = exec(ctx, tx, `DELETE FROM donations WHERE event_id = ?`, eventID); err != nil {
			return err
		}
		if res.Milestones, err = exec(ctx, tx, `DELETE FROM class_milestones WHERE event_id = ?`, eventID); err != nil {
			return err
		}
		if res.Students, err = exec(ctx, tx, `DELETE FROM students WHERE event_id = ?`, eventID); err != nil {
			return err
		}
		res.Teachers, err = exec(ctx, tx, `DELETE FROM teachers WHERE event_id = ?`, eventID)
		return err
	})
	if err != nil {
		return ResetResult{}, fmt.Errorf("reset event: %w", err)
	}
	return res, nil
}

// --- admins

// GetAdminByUsername looks up an admin.
func (r *Repository) GetAdminByUsername(ctx context.Context, username string) (Admin, error) {
	var a Admin
	err := get(ctx, r.db, &a, `
		SELECT id, username, password_hash, created_at, last_login
		FROM admins WHERE username = ?`, username)
	return a, err
}

// InsertAdmin creates an admin; an existing username is reported as a
// validation error.
func (r *Repository) InsertAdmin(ctx context.Context, username, hash string) (Admin, error) {
	a := Admin{ID: newID(), Username: username, PasswordHash: hash, CreatedAt: now()}
	n, err := exec(ctx, r.db, `
		INSERT INTO admins (id, username, password_hash, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (username) DO NOTHING`, a.ID, a.Username, a.PasswordHash, a.CreatedAt)
	if err != nil {
		return Admin{}, fmt.Errorf("insert admin: %w", err)
	}
	if n == 0 {
		return Admin{}, invalid("username", "username already exists")
	}
	return a, nil
}

// UpdateAdminPassword replaces the stored hash.
func (r *Repository) UpdateAdminPassword(ctx context.Context, id, hash string) error {
	n, err := exec(ctx, r.db, `UPDATE admins SET password_hash = ? WHERE id = ?`, hash, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchAdminLogin records a successful login.
func (r *Repository) TouchAdminLogin(ctx context.Context, id string) error {
	_, err := exec(ctx, r.db, `UPDATE admins SET last_login = ? WHERE id = ?`, now(), id)
	return err
}
