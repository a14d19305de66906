package store

import (
	"context"
	"fmt"
)

// Statements are kept to the subset both Postgres and SQLite accept. Ids and
// timestamps are produced by the application.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		school_year TEXT NOT NULL DEFAULT '',
		active      BOOLEAN NOT NULL DEFAULT FALSE,
		start_date  TIMESTAMP NOT NULL,
		end_date    TIMESTAMP NULL,
		created_at  TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS students (
		id               TEXT PRIMARY KEY,
		event_id         TEXT NOT NULL REFERENCES events(id),
		first_name       TEXT NOT NULL,
		last_name        TEXT NOT NULL DEFAULT '',
		grade            TEXT NOT NULL DEFAULT '',
		homeroom_number  TEXT NOT NULL DEFAULT '',
		homeroom_teacher TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_students_event ON students (event_id)`,
	`CREATE TABLE IF NOT EXISTS teachers (
		id              TEXT PRIMARY KEY,
		event_id        TEXT NOT NULL REFERENCES events(id),
		first_name      TEXT NOT NULL DEFAULT '',
		last_name       TEXT NOT NULL DEFAULT '',
		full_name       TEXT NOT NULL,
		homeroom_number TEXT NOT NULL DEFAULT '',
		created_at      TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_teachers_event ON teachers (event_id)`,
	`CREATE TABLE IF NOT EXISTS donations (
		id         TEXT PRIMARY KEY,
		event_id   TEXT NOT NULL REFERENCES events(id),
		donor_kind TEXT NOT NULL CHECK (donor_kind IN ('student', 'teacher')),
		donor_id   TEXT NOT NULL,
		amount     INTEGER NOT NULL CHECK (amount > 0),
		admin_id   TEXT NOT NULL DEFAULT '',
		note       TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_donations_event_donor ON donations (event_id, donor_kind, donor_id)`,
	`CREATE INDEX IF NOT EXISTS idx_donations_event_created ON donations (event_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id            TEXT PRIMARY KEY,
		event_id      TEXT NOT NULL REFERENCES events(id),
		donor_kind    TEXT NOT NULL CHECK (donor_kind IN ('student', 'teacher', 'group')),
		donor_id      TEXT NOT NULL DEFAULT '',
		donor_name    TEXT NOT NULL,
		donor_key     TEXT NOT NULL,
		street_names  TEXT NOT NULL,
		path          TEXT NOT NULL DEFAULT '[]',
		group_members TEXT NOT NULL DEFAULT '[]',
		created_at    TIMESTAMP NOT NULL,
		updated_at    TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_event ON reservations (event_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS street_claims (
		event_id       TEXT NOT NULL,
		street_key     TEXT NOT NULL,
		street_name    TEXT NOT NULL,
		reservation_id TEXT NOT NULL REFERENCES reservations(id),
		PRIMARY KEY (event_id, street_key)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_street_claims_reservation ON street_claims (reservation_id)`,
	`CREATE TABLE IF NOT EXISTS class_milestones (
		event_id      TEXT NOT NULL,
		class_key     TEXT NOT NULL,
		teacher       TEXT NOT NULL,
		room          TEXT NOT NULL,
		required_cans INTEGER NOT NULL,
		actual_cans   INTEGER NOT NULL,
		reached_at    TIMESTAMP NOT NULL,
		PRIMARY KEY (event_id, class_key)
	)`,
	`CREATE TABLE IF NOT EXISTS admins (
		id            TEXT PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMP NOT NULL,
		last_login    TIMESTAMP NULL
	)`,
}

// Migrate creates missing tables and indexes. It is safe to run repeatedly.
func (d *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
