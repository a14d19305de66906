package drive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

type reservationRow struct {
	ID           string    `db:"id"`
	EventID      string    `db:"event_id"`
	DonorKind    string    `db:"donor_kind"`
	DonorID      string    `db:"donor_id"`
	DonorName    string    `db:"donor_name"`
	DonorKey     string    `db:"donor_key"`
	StreetNames  string    `db:"street_names"`
	Path         string    `db:"path"`
	GroupMembers string    `db:"group_members"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

const reservationCols = `id, event_id, donor_kind, donor_id, donor_name, donor_key, street_names, path, group_members, created_at, updated_at`

func (row reservationRow) donor() DonorRef {
	return DonorRef{Kind: DonorKind(row.DonorKind), ID: row.DonorID, Name: row.DonorName}
}

func (row reservationRow) toReservation() (Reservation, error) {
	res := Reservation{
		ID:           row.ID,
		EventID:      row.EventID,
		Donor:        row.donor(),
		Streets:      SplitStreets([]string{row.StreetNames}),
		StreetName:   row.StreetNames,
		Path:         []PathPoint{},
		GroupMembers: []string{},
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.Path != "" {
		if err := json.Unmarshal([]byte(row.Path), &res.Path); err != nil {
			return Reservation{}, fmt.Errorf("decode path of %s: %w", row.ID, err)
		}
	}
	if row.GroupMembers != "" {
		if err := json.Unmarshal([]byte(row.GroupMembers), &res.GroupMembers); err != nil {
			return Reservation{}, fmt.Errorf("decode group members of %s: %w", row.ID, err)
		}
	}
	return res, nil
}

func toRow(res Reservation) (reservationRow, error) {
	path, err := json.Marshal(res.Path)
	if err != nil {
		return reservationRow{}, err
	}
	members, err := json.Marshal(res.GroupMembers)
	if err != nil {
		return reservationRow{}, err
	}
	return reservationRow{
		ID:           res.ID,
		EventID:      res.EventID,
		DonorKind:    string(res.Donor.Kind),
		DonorID:      res.Donor.ID,
		DonorName:    res.Donor.Name,
		DonorKey:     res.Donor.Key(),
		StreetNames:  strings.Join(res.Streets, ", "),
		Path:         string(path),
		GroupMembers: string(members),
		CreatedAt:    res.CreatedAt,
		UpdatedAt:    res.UpdatedAt,
	}, nil
}

// ListReservations returns all reservations of an event, oldest first.
func (r *Repository) ListReservations(ctx context.Context, eventID string) ([]Reservation, error) {
	var rows []reservationRow
	if err := selectAll(ctx, r.db, &rows, `SELECT `+reservationCols+` FROM reservations WHERE event_id = ? ORDER BY created_at, id`, eventID); err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	out := make([]Reservation, 0, len(rows))
	for _, row := range rows {
		res, err := row.toReservation()
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

// GetReservation returns one reservation of the event.
func (r *Repository) GetReservation(ctx context.Context, eventID, id string) (Reservation, error) {
	var row reservationRow
	if err := get(ctx, r.db, &row, `SELECT `+reservationCols+` FROM reservations WHERE event_id = ? AND id = ?`, eventID, id); err != nil {
		return Reservation{}, err
	}
	return row.toReservation()
}

// CreateReservation inserts the reservation and claims its streets atomically.
// A street held by another donor aborts with *ConflictError; a street held by
// an earlier reservation of the same donor replaces that reservation.
func (r *Repository) CreateReservation(ctx context.Context, res Reservation) (Reservation, error) {
	res.ID = newID()
	res.CreatedAt = now()
	res.UpdatedAt = res.CreatedAt
	row, err := toRow(res)
	if err != nil {
		return Reservation{}, err
	}
	err = r.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := exec(ctx, tx, `
			INSERT INTO reservations (`+reservationCols+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			row.ID, row.EventID, row.DonorKind, row.DonorID, row.DonorName, row.DonorKey,
			row.StreetNames, row.Path, row.GroupMembers, row.CreatedAt, row.UpdatedAt); err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}
		return claimStreets(ctx, tx, res)
	})
	if err != nil {
		return Reservation{}, err
	}
	return res, nil
}

// UpdateReservation releases and re-acquires the claims of a reservation and
// rewrites the row in one transaction. On conflict nothing changes.
func (r *Repository) UpdateReservation(ctx context.Context, res Reservation) (Reservation, error) {
	res.UpdatedAt = now()
	row, err := toRow(res)
	if err != nil {
		return Reservation{}, err
	}
	err = r.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := exec(ctx, tx, `DELETE FROM street_claims WHERE reservation_id = ?`, res.ID); err != nil {
			return err
		}
		n, err := exec(ctx, tx, `
			UPDATE reservations
			SET donor_kind = ?, donor_id = ?, donor_name = ?, donor_key = ?,
				street_names = ?, path = ?, group_members = ?, updated_at = ?
			WHERE event_id = ? AND id = ?`,
			row.DonorKind, row.DonorID, row.DonorName, row.DonorKey,
			row.StreetNames, row.Path, row.GroupMembers, row.UpdatedAt, row.EventID, row.ID)
		if err != nil {
			return fmt.Errorf("update reservation: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return claimStreets(ctx, tx, res)
	})
	if err != nil {
		return Reservation{}, err
	}
	return res, nil
}

// DeleteReservation removes a reservation and its claims.
func (r *Repository) DeleteReservation(ctx context.Context, eventID, id string) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		return deleteReservation(ctx, tx, eventID, id)
	})
}

func deleteReservation(ctx context.Context, tx *sqlx.Tx, eventID, id string) error {
	if _, err := exec(ctx, tx, `DELETE FROM street_claims WHERE event_id = ? AND reservation_id = ?`, eventID, id); err != nil {
		return err
	}
	n, err := exec(ctx, tx, `DELETE FROM reservations WHERE event_id = ? AND id = ?`, eventID, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type claim struct {
	key  string
	name string
}

// uniqueClaims dedupes streets by key and sorts by key so concurrent
// transactions lock claim rows in the same order.
func uniqueClaims(streets []string) []claim {
	seen := map[string]bool{}
	var out []claim
	for _, name := range streets {
		key := StreetKey(name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, claim{key: key, name: name})
	}
	slices.SortFunc(out, func(a, b claim) int { return strings.Compare(a.key, b.key) })
	return out
}

func claimStreets(ctx context.Context, tx *sqlx.Tx, res Reservation) error {
	for _, c := range uniqueClaims(res.Streets) {
		if err := claimStreet(ctx, tx, res, c); err != nil {
			return err
		}
	}
	return nil
}

func claimStreet(ctx context.Context, tx *sqlx.Tx, res Reservation, c claim) error {
	// Two rounds: the second follows replacing the donor's own earlier claim
	// or a holder that vanished between the insert and the lookup.
	for attempt := 0; attempt < 2; attempt++ {
		n, err := exec(ctx, tx, `
			INSERT INTO street_claims (event_id, street_key, street_name, reservation_id)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (event_id, street_key) DO NOTHING`, res.EventID, c.key, c.name, res.ID)
		if err != nil {
			return fmt.Errorf("claim %q: %w", c.name, err)
		}
		if n > 0 {
			return nil
		}

		var holder reservationRow
		err = get(ctx, tx, &holder, `
			SELECT r.id, r.event_id, r.donor_kind, r.donor_id, r.donor_name, r.donor_key,
				r.street_names, r.path, r.group_members, r.created_at, r.updated_at
			FROM street_claims c JOIN reservations r ON r.id = c.reservation_id
			WHERE c.event_id = ? AND c.street_key = ?`, res.EventID, c.key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("claim holder %q: %w", c.name, err)
		}
		if holder.ID == res.ID {
			return nil
		}
		if holder.DonorKey != res.Donor.Key() {
			return &ConflictError{Street: c.name, HeldBy: holder.donor()}
		}
		if err := deleteReservation(ctx, tx, res.EventID, holder.ID); err != nil {
			return fmt.Errorf("replace reservation %s: %w", holder.ID, err)
		}
	}
	return fmt.Errorf("claim %q: still held after retry", c.name)
}
