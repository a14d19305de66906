package drive

import (
	"context"
	"fmt"
	"time"
)

// InsertDonation appends a donation.
func (r *Repository) InsertDonation(ctx context.Context, d Donation) (Donation, error) {
	if d.ID == "" {
		d.ID = newID()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now()
	}
	_, err := exec(ctx, r.db, `
		INSERT INTO donations (id, event_id, donor_kind, donor_id, amount, admin_id, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.EventID, d.DonorKind, d.DonorID, d.Amount, d.AdminID, d.Note, d.CreatedAt)
	if err != nil {
		return Donation{}, fmt.Errorf("insert donation: %w", err)
	}
	return d, nil
}

// ListDonations returns donations of an event, newest first, with donor names.
func (r *Repository) ListDonations(ctx context.Context, eventID string) ([]Donation, error) {
	donations := []Donation{}
	err := selectAll(ctx, r.db, &donations, `
		SELECT d.id, d.event_id, d.donor_kind, d.donor_id, d.amount, d.admin_id, d.note, d.created_at,
			COALESCE(
				(SELECT s.first_name || ' ' || s.last_name FROM students s WHERE d.donor_kind = 'student' AND s.id = d.donor_id),
				(SELECT t.full_name FROM teachers t WHERE d.donor_kind = 'teacher' AND t.id = d.donor_id),
				'') AS donor_name
		FROM donations d
		WHERE d.event_id = ?
		ORDER BY d.created_at DESC, d.id DESC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	return donations, nil
}

// TotalCans sums all donations of an event.
func (r *Repository) TotalCans(ctx context.Context, eventID string) (int64, error) {
	var total int64
	err := get(ctx, r.db, &total, `SELECT COALESCE(SUM(amount), 0) FROM donations WHERE event_id = ?`, eventID)
	return total, err
}

// Milestones returns recorded buyout crossing times by class key.
func (r *Repository) Milestones(ctx context.Context, eventID string) (map[string]time.Time, error) {
	var rows []struct {
		Key       string    `db:"class_key"`
		ReachedAt time.Time `db:"reached_at"`
	}
	if err := selectAll(ctx, r.db, &rows, `
		SELECT class_key, reached_at FROM class_milestones WHERE event_id = ?`, eventID); err != nil {
		return nil, err
	}
	out := make(map[string]time.Time, len(rows))
	for _, row := range rows {
		out[row.Key] = row.ReachedAt
	}
	return out, nil
}

// Milestone is a recorded buyout crossing.
type Milestone struct {
	EventID      string    `db:"event_id"`
	ClassKey     string    `db:"class_key"`
	Teacher      string    `db:"teacher"`
	Room         string    `db:"room"`
	RequiredCans int64     `db:"required_cans"`
	ActualCans   int64     `db:"actual_cans"`
	ReachedAt    time.Time `db:"reached_at"`
}

// InsertMilestone records a crossing once; it reports whether a row was written.
func (r *Repository) InsertMilestone(ctx context.Context, m Milestone) (bool, error) {
	n, err := exec(ctx, r.db, `
		INSERT INTO class_milestones (event_id, class_key, teacher, room, required_cans, actual_cans, reached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (event_id, class_key) DO NOTHING`,
		m.EventID, m.ClassKey, m.Teacher, m.Room, m.RequiredCans, m.ActualCans, m.ReachedAt)
	if err != nil {
		return false, fmt.Errorf("insert milestone: %w", err)
	}
	return n > 0, nil
}
