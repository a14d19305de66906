package drive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

const studentCols = `s.id, s.event_id, s.first_name, s.last_name, s.grade, s.homeroom_number, s.homeroom_teacher, s.created_at`

const studentTotal = `COALESCE((SELECT SUM(d.amount) FROM donations d
	WHERE d.event_id = s.event_id AND d.donor_kind = 'student' AND d.donor_id = s.id), 0) AS total_cans`

const teacherCols = `t.id, t.event_id, t.first_name, t.last_name, t.full_name, t.homeroom_number, t.created_at`

const teacherTotal = `COALESCE((SELECT SUM(d.amount) FROM donations d
	WHERE d.event_id = t.event_id AND d.donor_kind = 'teacher' AND d.donor_id = t.id), 0) AS total_cans`

// likeArg builds a case-insensitive substring pattern for LIKE ... ESCAPE '\'.
func likeArg(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}

// ListStudents returns students of an event with their can totals.
func (r *Repository) ListStudents(ctx context.Context, eventID string, f StudentFilter) ([]StudentView, error) {
	query := `SELECT ` + studentCols + `, ` + studentTotal + ` FROM students s WHERE s.event_id = ?`
	args := []any{eventID}
	if f.Grade != "" {
		query += ` AND s.grade = ?`
		args = append(args, NormalizeGrade(f.Grade))
	}
	if f.Homeroom != "" {
		query += ` AND LOWER(s.homeroom_number) LIKE ? ESCAPE '\'`
		args = append(args, likeArg(f.Homeroom))
	}
	if f.Name != "" {
		query += ` AND LOWER(s.first_name || ' ' || s.last_name) LIKE ? ESCAPE '\'`
		args = append(args, likeArg(f.Name))
	}
	if f.Teacher != "" {
		query += ` AND LOWER(s.homeroom_teacher) LIKE ? ESCAPE '\'`
		args = append(args, likeArg(f.Teacher))
	}
	query += ` ORDER BY s.last_name, s.first_name, s.id`

	students := []StudentView{}
	if err := selectAll(ctx, r.db, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// SearchStudents matches a substring of the full name, at most limit rows.
func (r *Repository) SearchStudents(ctx context.Context, eventID, q string, limit int) ([]StudentView, error) {
	students := []StudentView{}
	err := selectAll(ctx, r.db, &students, `
		SELECT `+studentCols+`, `+studentTotal+`
		FROM students s
		WHERE s.event_id = ? AND LOWER(s.first_name || ' ' || s.last_name) LIKE ? ESCAPE '\'
		ORDER BY s.last_name, s.first_name, s.id
		LIMIT ?`, eventID, likeArg(q), limit)
	if err != nil {
		return nil, fmt.Errorf("search students: %w", err)
	}
	return students, nil
}

// FindStudentsByName matches first and last name exactly, ignoring case.
func (r *Repository) FindStudentsByName(ctx context.Context, eventID, first, last string) ([]StudentView, error) {
	students := []StudentView{}
	err := selectAll(ctx, r.db, &students, `
		SELECT `+studentCols+`, `+studentTotal+`
		FROM students s
		WHERE s.event_id = ? AND LOWER(s.first_name) = ? AND LOWER(s.last_name) = ?
		ORDER BY s.created_at, s.id`,
		eventID, strings.ToLower(strings.TrimSpace(first)), strings.ToLower(strings.TrimSpace(last)))
	return students, err
}

// GetStudent returns a student of the event.
func (r *Repository) GetStudent(ctx context.Context, eventID, id string) (StudentView, error) {
	var s StudentView
	err := get(ctx, r.db, &s, `
		SELECT `+studentCols+`, `+studentTotal+`
		FROM students s WHERE s.event_id = ? AND s.id = ?`, eventID, id)
	return s, err
}

// StudentNameKeys returns the folded "first|last" keys already on the roster.
func (r *Repository) StudentNameKeys(ctx context.Context, eventID string) (map[string]bool, error) {
	var rows []struct {
		First string `db:"first_name"`
		Last  string `db:"last_name"`
	}
	if err := selectAll(ctx, r.db, &rows, `SELECT first_name, last_name FROM students WHERE event_id = ?`, eventID); err != nil {
		return nil, err
	}
	keys := make(map[string]bool, len(rows))
	for _, row := range rows {
		keys[nameKey(row.First, row.Last)] = true
	}
	return keys, nil
}

func nameKey(first, last string) string {
	return FoldName(first) + "|" + FoldName(last)
}

// InsertStudents writes students in one transaction.
func (r *Repository) InsertStudents(ctx context.Context, students []Student) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, s := range students {
			if err := insertStudent(ctx, tx, s); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertStudent(ctx context.Context, q sqlx.ExtContext, s Student) error {
	_, err := exec(ctx, q, `
		INSERT INTO students (id, event_id, first_name, last_name, grade, homeroom_number, homeroom_teacher, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.EventID, s.FirstName, s.LastName, s.Grade, s.HomeroomNumber, s.HomeroomTeacher, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

// UpdateStudent overwrites the editable fields.
func (r *Repository) UpdateStudent(ctx context.Context, s Student) error {
	n, err := exec(ctx, r.db, `
		UPDATE students
		SET first_name = ?, last_name = ?, grade = ?, homeroom_number = ?, homeroom_teacher = ?
		WHERE event_id = ? AND id = ?`,
		s.FirstName, s.LastName, s.Grade, s.HomeroomNumber, s.HomeroomTeacher, s.EventID, s.ID)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteStudent removes a student with their donations and reservations.
func (r *Repository) DeleteStudent(ctx context.Context, eventID, id string) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := exec(ctx, tx, `
			DELETE FROM street_claims WHERE reservation_id IN (
				SELECT id FROM reservations WHERE event_id = ? AND donor_kind = 'student' AND donor_id = ?)`,
			eventID, id); err != nil {
			return err
		}
		if _, err := exec(ctx, tx, `DELETE FROM reservations WHERE event_id = ? AND donor_kind = 'student' AND donor_id = ?`, eventID, id); err != nil {
			return err
		}
		if _, err := exec(ctx, tx, `DELETE FROM donations WHERE event_id = ? AND donor_kind = 'student' AND donor_id = ?`, eventID, id); err != nil {
			return err
		}
		n, err := exec(ctx, tx, `DELETE FROM students WHERE event_id = ? AND id = ?`, eventID, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ReservedStreetsByStudent maps student ids to the streets they hold.
func (r *Repository) ReservedStreetsByStudent(ctx context.Context, eventID string) (map[string][]string, error) {
	var rows []struct {
		DonorID string `db:"donor_id"`
		Streets string `db:"street_names"`
	}
	if err := selectAll(ctx, r.db, &rows, `
		SELECT donor_id, street_names FROM reservations
		WHERE event_id = ? AND donor_kind = 'student'
		ORDER BY created_at, id`, eventID); err != nil {
		return nil, err
	}
	out := map[string][]string{}
	for _, row := range rows {
		out[row.DonorID] = append(out[row.DonorID], SplitStreets([]string{row.Streets})...)
	}
	return out, nil
}

// ListTeachers returns teachers of an event with their can totals.
func (r *Repository) ListTeachers(ctx context.Context, eventID string) ([]TeacherView, error) {
	teachers := []TeacherView{}
	err := selectAll(ctx, r.db, &teachers, `
		SELECT `+teacherCols+`, `+teacherTotal+`
		FROM teachers t WHERE t.event_id = ?
		ORDER BY t.last_name, t.first_name, t.id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return teachers, nil
}

// GetTeacher returns a teacher of the event.
func (r *Repository) GetTeacher(ctx context.Context, eventID, id string) (TeacherView, error) {
	var t TeacherView
	err := get(ctx, r.db, &t, `
		SELECT `+teacherCols+`, `+teacherTotal+`
		FROM teachers t WHERE t.event_id = ? AND t.id = ?`, eventID, id)
	return t, err
}

// TeacherNameKeys returns the folded "first|last" keys of existing teachers.
func (r *Repository) TeacherNameKeys(ctx context.Context, eventID string) (map[string]bool, error) {
	var rows []struct {
		First string `db:"first_name"`
		Last  string `db:"last_name"`
	}
	if err := selectAll(ctx, r.db, &rows, `SELECT first_name, last_name FROM teachers WHERE event_id = ?`, eventID); err != nil {
		return nil, err
	}
	keys := make(map[string]bool, len(rows))
	for _, row := range rows {
		keys[nameKey(row.First, row.Last)] = true
	}
	return keys, nil
}

// HomeroomsByTeacher maps folded homeroom teacher names, as written on the
// student roster, to the room most of their students list.
func (r *Repository) HomeroomsByTeacher(ctx context.Context, eventID string) (map[string]string, error) {
	var rows []struct {
		Teacher string `db:"homeroom_teacher"`
		Room    string `db:"homeroom_number"`
		N       int    `db:"n"`
	}
	if err := selectAll(ctx, r.db, &rows, `
		SELECT homeroom_teacher, homeroom_number, COUNT(*) AS n
		FROM students
		WHERE event_id = ? AND homeroom_teacher <> '' AND homeroom_number <> ''
		GROUP BY homeroom_teacher, homeroom_number
		ORDER BY n DESC, homeroom_number`, eventID); err != nil {
		return nil, err
	}
	out := map[string]string{}
	for _, row := range rows {
		key := FoldName(row.Teacher)
		if _, ok := out[key]; !ok {
			out[key] = row.Room
		}
	}
	return out, nil
}

// InsertTeachers writes teachers in one transaction.
func (r *Repository) InsertTeachers(ctx context.Context, teachers []Teacher) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, t := range teachers {
			_, err := exec(ctx, tx, `
				INSERT INTO teachers (id, event_id, first_name, last_name, full_name, homeroom_number, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				t.ID, t.EventID, t.FirstName, t.LastName, t.FullName, t.HomeroomNumber, t.CreatedAt)
			if err != nil {
				return fmt.Errorf("insert teacher: %w", err)
			}
		}
		return nil
	})
}

type studentTotalRow struct {
	ID              string    `db:"id"`
	FirstName       string    `db:"first_name"`
	LastName        string    `db:"last_name"`
	Grade           string    `db:"grade"`
	HomeroomNumber  string    `db:"homeroom_number"`
	HomeroomTeacher string    `db:"homeroom_teacher"`
	CreatedAt       time.Time `db:"created_at"`
	TotalCans       int64     `db:"total_cans"`
}

type teacherTotalRow struct {
	ID             string    `db:"id"`
	FirstName      string    `db:"first_name"`
	LastName       string    `db:"last_name"`
	FullName       string    `db:"full_name"`
	HomeroomNumber string    `db:"homeroom_number"`
	CreatedAt      time.Time `db:"created_at"`
	TotalCans      int64     `db:"total_cans"`
}

// window restricts donation sums to [from, to) when both are set.
type window struct {
	from, to time.Time
}

func (w *window) clause() (string, []any) {
	if w == nil {
		return "", nil
	}
	return ` AND d.created_at >= ? AND d.created_at < ?`, []any{w.from, w.to}
}

// StudentTotals sums donations per student in insertion order.
func (r *Repository) StudentTotals(ctx context.Context, eventID string, w *window) ([]studentTotalRow, error) {
	cond, args := w.clause()
	rows := []studentTotalRow{}
	err := selectAll(ctx, r.db, &rows, `
		SELECT s.id, s.first_name, s.last_name, s.grade, s.homeroom_number, s.homeroom_teacher, s.created_at,
			COALESCE(SUM(d.amount), 0) AS total_cans
		FROM students s
		LEFT JOIN donations d
			ON d.event_id = s.event_id AND d.donor_kind = 'student' AND d.donor_id = s.id`+cond+`
		WHERE s.event_id = ?
		GROUP BY s.id, s.first_name, s.last_name, s.grade, s.homeroom_number, s.homeroom_teacher, s.created_at
		ORDER BY s.created_at, s.id`, append(args, eventID)...)
	return rows, err
}

// TeacherTotals sums donations per teacher in insertion order.
func (r *Repository) TeacherTotals(ctx context.Context, eventID string, w *window) ([]teacherTotalRow, error) {
	cond, args := w.clause()
	rows := []teacherTotalRow{}
	err := selectAll(ctx, r.db, &rows, `
		SELECT t.id, t.first_name, t.last_name, t.full_name, t.homeroom_number, t.created_at,
			COALESCE(SUM(d.amount), 0) AS total_cans
		FROM teachers t
		LEFT JOIN donations d
			ON d.event_id = t.event_id AND d.donor_kind = 'teacher' AND d.donor_id = t.id`+cond+`
		WHERE t.event_id = ?
		GROUP BY t.id, t.first_name, t.last_name, t.full_name, t.homeroom_number, t.created_at
		ORDER BY t.created_at, t.id`, append(args, eventID)...)
	return rows, err
}
