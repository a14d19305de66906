package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"candrive/internal/roster"
)

// StudentInput creates a student. Name is split when First is empty.
type StudentInput struct {
	Name            string
	FirstName       string
	LastName        string
	Grade           string
	HomeroomNumber  string
	HomeroomTeacher string
}

// StudentPatch updates the fields that are non-nil.
type StudentPatch struct {
	FirstName       *string
	LastName        *string
	Grade           *string
	HomeroomNumber  *string
	HomeroomTeacher *string
}

func (in StudentInput) names() (string, string) {
	first, last := strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	if first == "" && last == "" {
		return SplitName(in.Name)
	}
	return first, last
}

func decorate(v StudentView, streets []string) StudentView {
	v.Name = v.FullName()
	v.ReservedStreets = streets
	if v.ReservedStreets == nil {
		v.ReservedStreets = []string{}
	}
	return v
}

// ListStudents returns the filtered roster with totals and reserved streets.
func (s *Service) ListStudents(ctx context.Context, eventID string, f StudentFilter) ([]StudentView, error) {
	students, err := s.repo.ListStudents(ctx, eventID, f)
	if err != nil {
		return nil, err
	}
	streets, err := s.repo.ReservedStreetsByStudent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("reserved streets: %w", err)
	}
	for i := range students {
		students[i] = decorate(students[i], streets[students[i].ID])
	}
	return students, nil
}

// GetStudent returns one student.
func (s *Service) GetStudent(ctx context.Context, eventID, id string) (StudentView, error) {
	st, err := s.repo.GetStudent(ctx, eventID, id)
	if err != nil {
		return StudentView{}, fmt.Errorf("student %s: %w", id, err)
	}
	streets, err := s.repo.ReservedStreetsByStudent(ctx, eventID)
	if err != nil {
		return StudentView{}, fmt.Errorf("reserved streets: %w", err)
	}
	return decorate(st, streets[id]), nil
}

// CreateStudent adds a single student; a name already on the roster is rejected.
func (s *Service) CreateStudent(ctx context.Context, eventID string, in StudentInput) (StudentView, error) {
	first, last := in.names()
	st, verr := buildStudent(eventID, first, last, in.Grade, in.HomeroomNumber, in.HomeroomTeacher)
	if verr != nil {
		return StudentView{}, verr
	}
	keys, err := s.repo.StudentNameKeys(ctx, eventID)
	if err != nil {
		return StudentView{}, err
	}
	if keys[nameKey(st.FirstName, st.LastName)] {
		return StudentView{}, invalid("name", "student already exists in this event")
	}
	if err := s.repo.InsertStudents(ctx, []Student{st}); err != nil {
		return StudentView{}, err
	}
	s.invalidate(ctx, eventID)
	return decorate(StudentView{Student: st}, nil), nil
}

func buildStudent(eventID, first, last, grade, room, teacher string) (Student, *ValidationError) {
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)
	if first == "" {
		return Student{}, invalid("first_name", "student name is required")
	}
	grade = NormalizeGrade(grade)
	if grade != "" && !ValidGrade(grade) {
		return Student{}, invalid("grade", "grade must be between 9 and 12")
	}
	return Student{
		ID:              newID(),
		EventID:         eventID,
		FirstName:       first,
		LastName:        last,
		Grade:           grade,
		HomeroomNumber:  NormalizeHomeroom(room),
		HomeroomTeacher: strings.TrimSpace(teacher),
		CreatedAt:       now(),
	}, nil
}

// UpdateStudent applies a patch.
func (s *Service) UpdateStudent(ctx context.Context, eventID, id string, p StudentPatch) (StudentView, error) {
	cur, err := s.repo.GetStudent(ctx, eventID, id)
	if err != nil {
		return StudentView{}, fmt.Errorf("student %s: %w", id, err)
	}
	st := cur.Student
	if p.FirstName != nil {
		st.FirstName = strings.TrimSpace(*p.FirstName)
	}
	if p.LastName != nil {
		st.LastName = strings.TrimSpace(*p.LastName)
	}
	if p.Grade != nil {
		st.Grade = NormalizeGrade(*p.Grade)
	}
	if p.HomeroomNumber != nil {
		st.HomeroomNumber = NormalizeHomeroom(*p.HomeroomNumber)
	}
	if p.HomeroomTeacher != nil {
		st.HomeroomTeacher = strings.TrimSpace(*p.HomeroomTeacher)
	}
	if st.FirstName == "" {
		return StudentView{}, invalid("first_name", "student name is required")
	}
	if st.Grade != "" && !ValidGrade(st.Grade) {
		return StudentView{}, invalid("grade", "grade must be between 9 and 12")
	}
	if err := s.repo.UpdateStudent(ctx, st); err != nil {
		return StudentView{}, err
	}
	s.invalidate(ctx, eventID)
	return s.GetStudent(ctx, eventID, id)
}

// DeleteStudent removes a student along with their donations and reservations.
func (s *Service) DeleteStudent(ctx context.Context, eventID, id string) error {
	if err := s.repo.DeleteStudent(ctx, eventID, id); err != nil {
		return fmt.Errorf("delete student %s: %w", id, err)
	}
	s.invalidate(ctx, eventID)
	return nil
}

// SearchStudents is the autocomplete lookup.
func (s *Service) SearchStudents(ctx context.Context, eventID, q string) ([]StudentView, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []StudentView{}, nil
	}
	students, err := s.repo.SearchStudents(ctx, eventID, q, s.opts.SearchLimit)
	if err != nil {
		return nil, err
	}
	for i := range students {
		students[i] = decorate(students[i], nil)
	}
	return students, nil
}

// VerifyStudent confirms roster membership. The name matches first and last
// exactly, ignoring case, then with the parts swapped; the optional fields
// must match when given.
func (s *Service) VerifyStudent(ctx context.Context, eventID string, q VerifyQuery) (StudentView, error) {
	first, last := strings.TrimSpace(q.FirstName), strings.TrimSpace(q.LastName)
	if first == "" && last == "" {
		first, last = SplitName(q.Name)
	}
	if first == "" {
		return StudentView{}, invalid("name", "name is required")
	}

	candidates, err := s.repo.FindStudentsByName(ctx, eventID, first, last)
	if err != nil {
		return StudentView{}, err
	}
	if len(candidates) == 0 && last != "" {
		candidates, err = s.repo.FindStudentsByName(ctx, eventID, last, first)
		if err != nil {
			return StudentView{}, err
		}
	}
	grade := NormalizeGrade(q.Grade)
	room := NormalizeHomeroom(q.HomeroomNumber)
	teacher := FoldName(q.HomeroomTeacher)
	for _, c := range candidates {
		if grade != "" && c.Grade != grade {
			continue
		}
		if room != "" && c.HomeroomNumber != room {
			continue
		}
		if teacher != "" && FoldName(c.HomeroomTeacher) != teacher {
			continue
		}
		return decorate(c, nil), nil
	}
	return StudentView{}, fmt.Errorf("student %q: %w", JoinName(first, last), ErrNotFound)
}

// UploadRoster imports a student roster. Rows without a name, with an
// invalid grade, or duplicating a student already in the event or earlier in
// the file are skipped.
func (s *Service) UploadRoster(ctx context.Context, eventID, filename string, r io.Reader) (ImportResult, error) {
	rows, err := roster.LoadStudents(r, filename)
	if err != nil {
		return ImportResult{}, uploadError(err)
	}
	keys, err := s.repo.StudentNameKeys(ctx, eventID)
	if err != nil {
		return ImportResult{}, err
	}
	var res ImportResult
	var batch []Student
	start := now()
	for _, row := range rows {
		first, last := row.First, row.Last
		if first == "" && last == "" {
			first, last = SplitName(row.Name)
		}
		st, verr := buildStudent(eventID, first, last, row.Grade, row.Homeroom, row.Teacher)
		if verr != nil {
			res.Skipped++
			continue
		}
		key := nameKey(st.FirstName, st.LastName)
		if keys[key] {
			res.Skipped++
			continue
		}
		keys[key] = true
		// one microsecond apart so created_at keeps upload order
		st.CreatedAt = start.Add(time.Duration(len(batch)) * time.Microsecond)
		batch = append(batch, st)
	}
	if len(batch) > 0 {
		if err := s.repo.InsertStudents(ctx, batch); err != nil {
			return ImportResult{}, err
		}
		s.invalidate(ctx, eventID)
	}
	res.Added = len(batch)
	return res, nil
}

func uploadError(err error) error {
	if errors.Is(err, roster.ErrEmpty) {
		return invalid("file", err.Error())
	}
	return &ValidationError{Message: "unreadable file: " + err.Error(), Fields: map[string]string{"file": "unreadable"}}
}
