package drive

import (
	"context"
	"io"
	"strings"
	"time"

	"candrive/internal/roster"
)

// TeacherInput creates a teacher.
type TeacherInput struct {
	Name           string
	FirstName      string
	LastName       string
	HomeroomNumber string
}

// ListTeachers returns teachers with totals.
func (s *Service) ListTeachers(ctx context.Context, eventID string) ([]TeacherView, error) {
	return s.repo.ListTeachers(ctx, eventID)
}

// CreateTeacher adds a single teacher.
func (s *Service) CreateTeacher(ctx context.Context, eventID string, in TeacherInput) (TeacherView, error) {
	first, last := strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	if first == "" && last == "" {
		first, last = SplitName(in.Name)
	}
	if first == "" && last == "" {
		return TeacherView{}, invalid("name", "teacher name is required")
	}
	keys, err := s.repo.TeacherNameKeys(ctx, eventID)
	if err != nil {
		return TeacherView{}, err
	}
	if keys[nameKey(first, last)] {
		return TeacherView{}, invalid("name", "teacher already exists in this event")
	}
	t := Teacher{
		ID:             newID(),
		EventID:        eventID,
		FirstName:      first,
		LastName:       last,
		FullName:       JoinName(first, last),
		HomeroomNumber: NormalizeHomeroom(in.HomeroomNumber),
		CreatedAt:      now(),
	}
	if err := s.repo.InsertTeachers(ctx, []Teacher{t}); err != nil {
		return TeacherView{}, err
	}
	s.invalidate(ctx, eventID)
	return TeacherView{Teacher: t}, nil
}

// UploadTeachers imports a teacher list. A row without a homeroom takes the
// room most of the teacher's students list on the roster, matched by full
// name as written, "First Last", or last name.
func (s *Service) UploadTeachers(ctx context.Context, eventID, filename string, r io.Reader) (ImportResult, error) {
	rows, err := roster.LoadTeachers(r, filename)
	if err != nil {
		return ImportResult{}, uploadError(err)
	}
	keys, err := s.repo.TeacherNameKeys(ctx, eventID)
	if err != nil {
		return ImportResult{}, err
	}
	rooms, err := s.repo.HomeroomsByTeacher(ctx, eventID)
	if err != nil {
		return ImportResult{}, err
	}

	var res ImportResult
	var batch []Teacher
	start := now()
	for _, row := range rows {
		if row.Name == "" {
			res.Skipped++
			continue
		}
		first, last := SplitName(row.Name)
		key := nameKey(first, last)
		if keys[key] {
			res.Skipped++
			continue
		}
		keys[key] = true
		room := NormalizeHomeroom(row.Homeroom)
		if room == "" {
			room = inferRoom(rooms, row.Name, first, last)
		}
		batch = append(batch, Teacher{
			ID:             newID(),
			EventID:        eventID,
			FirstName:      first,
			LastName:       last,
			FullName:       JoinName(first, last),
			HomeroomNumber: room,
			CreatedAt:      start.Add(time.Duration(len(batch)) * time.Microsecond),
		})
	}
	if len(batch) > 0 {
		if err := s.repo.InsertTeachers(ctx, batch); err != nil {
			return ImportResult{}, err
		}
		s.invalidate(ctx, eventID)
	}
	res.Added = len(batch)
	return res, nil
}

func inferRoom(rooms map[string]string, raw, first, last string) string {
	for _, candidate := range []string{raw, JoinName(first, last), last} {
		if candidate == "" {
			continue
		}
		if room, ok := rooms[FoldName(candidate)]; ok {
			return NormalizeHomeroom(room)
		}
	}
	return ""
}
