package leaderboard

import (
	"strings"
)

// Class is a homeroom: students sharing a homeroom teacher and number, plus
// the cans of the teacher who owns that room.
type Class struct {
	Teacher      string
	Room         string
	StudentCount int
	TotalCans    int64
}

// Name is the display label, "Smith 101".
func (c Class) Name() string {
	return strings.TrimSpace(c.Teacher + " " + c.Room)
}

// Key identifies the class within an event.
func (c Class) Key() string {
	return ClassKey(c.Teacher, c.Room)
}

// ClassKey builds the identity of a (teacher, room) pair.
func ClassKey(teacher, room string) string {
	return strings.ToLower(strings.Join(strings.Fields(teacher), " ")) + "|" + strings.TrimSpace(room)
}

// BuildClasses groups students by (homeroom teacher, homeroom number) in
// first-seen order. Each teacher with a homeroom adds their cans to a class
// in that room, preferring the one whose teacher name matches theirs; a
// teacher whose room has no students gets a class of their own.
func BuildClasses(students []StudentTotal, teachers []TeacherTotal) []Class {
	var classes []*Class
	byKey := map[string]*Class{}
	for _, s := range students {
		if s.HomeroomTeacher == "" || s.HomeroomNumber == "" {
			continue
		}
		key := ClassKey(s.HomeroomTeacher, s.HomeroomNumber)
		c, ok := byKey[key]
		if !ok {
			c = &Class{Teacher: strings.TrimSpace(s.HomeroomTeacher), Room: s.HomeroomNumber}
			byKey[key] = c
			classes = append(classes, c)
		}
		c.StudentCount++
		c.TotalCans += s.TotalCans
	}

	for _, t := range teachers {
		if t.HomeroomNumber == "" {
			continue
		}
		if c := matchRoom(classes, t); c != nil {
			c.TotalCans += t.TotalCans
			continue
		}
		classes = append(classes, &Class{Teacher: t.Name, Room: t.HomeroomNumber, TotalCans: t.TotalCans})
	}

	out := make([]Class, 0, len(classes))
	for _, c := range classes {
		out = append(out, *c)
	}
	return out
}

func matchRoom(classes []*Class, t TeacherTotal) *Class {
	var first *Class
	name := strings.ToLower(strings.TrimSpace(t.Name))
	last := strings.ToLower(strings.TrimSpace(t.LastName))
	for _, c := range classes {
		if c.Room != t.HomeroomNumber {
			continue
		}
		ct := strings.ToLower(c.Teacher)
		if ct == name || (last != "" && ct == last) {
			return c
		}
		if first == nil {
			first = c
		}
	}
	return first
}
