package drive

import (
	"time"
)

// DonorKind discriminates the donor of a donation or reservation.
type DonorKind string

const (
	KindStudent DonorKind = "student"
	KindTeacher DonorKind = "teacher"
	KindGroup   DonorKind = "group"
)

// Valid reports whether k is a known kind.
func (k DonorKind) Valid() bool {
	return k == KindStudent || k == KindTeacher || k == KindGroup
}

// DonorRef identifies exactly one donor. Student and teacher donors carry an
// id; a group is identified by its case-folded name.
type DonorRef struct {
	Kind DonorKind `json:"kind"`
	ID   string    `json:"id,omitempty"`
	Name string    `json:"name"`
}

// Key is the identity used to compare two donors.
func (d DonorRef) Key() string {
	if d.Kind == KindGroup {
		return string(KindGroup) + ":" + FoldName(d.Name)
	}
	return string(d.Kind) + ":" + d.ID
}

// Event is a single can-drive campaign.
type Event struct {
	ID         string     `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	SchoolYear string     `db:"school_year" json:"school_year"`
	Active     bool       `db:"active" json:"active"`
	StartDate  time.Time  `db:"start_date" json:"start_date"`
	EndDate    *time.Time `db:"end_date" json:"end_date,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// Student is a roster entry.
type Student struct {
	ID              string    `db:"id" json:"id"`
	EventID         string    `db:"event_id" json:"event_id"`
	FirstName       string    `db:"first_name" json:"first_name"`
	LastName        string    `db:"last_name" json:"last_name"`
	Grade           string    `db:"grade" json:"grade"`
	HomeroomNumber  string    `db:"homeroom_number" json:"homeroom_number"`
	HomeroomTeacher string    `db:"homeroom_teacher" json:"homeroom_teacher"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// FullName joins first and last name.
func (s Student) FullName() string {
	return JoinName(s.FirstName, s.LastName)
}

// StudentView is the read model returned by the API.
type StudentView struct {
	Student
	Name            string   `db:"-" json:"name"`
	TotalCans       int64    `db:"total_cans" json:"total_cans"`
	ReservedStreets []string `db:"-" json:"reserved_streets"`
}

// Teacher is a staff entry; a homeroom is optional.
type Teacher struct {
	ID             string    `db:"id" json:"id"`
	EventID        string    `db:"event_id" json:"event_id"`
	FirstName      string    `db:"first_name" json:"first_name"`
	LastName       string    `db:"last_name" json:"last_name"`
	FullName       string    `db:"full_name" json:"full_name"`
	HomeroomNumber string    `db:"homeroom_number" json:"homeroom_number"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// TeacherView adds the derived can total.
type TeacherView struct {
	Teacher
	TotalCans int64 `db:"total_cans" json:"total_cans"`
}

// Donation is an append-only record of cans collected by one donor.
type Donation struct {
	ID        string    `db:"id" json:"id"`
	EventID   string    `db:"event_id" json:"event_id"`
	DonorKind DonorKind `db:"donor_kind" json:"donor_kind"`
	DonorID   string    `db:"donor_id" json:"donor_id"`
	DonorName string    `db:"donor_name" json:"donor_name"`
	Amount    int64     `db:"amount" json:"amount"`
	AdminID   string    `db:"admin_id" json:"admin_id,omitempty"`
	Note      string    `db:"note" json:"note,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PathPoint is one vertex of a reserved route.
type PathPoint struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// Reservation is a claim on one or more streets.
type Reservation struct {
	ID           string      `json:"id"`
	EventID      string      `json:"event_id"`
	Donor        DonorRef    `json:"donor"`
	Streets      []string    `json:"streets"`
	StreetName   string      `json:"street_name"`
	Path         []PathPoint `json:"path"`
	GroupMembers []string    `json:"group_members"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// ReservationInput is what callers supply to create or update a reservation.
type ReservationInput struct {
	Donor        DonorRef
	Streets      []string
	Path         []PathPoint
	GroupMembers []string
}

// Admin is a login account.
type Admin struct {
	ID           string     `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
}

// StudentFilter narrows ListStudents. Empty fields match everything.
type StudentFilter struct {
	Grade    string
	Homeroom string
	Name     string
	Teacher  string
}

// VerifyQuery identifies a student by name with optional strict filters.
type VerifyQuery struct {
	Name            string
	FirstName       string
	LastName        string
	Grade           string
	HomeroomNumber  string
	HomeroomTeacher string
}

// ImportResult counts rows accepted and skipped by a bulk upload.
type ImportResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// ResetResult counts rows removed by ResetEvent.
type ResetResult struct {
	Students     int64 `json:"students"`
	Teachers     int64 `json:"teachers"`
	Donations    int64 `json:"donations"`
	Reservations int64 `json:"reservations"`
	Milestones   int64 `json:"milestones"`
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
