package drive

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"candrive/internal/metrics"
)

// ListReservations returns all reservations of an event, oldest first.
func (s *Service) ListReservations(ctx context.Context, eventID string) ([]Reservation, error) {
	return s.repo.ListReservations(ctx, eventID)
}

// CreateReservation claims the given streets for the donor.
func (s *Service) CreateReservation(ctx context.Context, eventID string, in ReservationInput) (Reservation, error) {
	res, err := s.prepareReservation(ctx, eventID, in)
	if err != nil {
		return Reservation{}, err
	}
	created, err := s.repo.CreateReservation(ctx, res)
	if err != nil {
		return Reservation{}, countConflict(err)
	}
	return created, nil
}

// UpdateReservation replaces the streets, path and members of a reservation.
// A non-admin caller must supply the same donor key as the current holder.
func (s *Service) UpdateReservation(ctx context.Context, eventID, id string, in ReservationInput, asAdmin bool) (Reservation, error) {
	cur, err := s.repo.GetReservation(ctx, eventID, id)
	if err != nil {
		return Reservation{}, fmt.Errorf("reservation %s: %w", id, err)
	}
	res, err := s.prepareReservation(ctx, eventID, in)
	if err != nil {
		return Reservation{}, err
	}
	if !asAdmin && res.Donor.Key() != cur.Donor.Key() {
		return Reservation{}, fmt.Errorf("reservation %s: %w", id, ErrForbidden)
	}
	res.ID = cur.ID
	res.CreatedAt = cur.CreatedAt
	updated, err := s.repo.UpdateReservation(ctx, res)
	if err != nil {
		return Reservation{}, countConflict(err)
	}
	return updated, nil
}

// DeleteReservation removes a reservation and frees its streets.
func (s *Service) DeleteReservation(ctx context.Context, eventID, id string) error {
	if err := s.repo.DeleteReservation(ctx, eventID, id); err != nil {
		return fmt.Errorf("delete reservation %s: %w", id, err)
	}
	return nil
}

func countConflict(err error) error {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		metrics.ReservationConflicts.Inc()
	}
	return err
}

// prepareReservation validates input and resolves the donor against the roster.
func (s *Service) prepareReservation(ctx context.Context, eventID string, in ReservationInput) (Reservation, error) {
	streets := dedupeStreets(SplitStreets(in.Streets))
	if len(streets) == 0 {
		return Reservation{}, invalid("streets", "at least one street is required")
	}

	donor, err := s.resolveDonor(ctx, eventID, in.Donor)
	if err != nil {
		return Reservation{}, err
	}

	members := []string{}
	self := FoldName(donor.Name)
	for _, m := range in.GroupMembers {
		for _, name := range strings.Split(m, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if FoldName(name) == self {
				return Reservation{}, invalid("group_members", "the donor cannot be listed as their own group member")
			}
			members = append(members, name)
		}
	}

	path := make([]PathPoint, 0, len(in.Path))
	for i, p := range in.Path {
		if p.Lat < -90 || p.Lat > 90 {
			return Reservation{}, invalid(fmt.Sprintf("path[%d].lat", i), "latitude must be between -90 and 90")
		}
		if p.Lng < -180 || p.Lng > 180 {
			return Reservation{}, invalid(fmt.Sprintf("path[%d].lng", i), "longitude must be between -180 and 180")
		}
		path = append(path, PathPoint{Name: strings.TrimSpace(p.Name), Lat: p.Lat, Lng: p.Lng})
	}

	return Reservation{
		EventID:      eventID,
		Donor:        donor,
		Streets:      streets,
		StreetName:   strings.Join(streets, ", "),
		Path:         path,
		GroupMembers: members,
	}, nil
}

func dedupeStreets(streets []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(streets))
	for _, st := range streets {
		key := StreetKey(st)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, st)
	}
	return out
}

// resolveDonor checks that student and teacher donors exist in the event and
// fills in their roster name.
func (s *Service) resolveDonor(ctx context.Context, eventID string, d DonorRef) (DonorRef, error) {
	d.Name = strings.TrimSpace(d.Name)
	d.ID = strings.TrimSpace(d.ID)
	switch d.Kind {
	case KindStudent:
		if d.ID == "" {
			return DonorRef{}, invalid("donor.id", "student id is required")
		}
		st, err := s.repo.GetStudent(ctx, eventID, d.ID)
		if errors.Is(err, ErrNotFound) {
			return DonorRef{}, invalid("donor.id", "student is not on the roster")
		}
		if err != nil {
			return DonorRef{}, err
		}
		d.Name = st.FullName()
	case KindTeacher:
		if d.ID == "" {
			return DonorRef{}, invalid("donor.id", "teacher id is required")
		}
		t, err := s.repo.GetTeacher(ctx, eventID, d.ID)
		if errors.Is(err, ErrNotFound) {
			return DonorRef{}, invalid("donor.id", "teacher is not on the roster")
		}
		if err != nil {
			return DonorRef{}, err
		}
		d.Name = t.FullName
	case KindGroup:
		d.ID = ""
	default:
		return DonorRef{}, invalid("donor.kind", "donor kind must be student, teacher or group")
	}
	if d.Name == "" {
		return DonorRef{}, invalid("donor.name", "donor name is required")
	}
	return d, nil
}

// ExportReservationsCSV writes one row per reservation.
func (s *Service) ExportReservationsCSV(ctx context.Context, eventID string, w io.Writer) error {
	reservations, err := s.repo.ListReservations(ctx, eventID)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Street Name", "Donor", "Donor Type", "Group Members", "Created At"}); err != nil {
		return err
	}
	for _, r := range reservations {
		if err := cw.Write([]string{
			r.StreetName,
			r.Donor.Name,
			string(r.Donor.Kind),
			strings.Join(r.GroupMembers, ", "),
			r.CreatedAt.Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ImportReservations loads rows of "Student Name, Street Name, Group Members,
// Latitude, Longitude" as group reservations. Rows missing a name or street,
// with bad coordinates, or conflicting with an existing claim are skipped.
func (s *Service) ImportReservations(ctx context.Context, eventID string, r io.Reader) (ImportResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return ImportResult{}, &ValidationError{Message: "unreadable csv: " + err.Error(), Fields: map[string]string{"file": "unreadable"}}
	}
	if len(records) == 0 {
		return ImportResult{}, invalid("file", "csv file is empty")
	}
	cols := map[string]int{}
	for i, h := range records[0] {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	field := func(row []string, names ...string) string {
		for _, n := range names {
			if i, ok := cols[n]; ok && i < len(row) {
				return strings.TrimSpace(row[i])
			}
		}
		return ""
	}

	var res ImportResult
	for _, row := range records[1:] {
		name := field(row, "student name", "donor", "name")
		street := field(row, "street name", "street")
		if name == "" || street == "" {
			res.Skipped++
			continue
		}
		in := ReservationInput{
			Donor:        DonorRef{Kind: KindGroup, Name: name},
			Streets:      []string{street},
			GroupMembers: []string{field(row, "group members")},
		}
		if lat, lng := field(row, "latitude", "lat"), field(row, "longitude", "lng"); lat != "" && lng != "" {
			la, errLat := strconv.ParseFloat(lat, 64)
			ln, errLng := strconv.ParseFloat(lng, 64)
			if errLat != nil || errLng != nil {
				res.Skipped++
				continue
			}
			in.Path = []PathPoint{{Name: street, Lat: la, Lng: ln}}
		}
		if _, err := s.CreateReservation(ctx, eventID, in); err != nil {
			var conflict *ConflictError
			var verr *ValidationError
			if errors.As(err, &conflict) || errors.As(err, &verr) {
				res.Skipped++
				continue
			}
			return res, err
		}
		res.Added++
	}
	return res, nil
}
