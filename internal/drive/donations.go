package drive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"candrive/internal/metrics"
	"candrive/internal/queue"
)

// DonationInput records cans for exactly one of a student or a teacher.
type DonationInput struct {
	StudentID string
	TeacherID string
	Amount    int64
	Note      string
}

// RecordDonation validates and stores a donation, drops cached boards of the
// event, and notifies the milestone worker.
func (s *Service) RecordDonation(ctx context.Context, eventID string, in DonationInput, adminID string) (Donation, error) {
	if in.Amount <= 0 {
		return Donation{}, invalid("amount", "amount must be greater than zero")
	}
	studentID, teacherID := strings.TrimSpace(in.StudentID), strings.TrimSpace(in.TeacherID)
	if (studentID == "") == (teacherID == "") {
		return Donation{}, invalid("donor", "exactly one of student_id or teacher_id is required")
	}

	d := Donation{EventID: eventID, Amount: in.Amount, AdminID: adminID, Note: strings.TrimSpace(in.Note)}
	if studentID != "" {
		st, err := s.repo.GetStudent(ctx, eventID, studentID)
		if err != nil {
			return Donation{}, fmt.Errorf("student %s: %w", studentID, err)
		}
		d.DonorKind, d.DonorID, d.DonorName = KindStudent, st.ID, st.FullName()
	} else {
		t, err := s.repo.GetTeacher(ctx, eventID, teacherID)
		if err != nil {
			return Donation{}, fmt.Errorf("teacher %s: %w", teacherID, err)
		}
		d.DonorKind, d.DonorID, d.DonorName = KindTeacher, t.ID, t.FullName
	}

	d, err := s.repo.InsertDonation(ctx, d)
	if err != nil {
		return Donation{}, err
	}
	metrics.DonationsRecorded.Inc()
	metrics.CansRecorded.Add(float64(d.Amount))
	s.invalidate(ctx, eventID)
	s.publishDonation(ctx, d)
	return d, nil
}

func (s *Service) publishDonation(ctx context.Context, d Donation) {
	if s.pub == nil {
		return
	}
	msg, err := queue.NewMessage(queue.TypeDonationRecorded, queue.DonationRecorded{
		EventID:    d.EventID,
		DonationID: d.ID,
		DonorKind:  string(d.DonorKind),
		DonorID:    d.DonorID,
		Amount:     d.Amount,
		At:         d.CreatedAt,
	})
	if err == nil {
		err = s.pub.Publish(ctx, msg)
	}
	if err != nil {
		// the next message rescans the whole event
		slog.Warn("donation event not published", "donation_id", d.ID, "error", err)
	}
}

// ListDonations returns the event's donations, newest first.
func (s *Service) ListDonations(ctx context.Context, eventID string) ([]Donation, error) {
	return s.repo.ListDonations(ctx, eventID)
}

// IsNotFound is a convenience for callers outside the package.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
