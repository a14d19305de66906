package drive

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"candrive/internal/leaderboard"
	"candrive/internal/metrics"
)

// RecordMilestones stores the crossing time of every class that is eligible
// for buyout but has no record yet. It returns how many were written.
// Replaying it is harmless; the first write per class wins.
func (s *Service) RecordMilestones(ctx context.Context, eventID string) (int, error) {
	students, teachers, err := s.totals(ctx, eventID, nil)
	if err != nil {
		return 0, err
	}
	reached, err := s.repo.Milestones(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("milestones: %w", err)
	}
	at := s.clock().UTC().Truncate(time.Microsecond)
	written := 0
	for _, b := range leaderboard.Buyouts(leaderboard.BuildClasses(students, teachers), s.opts.Leaderboard.CansPerStudent) {
		if !b.IsEligible {
			continue
		}
		if _, ok := reached[b.Key()]; ok {
			continue
		}
		ok, err := s.repo.InsertMilestone(ctx, Milestone{
			EventID:      eventID,
			ClassKey:     b.Key(),
			Teacher:      b.HomeroomTeacher,
			Room:         b.HomeroomNumber,
			RequiredCans: b.RequiredCans,
			ActualCans:   b.ActualCans,
			ReachedAt:    at,
		})
		if err != nil {
			return written, err
		}
		if ok {
			written++
			metrics.MilestonesRecorded.Inc()
			slog.Info("class reached buyout", "event_id", eventID, "class", b.ClassName, "cans", b.ActualCans, "required", b.RequiredCans)
		}
	}
	if written > 0 {
		s.invalidate(ctx, eventID)
	}
	return written, nil
}
