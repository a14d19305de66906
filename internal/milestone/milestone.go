// Package milestone consumes donation events and records when a class first
// reaches its buyout threshold.
package milestone

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"candrive/internal/queue"
)

// Recorder writes missing milestones for an event.
type Recorder interface {
	RecordMilestones(ctx context.Context, eventID string) (int, error)
}

// Handle processes one message. Messages of other types are ignored.
func Handle(ctx context.Context, rec Recorder, msg queue.Message) error {
	if msg.Type != queue.TypeDonationRecorded {
		return nil
	}
	var body queue.DonationRecorded
	if err := json.Unmarshal(msg.Body, &body); err != nil {
		return fmt.Errorf("decode %s: %w", msg.Type, err)
	}
	if body.EventID == "" {
		return fmt.Errorf("%s without event id", msg.Type)
	}
	if _, err := rec.RecordMilestones(ctx, body.EventID); err != nil {
		return fmt.Errorf("record milestones for %s: %w", body.EventID, err)
	}
	return nil
}

// Run consumes q until ctx is cancelled or the queue closes.
func Run(ctx context.Context, q queue.Queue, rec Recorder) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	slog.Info("milestone consumer started")
	for msg := range messages {
		if err := Handle(ctx, rec, msg); err != nil {
			slog.Error("milestone message failed", "type", msg.Type, "error", err)
		}
	}
	slog.Info("milestone consumer stopped")
	return nil
}
