package milestone

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candrive/internal/queue"
)

type fakeRecorder struct {
	mu     sync.Mutex
	events []string
	err    error
	done   chan struct{}
}

func (f *fakeRecorder) RecordMilestones(_ context.Context, eventID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventID)
	if f.done != nil {
		f.done <- struct{}{}
	}
	return 1, f.err
}

func message(t *testing.T, typ string, body any) queue.Message {
	t.Helper()
	msg, err := queue.NewMessage(typ, body)
	require.NoError(t, err)
	return msg
}

func TestHandle(t *testing.T) {
	rec := &fakeRecorder{}
	ctx := context.Background()

	require.NoError(t, Handle(ctx, rec, message(t, queue.TypeDonationRecorded, queue.DonationRecorded{EventID: "e1"})))
	require.NoError(t, Handle(ctx, rec, message(t, "other", map[string]string{"x": "y"})))
	assert.Equal(t, []string{"e1"}, rec.events)

	assert.Error(t, Handle(ctx, rec, queue.Message{Type: queue.TypeDonationRecorded, Body: []byte("{")}))
	assert.Error(t, Handle(ctx, rec, message(t, queue.TypeDonationRecorded, queue.DonationRecorded{})))

	rec.err = errors.New("db down")
	assert.Error(t, Handle(ctx, rec, message(t, queue.TypeDonationRecorded, queue.DonationRecorded{EventID: "e2"})))
}

func TestRunConsumesUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := queue.NewInMemory(4)
	rec := &fakeRecorder{done: make(chan struct{}, 4)}

	stopped := make(chan error, 1)
	go func() { stopped <- Run(ctx, q, rec) }()

	require.NoError(t, q.Publish(ctx, message(t, queue.TypeDonationRecorded, queue.DonationRecorded{EventID: "e1"})))
	select {
	case <-rec.done:
	case <-time.After(3 * time.Second):
		t.Fatal("message not handled")
	}

	cancel()
	select {
	case err := <-stopped:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return")
	}
}
