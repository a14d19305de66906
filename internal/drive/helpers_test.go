package drive

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"candrive/internal/store"
)

var dbSeq atomic.Int64

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	return newTestServiceWith(t, Options{}, nil, nil)
}

func newTestServiceWith(t *testing.T, opts Options, cache Cache, pub Publisher) (*Service, string) {
	t.Helper()
	ctx := context.Background()
	dsn := fmt.Sprintf("file:drive%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", dbSeq.Add(1))
	db, err := store.NewDB(ctx, "sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))

	svc := NewService(NewRepository(db.Client), opts, cache, pub)
	evt, err := svc.CreateEvent(ctx, EventInput{Name: "Fall Can Drive", SchoolYear: "2026-2027", Active: true})
	require.NoError(t, err)
	return svc, evt.ID
}

func addStudent(t *testing.T, svc *Service, eventID, first, last, grade, room, teacher string) StudentView {
	t.Helper()
	st, err := svc.CreateStudent(context.Background(), eventID, StudentInput{
		FirstName: first, LastName: last, Grade: grade, HomeroomNumber: room, HomeroomTeacher: teacher,
	})
	require.NoError(t, err)
	return st
}

func donate(t *testing.T, svc *Service, eventID, studentID string, amount int64) Donation {
	t.Helper()
	d, err := svc.RecordDonation(context.Background(), eventID, DonationInput{StudentID: studentID, Amount: amount}, "admin-1")
	require.NoError(t, err)
	return d
}

func studentDonor(st StudentView) DonorRef {
	return DonorRef{Kind: KindStudent, ID: st.ID}
}

type memCache struct {
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := m.data[key]
	return v, ok
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) {
	m.data[key] = value
}

func (m *memCache) DeletePrefix(_ context.Context, prefix string) {
	for k := range m.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(m.data, k)
		}
	}
}
