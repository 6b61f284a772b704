package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type countingRefresher struct {
	calls atomic.Int32
}

func (r *countingRefresher) RefreshAll() {
	r.calls.Add(1)
}

type mockSweeper struct {
	mock.Mock
}

func (m *mockSweeper) SweepEmptyRooms(ctx context.Context, idle time.Duration) (int, error) {
	args := m.Called(ctx, idle)
	return args.Int(0), args.Error(1)
}

func TestScheduler_ReconcileRuns(t *testing.T) {
	hub := &countingRefresher{}
	s, err := NewScheduler(hub, &mockSweeper{}, Options{ReconcileInterval: time.Second})
	require.NoError(t, err)

	s.Start()
	defer s.Stop(context.Background())

	assert.Eventually(t, func() bool { return hub.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_Sweep(t *testing.T) {
	rooms := &mockSweeper{}
	rooms.On("SweepEmptyRooms", mock.Anything, 15*time.Minute).Return(2, nil).Once()
	rooms.On("SweepEmptyRooms", mock.Anything, 15*time.Minute).Return(0, errors.New("db down")).Once()

	s, err := NewScheduler(&countingRefresher{}, rooms, Options{EmptyRoomIdle: 15 * time.Minute})
	require.NoError(t, err)

	s.sweep()
	s.sweep()

	rooms.AssertExpectations(t)
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	_, err := NewScheduler(&countingRefresher{}, &mockSweeper{}, Options{SweepSchedule: "every now and then"})
	assert.Error(t, err)
}

func TestCronLogger_SkipsOddKeys(t *testing.T) {
	assert.NotPanics(t, func() {
		cronLogger{}.Info("tick", "job", 1, "dangling")
		cronLogger{}.Error(errors.New("boom"), "failed", 42, "value")
	})
}
