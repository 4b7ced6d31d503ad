package graphql

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualClock is a settable clock for deterministic bucket math.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTrackerWithClock(capacity, restoreRate float64) (*CostTracker, *manualClock) {
	clock := newManualClock()
	tracker := NewCostTracker(capacity, restoreRate)
	tracker.Clock = clock.Now
	return tracker, clock
}

func TestCostTrackerStartsFull(t *testing.T) {
	tracker, _ := newTrackerWithClock(1000, 50)

	snapshot := tracker.Snapshot()
	assert.Equal(t, 1000.0, snapshot.Capacity)
	assert.Equal(t, 1000.0, snapshot.Available)
	assert.Equal(t, 50.0, snapshot.RestoreRate)
}

func TestCostTrackerRestoresOverTime(t *testing.T) {
	tracker, clock := newTrackerWithClock(1000, 50)

	require.True(t, tracker.TryReserve(900))
	assert.InDelta(t, 100.0, tracker.Snapshot().Available, 0.001)

	// 4 seconds at 50 pts/s restores 200 points.
	clock.Advance(4 * time.Second)
	assert.InDelta(t, 300.0, tracker.Snapshot().Available, 0.001)

	// Restore clamps at capacity.
	clock.Advance(time.Hour)
	assert.InDelta(t, 1000.0, tracker.Snapshot().Available, 0.001)
}

func TestCostTrackerTryReserveRejectsWhenInsufficient(t *testing.T) {
	tracker, _ := newTrackerWithClock(100, 10)

	require.True(t, tracker.TryReserve(60))
	assert.False(t, tracker.TryReserve(60))

	// The failed reserve must not debit the bucket.
	assert.InDelta(t, 40.0, tracker.Snapshot().Available, 0.001)
}

func TestCostTrackerRefundClampsAtCapacity(t *testing.T) {
	tracker, _ := newTrackerWithClock(100, 10)

	require.True(t, tracker.TryReserve(30))
	tracker.Refund(500)

	assert.InDelta(t, 100.0, tracker.Snapshot().Available, 0.001)
}

func TestCostTrackerServerReportOverwritesLocalState(t *testing.T) {
	tracker, _ := newTrackerWithClock(1000, 50)

	require.True(t, tracker.TryReserve(400))

	tracker.RecordCost(0, &ThrottleStatus{
		MaximumAvailable:   2000,
		CurrentlyAvailable: 1234,
		RestoreRate:        100,
	})

	snapshot := tracker.Snapshot()
	assert.Equal(t, 2000.0, snapshot.Capacity)
	assert.Equal(t, 1234.0, snapshot.Available)
	assert.Equal(t, 100.0, snapshot.RestoreRate)
}

func TestCostTrackerSettleUsesActualCost(t *testing.T) {
	tracker, _ := newTrackerWithClock(1000, 50)

	require.True(t, tracker.TryReserve(100))

	// The server charged only 40 of the reserved 100 points.
	tracker.Settle(100, 40, nil)
	assert.InDelta(t, 960.0, tracker.Snapshot().Available, 0.001)
}

func TestCostTrackerSettleIgnoresZeroRestoreRate(t *testing.T) {
	tracker, _ := newTrackerWithClock(1000, 50)

	tracker.Settle(0, 0, &ThrottleStatus{
		MaximumAvailable:   1000,
		CurrentlyAvailable: 500,
		RestoreRate:        0,
	})

	// A zero restore rate from the server must not freeze the bucket.
	assert.Equal(t, 50.0, tracker.Snapshot().RestoreRate)
}

func TestCostTrackerCanExecuteDoesNotDebit(t *testing.T) {
	tracker, _ := newTrackerWithClock(100, 10)

	assert.True(t, tracker.CanExecute(80))
	assert.True(t, tracker.CanExecute(80))
	assert.InDelta(t, 100.0, tracker.Snapshot().Available, 0.001)
}

func TestCostTrackerReserveWaitsForCapacity(t *testing.T) {
	tracker, clock := newTrackerWithClock(100, 100)
	tracker.SetMaxWait(time.Second)

	require.True(t, tracker.TryReserve(100))

	// Drive the clock forward while Reserve sleeps so the deficit clears.
	done := make(chan error, 1)
	go func() {
		done <- tracker.Reserve(context.Background(), 50)
	}()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case err := <-done:
			require.NoError(t, err)
			assert.LessOrEqual(t, tracker.Snapshot().Available, 50.0)
			return
		case <-deadline:
			t.Fatal("Reserve did not return after capacity restored")
		case <-time.After(10 * time.Millisecond):
			clock.Advance(time.Second)
		}
	}
}

func TestCostTrackerReserveHonorsContextCancellation(t *testing.T) {
	tracker, _ := newTrackerWithClock(100, 1)

	require.True(t, tracker.TryReserve(100))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := tracker.Reserve(ctx, 50)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCostTrackerConcurrentReservesNeverOverdraw(t *testing.T) {
	tracker, _ := newTrackerWithClock(100, 0.001)

	var granted int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tracker.TryReserve(10) {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, granted, int64(10))
	assert.GreaterOrEqual(t, tracker.Snapshot().Available, 0.0)
}
