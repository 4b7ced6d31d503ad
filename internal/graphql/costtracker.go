package graphql

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxWait bounds a single capacity sleep. The tracker keeps looping
// after the cap rather than giving up: a misconfigured budget surfaces as the
// caller's own deadline error, never as a silent abort.
const DefaultMaxWait = 60 * time.Second

// CostTracker models the upstream's leaky-bucket cost budget. Capacity
// refills continuously at RestoreRate points per second; the server's
// throttleStatus report, when present, overwrites the local estimate because
// local restore-rate assumptions drift under multi-client load.
//
// Check-and-debit is a single critical section: Reserve and TryReserve debit
// the estimate before the network call and the executor refunds or settles
// afterwards, so concurrent callers can never observe the same capacity
// twice.
type CostTracker struct {
	mu          sync.Mutex
	capacity    float64
	current     float64
	restoreRate float64
	lastUpdate  time.Time
	maxWait     time.Duration

	// Clock overrides time.Now for tests. Set before first use.
	Clock func() time.Time
}

// NewCostTracker returns a full bucket with the given capacity and restore
// rate (points per second).
func NewCostTracker(capacity, restoreRate float64) *CostTracker {
	if capacity <= 0 {
		capacity = 1
	}
	if restoreRate < 0 {
		restoreRate = 0
	}
	t := &CostTracker{
		capacity:    capacity,
		current:     capacity,
		restoreRate: restoreRate,
		maxWait:     DefaultMaxWait,
	}
	t.lastUpdate = t.now()
	return t
}

// SetMaxWait overrides the per-iteration sleep cap used by WaitForCapacity
// and Reserve.
func (t *CostTracker) SetMaxWait(d time.Duration) {
	if d <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maxWait = d
}

// CanExecute refreshes the bucket and reports whether cost points are
// available right now. It never debits.
func (t *CostTracker) CanExecute(cost float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refreshLocked()
	return t.current >= cost
}

// TryReserve atomically checks capacity and debits cost when available.
// Callers that proceed to the network must later call Settle or Refund.
func (t *CostTracker) TryReserve(cost float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refreshLocked()
	if t.current < cost {
		return false
	}
	t.current -= cost
	return true
}

// Refund returns a reservation to the bucket, clamped at capacity. Used when
// the reserved call failed before any cost was actually charged upstream.
func (t *CostTracker) Refund(cost float64) {
	if cost <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refreshLocked()
	t.current += cost
	if t.current > t.capacity {
		t.current = t.capacity
	}
}

// RecordCost refreshes the bucket and debits the actual cost, floored at
// zero. A non-nil status replaces current, capacity, and restore rate with
// the server's reported values.
func (t *CostTracker) RecordCost(actual float64, status *ThrottleStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refreshLocked()
	t.current -= actual
	if t.current < 0 {
		t.current = 0
	}
	t.applyStatusLocked(status)
}

// Settle reconciles a prior reservation with the actual charged cost, then
// applies the server's budget report when present. A cheaper-than-estimated
// call gets the difference back; a dearer one is debited further.
func (t *CostTracker) Settle(reserved, actual float64, status *ThrottleStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refreshLocked()
	t.current += reserved - actual
	if t.current > t.capacity {
		t.current = t.capacity
	}
	if t.current < 0 {
		t.current = 0
	}
	t.applyStatusLocked(status)
}

// WaitForCapacity blocks until cost points are available or ctx is done. It
// sleeps the projected deficit restore time, capped per iteration, and
// re-checks in a loop. Only the calling goroutine suspends.
func (t *CostTracker) WaitForCapacity(ctx context.Context, cost float64) error {
	for {
		t.mu.Lock()
		t.refreshLocked()
		if t.current >= cost {
			t.mu.Unlock()
			return nil
		}
		wait := t.deficitWaitLocked(cost)
		t.mu.Unlock()

		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}
}

// Reserve combines WaitForCapacity and TryReserve in one loop so the check
// and the debit happen under the same lock acquisition.
func (t *CostTracker) Reserve(ctx context.Context, cost float64) error {
	for {
		t.mu.Lock()
		t.refreshLocked()
		if t.current >= cost {
			t.current -= cost
			t.mu.Unlock()
			return nil
		}
		wait := t.deficitWaitLocked(cost)
		t.mu.Unlock()

		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}
}

// Snapshot refreshes and reports the current budget view.
func (t *CostTracker) Snapshot() BudgetSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refreshLocked()
	return BudgetSnapshot{
		Capacity:    t.capacity,
		Available:   t.current,
		RestoreRate: t.restoreRate,
		LastUpdate:  t.lastUpdate,
	}
}

func (t *CostTracker) refreshLocked() {
	now := t.now()
	elapsed := now.Sub(t.lastUpdate).Seconds()
	if elapsed > 0 && t.restoreRate > 0 {
		t.current += elapsed * t.restoreRate
		if t.current > t.capacity {
			t.current = t.capacity
		}
	}
	t.lastUpdate = now
}

func (t *CostTracker) applyStatusLocked(status *ThrottleStatus) {
	if status == nil {
		return
	}
	t.capacity = status.MaximumAvailable
	t.current = status.CurrentlyAvailable
	if status.RestoreRate > 0 {
		t.restoreRate = status.RestoreRate
	}
	if t.current > t.capacity {
		t.current = t.capacity
	}
	if t.current < 0 {
		t.current = 0
	}
	t.lastUpdate = t.now()
}

func (t *CostTracker) deficitWaitLocked(cost float64) time.Duration {
	deficit := cost - t.current
	wait := t.maxWait
	if t.restoreRate > 0 {
		projected := time.Duration(deficit / t.restoreRate * float64(time.Second))
		if projected < wait {
			wait = projected
		}
	}
	if wait < 10*time.Millisecond {
		wait = 10 * time.Millisecond
	}
	return wait
}

func (t *CostTracker) now() time.Time {
	if t.Clock != nil {
		return t.Clock()
	}
	return time.Now()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
