// Package progress computes completion, throughput and ETA for jobs made of sized units.
package progress

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrNoActiveUnit       = errors.New("no unit in progress")
	ErrUnitInProgress     = errors.New("a unit is already in progress")
	ErrProgressRegression = errors.New("progress went backwards")
	ErrProgressOverflow   = errors.New("progress exceeds unit size")
	ErrUnknownUnit        = errors.New("unit was not declared")
	ErrUnitSizeMismatch   = errors.New("unit size differs from its declaration")
)

// Unit is one named, sized piece of a job.
type Unit struct {
	Name string
	Size int
}

type activeUnit struct {
	name string
	size int
	done int
}

// Tracker holds the counters for one job. It does no I/O and is safe for concurrent use.
type Tracker struct {
	mu  sync.Mutex
	now func() time.Time

	pending        []Unit // declared units not yet started
	declared       bool
	totalUnits     int
	totalItems     int
	completedUnits int
	completedItems int // items in completed units
	current        *activeUnit
	started        time.Time
}

// NewTracker creates a tracker reading time from now, or [time.Now] when nil.
func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	t := &Tracker{now: now}
	t.started = now()
	return t
}

// Initialize declares the job's units and resets every counter and the clock.
//
// With no declared units, each [Tracker.StartUnit] extends the job instead.
func (t *Tracker) Initialize(units []Unit) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pending = append([]Unit{}, units...)
	t.declared = len(units) > 0
	t.totalUnits = len(units)
	t.totalItems = 0
	for _, u := range units {
		t.totalItems += max(u.Size, 0)
	}
	t.completedUnits = 0
	t.completedItems = 0
	t.current = nil
	t.started = t.now()
}

// StartUnit begins the unit called name with size items.
func (t *Tracker) StartUnit(name string, size int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current != nil {
		return fmt.Errorf("%w: %s", ErrUnitInProgress, t.current.name)
	}
	if size < 0 {
		return fmt.Errorf("%w: %s has negative size %d", ErrProgressOverflow, name, size)
	}

	if !t.declared {
		t.totalUnits++
		t.totalItems += size
		t.current = &activeUnit{name: name, size: size}
		return nil
	}

	for i, u := range t.pending {
		if u.Name != name {
			continue
		}
		if u.Size != size {
			return fmt.Errorf("%w: %s declared %d, started with %d", ErrUnitSizeMismatch, name, u.Size, size)
		}
		t.pending = append(t.pending[:i:i], t.pending[i+1:]...)
		t.current = &activeUnit{name: name, size: size}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownUnit, name)
}

// UpdateProgress sets how many items of the current unit are done. n may not decrease or exceed the unit size.
func (t *Tracker) UpdateProgress(n int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	u := t.current
	switch {
	case u == nil:
		return ErrNoActiveUnit
	case n < u.done:
		return fmt.Errorf("%w: %s from %d to %d", ErrProgressRegression, u.name, u.done, n)
	case n > u.size:
		return fmt.Errorf("%w: %s %d > %d", ErrProgressOverflow, u.name, n, u.size)
	}
	u.done = n
	return nil
}

// CompleteUnit counts the current unit as fully done, whatever was last reported.
func (t *Tracker) CompleteUnit() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil {
		return ErrNoActiveUnit
	}
	t.completedItems += t.current.size
	t.completedUnits++
	t.current = nil
	return nil
}

// Snapshot is a point-in-time view of a [Tracker].
type Snapshot struct {
	TotalUnits     int
	CompletedUnits int
	CurrentUnit    string // empty between units
	CurrentDone    int
	CurrentSize    int
	TotalItems     int
	CompletedItems int
	Elapsed        time.Duration
	Remaining      time.Duration // valid only when HasETA
	HasETA         bool
	Throughput     float64 // items per second
}

// Percent is the share of all items completed, from 0 to 100. A job with no items is at 0.
func (s Snapshot) Percent() float64 {
	if s.TotalItems <= 0 {
		return 0
	}
	return float64(s.CompletedItems) / float64(s.TotalItems) * 100
}

// Snapshot computes the current view.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Snapshot{
		TotalUnits:     t.totalUnits,
		CompletedUnits: t.completedUnits,
		TotalItems:     t.totalItems,
		CompletedItems: t.completedItems,
		Elapsed:        t.now().Sub(t.started),
	}
	if u := t.current; u != nil {
		s.CurrentUnit = u.name
		s.CurrentDone = u.done
		s.CurrentSize = u.size
		s.CompletedItems += u.done
	}

	if s.CompletedItems > 0 {
		perItem := float64(s.Elapsed) / float64(s.CompletedItems)
		s.Remaining = time.Duration(perItem * float64(s.TotalItems-s.CompletedItems))
		s.HasETA = true
	}
	if secs := s.Elapsed.Seconds(); secs > 0 {
		s.Throughput = float64(s.CompletedItems) / secs
	}
	return s
}
