package resilience

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// DefaultThrottleInterval is the minimum gap between the end of one guarded call and the start of the next.
const DefaultThrottleInterval = 3 * time.Second

// LimiterOpts configures a [RateLimiter].
type LimiterOpts struct {
	Interval  time.Duration                              // Gap measured from the previous release
	PerMinute int                                        // Optional calls-per-minute ceiling, 0 disables it
	Now       func() time.Time                           // Clock, defaults to time.Now
	Wait      func(context.Context, time.Duration) error // Sleep, defaults to a cancellable timer
}

// RateLimiter serializes guarded calls and spaces them by a fixed interval.
//
// Only one [Permit] is outstanding at a time across every caller sharing the limiter.
type RateLimiter struct {
	interval time.Duration
	slot     *semaphore.Weighted
	ceiling  *rate.Limiter
	now      func() time.Time
	wait     func(context.Context, time.Duration) error

	mu       sync.Mutex
	lastCall time.Time
}

// NewRateLimiter creates a limiter; a negative interval is treated as zero.
func NewRateLimiter(opts LimiterOpts) *RateLimiter {
	if opts.Interval < 0 {
		opts.Interval = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Wait == nil {
		opts.Wait = sleepContext
	}

	l := &RateLimiter{
		interval: opts.Interval,
		slot:     semaphore.NewWeighted(1),
		now:      opts.Now,
		wait:     opts.Wait,
	}
	if opts.PerMinute > 0 {
		l.ceiling = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.PerMinute)), 1)
	}
	return l
}

// Permit is the right to make one guarded call. Release it when the call sequence concludes.
type Permit struct {
	limiter *RateLimiter
	once    sync.Once
}

// Acquire blocks until the caller holds the only permit and the throttle interval has passed.
//
// On cancellation the wait is abandoned, ctx.Err() is returned and the last-call time is left unchanged.
func (l *RateLimiter) Acquire(ctx context.Context) (*Permit, error) {
	if err := l.slot.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	l.mu.Lock()
	last := l.lastCall
	l.mu.Unlock()

	if !last.IsZero() {
		if remaining := l.interval - l.now().Sub(last); remaining > 0 {
			if err := l.wait(ctx, remaining); err != nil {
				l.slot.Release(1)
				return nil, err
			}
		}
	}

	if l.ceiling != nil {
		if err := l.ceiling.Wait(ctx); err != nil {
			l.slot.Release(1)
			return nil, err
		}
	}

	return &Permit{limiter: l}, nil
}

// Release stamps the last-call time with the current time and frees the slot. Extra calls are no-ops.
func (p *Permit) Release() {
	if p == nil {
		return
	}
	p.once.Do(func() {
		l := p.limiter
		l.mu.Lock()
		l.lastCall = l.now()
		l.mu.Unlock()
		l.slot.Release(1)
	})
}

// LastCall returns when the most recent permit was released.
func (l *RateLimiter) LastCall() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastCall
}

// Interval returns the configured throttle interval.
func (l *RateLimiter) Interval() time.Duration {
	return l.interval
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
