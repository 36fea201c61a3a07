package resilience

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
)

// Policy is the retry configuration shared by every pipeline in the process.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      bool
}

// DefaultPolicy is the production retry policy.
var DefaultPolicy = Policy{
	MaxAttempts: 10,
	BaseDelay:   5 * time.Second,
	MaxDelay:    5 * time.Minute,
	Jitter:      true,
}

// jitterFraction bounds the random extra delay as a share of the nominal delay.
const jitterFraction = 0.2

// Delay returns the wait before retry number n (n >= 1), given a random sample in [0, 1).
//
// The nominal delay is BaseDelay * 2^(n-1); jitter adds up to 20% and the result is capped at MaxDelay.
func (p Policy) Delay(n int, sample float64) time.Duration {
	if n < 1 {
		n = 1
	}
	d := p.BaseDelay
	for i := 1; i < n && (p.MaxDelay <= 0 || d < p.MaxDelay); i++ {
		d *= 2
	}
	if p.Jitter {
		d += time.Duration(float64(d) * jitterFraction * sample)
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// PipelineOpts configures a [Pipeline].
type PipelineOpts struct {
	Service string       // Label used in quota errors and log lines
	Limiter *RateLimiter // Shared throttle; one is created with the default interval when nil
	Policy  Policy       // Zero value means DefaultPolicy
	Logger  *log.Logger

	Wait   func(context.Context, time.Duration) error // Backoff sleep, defaults to a cancellable timer
	Now    func() time.Time
	Random func() float64
}

// Pipeline runs work through the rate limiter and retries transient failures.
type Pipeline struct {
	service string
	limiter *RateLimiter
	policy  Policy
	logger  *log.Logger
	wait    func(context.Context, time.Duration) error
	now     func() time.Time
	random  func() float64
}

// NewPipeline creates a pipeline for one service.
func NewPipeline(opts PipelineOpts) *Pipeline {
	if opts.Limiter == nil {
		opts.Limiter = NewRateLimiter(LimiterOpts{Interval: DefaultThrottleInterval})
	}
	if opts.Policy.MaxAttempts < 1 {
		opts.Policy = DefaultPolicy
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Wait == nil {
		opts.Wait = sleepContext
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Random == nil {
		opts.Random = rand.Float64
	}

	return &Pipeline{
		service: opts.Service,
		limiter: opts.Limiter,
		policy:  opts.Policy,
		logger:  opts.Logger,
		wait:    opts.Wait,
		now:     opts.Now,
		random:  opts.Random,
	}
}

// Service returns the service label.
func (p *Pipeline) Service() string {
	return p.service
}

// Limiter returns the shared rate limiter.
func (p *Pipeline) Limiter() *RateLimiter {
	return p.limiter
}

// Run is [Execute] for work without a result.
func (p *Pipeline) Run(ctx context.Context, operation string, work func(context.Context) error) error {
	_, err := Execute(ctx, p, operation, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, work(ctx)
	})
	return err
}

// Execute runs work under the pipeline's permit, retrying transient failures per the policy.
//
// The permit is held for the whole attempt sequence and released when it concludes, whatever the outcome,
// so the next call is throttled relative to this call's completion.
func Execute[T any](ctx context.Context, p *Pipeline, operation string, work func(context.Context) (T, error)) (T, error) {
	var zero T

	permit, err := p.limiter.Acquire(ctx)
	if err != nil {
		return zero, err
	}
	defer permit.Release()

	var totalWait time.Duration
	for attempt := 1; ; attempt++ {
		result, err := work(ctx)
		if err == nil {
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		switch Classify(err) {
		case KindQuota:
			return zero, p.quotaError(err)
		case KindOther:
			return zero, err
		}

		if attempt >= p.policy.MaxAttempts {
			p.logger.Error("retry budget exhausted", "service", p.service, "operation", operation, "attempts", attempt, "err", err)
			return zero, &RetryExhaustedError{
				Operation: operation,
				Attempts:  attempt,
				TotalWait: totalWait,
				Err:       err,
			}
		}

		delay := p.policy.Delay(attempt, p.random())
		p.logger.Warn("transient failure, retrying",
			"service", p.service,
			"operation", operation,
			"attempt", attempt,
			"max_attempts", p.policy.MaxAttempts,
			"delay", delay.Round(time.Millisecond),
			"next_retry", p.now().Add(delay).Format("15:04:05"),
			"err", err,
		)

		if err := p.wait(ctx, delay); err != nil {
			return zero, err
		}
		totalWait += delay
	}
}

// quotaError passes an existing [*QuotaExceededError] through so nested pipelines short-circuit the outer ones.
func (p *Pipeline) quotaError(err error) error {
	var qe *QuotaExceededError
	if errors.As(err, &qe) {
		return qe
	}
	p.logger.Error("quota exhausted", "service", p.service, "err", err)
	return &QuotaExceededError{Service: p.service, Message: err.Error()}
}
