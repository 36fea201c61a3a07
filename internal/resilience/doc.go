// Package resilience wraps calls to rate-limited remote services with throttling, retry and error classification.
//
// # Throttling
//
// [RateLimiter] hands out one [Permit] at a time. A permit is only granted once the configured interval has
// elapsed since the previous permit was released, so spacing is measured from the end of one call to the start
// of the next. An optional per-minute ceiling is enforced with [rate.Limiter].
//
// # Retry
//
// [Execute] and [Pipeline.Run] acquire a permit, invoke the work function and classify failures:
//   - [KindTransient] : network, timeout and rate-limit failures, retried with exponential backoff and jitter
//   - [KindQuota] : daily or quota exhaustion, surfaced at once as [*QuotaExceededError]
//   - [KindOther] : anything else, returned unchanged without a retry
//
// A transient failure that survives every attempt is reported as [*RetryExhaustedError].
//
// [rate.Limiter]: https://pkg.go.dev/golang.org/x/time/rate#Limiter
package resilience
