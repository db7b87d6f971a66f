package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// ErrSnapshotUnavailable is returned when the record store cannot be read.
// Nothing is computed from a partial snapshot.
var ErrSnapshotUnavailable = errors.New("record store snapshot unavailable")

const retryBackoff = 200 * time.Millisecond

// RetryPolicy controls how store calls are bounded and retried
type RetryPolicy struct {
	// Timeout bounds each attempt; zero means no per-attempt timeout
	Timeout time.Duration

	// Retries is the number of extra attempts made after a transient failure
	Retries int
}

// DefaultRetryPolicy gives every store call a 10s timeout and a single retry
var DefaultRetryPolicy = RetryPolicy{Timeout: 10 * time.Second, Retries: 1}

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// MarkTransient flags an error as safe to retry
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err was marked transient or is an attempt timeout
func IsTransient(err error) bool {
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// WithRetry runs fn with the policy's per-attempt timeout, retrying transient failures.
// The parent context's own cancellation is never retried.
func WithRetry(ctx context.Context, policy RetryPolicy, logger *zap.Logger, op string, fn func(ctx context.Context) error) error {
	retries := policy.Retries
	if retries < 0 {
		retries = 0
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(retryBackoff), uint64(retries)), ctx)

	attempts := 0
	err := backoff.RetryNotify(func() error {
		attempts++
		err := runAttempt(ctx, policy.Timeout, fn)
		if err != nil && (ctx.Err() != nil || !IsTransient(err)) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, wait time.Duration) {
		logger.Warn("Retrying store operation",
			zap.String("operation", op),
			zap.Int("attempt", attempts+1),
			zap.Duration("backoff", wait),
			zap.Error(err))
	})
	if err == nil {
		return nil
	}

	if ctx.Err() == nil && IsTransient(err) {
		return fmt.Errorf("%s failed after %d attempts: %w", op, attempts, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func runAttempt(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(attemptCtx)
}

// LoadSnapshot reads the full applicant pool and quota records under the retry policy.
// Any failure is reported as ErrSnapshotUnavailable.
func LoadSnapshot(ctx context.Context, store interface {
	ApplicantStore
	QuotaStore
}, policy RetryPolicy, logger *zap.Logger) ([]ApplicantRecord, []QuotaRecord, error) {
	var applicants []ApplicantRecord
	err := WithRetry(ctx, policy, logger, "load applicants", func(ctx context.Context) error {
		var err error
		applicants, err = store.GetApplicants(ctx)
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrSnapshotUnavailable, err)
	}

	var quotas []QuotaRecord
	err = WithRetry(ctx, policy, logger, "load quotas", func(ctx context.Context) error {
		var err error
		quotas, err = store.GetQuotas(ctx)
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrSnapshotUnavailable, err)
	}

	return applicants, quotas, nil
}
