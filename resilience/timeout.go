package resilience

import (
	"context"
	"errors"
	"time"
)

// DefaultTimeout is the budget applied when TimeoutConfig.Timeout is unset.
const DefaultTimeout = 3 * time.Second

// TimeoutConfig configures the timeout wrapper.
type TimeoutConfig struct {
	// Timeout is the maximum duration for the operation.
	// Default: 3 seconds
	Timeout time.Duration
}

// TimeoutError reports that an operation exceeded its budget.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return ErrTimeout.Error() + " after " + e.After.String()
}

// Is reports whether target is ErrTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// Timeout wraps operations with a timeout.
type Timeout struct {
	config TimeoutConfig
}

// NewTimeout creates a new timeout wrapper.
func NewTimeout(config TimeoutConfig) *Timeout {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	return &Timeout{config: config}
}

// Execute runs op with a deadline and returns as soon as either op finishes
// or the deadline passes. On deadline it returns a *TimeoutError; op keeps
// running in the background until it observes the cancelled context.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- op(ctx)
	}()

	select {
	case err := <-done:
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == context.DeadlineExceeded {
			return &TimeoutError{After: t.config.Timeout}
		}
		return err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return &TimeoutError{After: t.config.Timeout}
		}
		return ctx.Err()
	}
}

// Config returns the timeout configuration.
func (t *Timeout) Config() TimeoutConfig {
	return t.config
}
