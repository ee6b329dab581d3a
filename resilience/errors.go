package resilience

import "errors"

// ErrTimeout is returned when an operation does not finish within its budget.
var ErrTimeout = errors.New("resilience: operation timed out")
