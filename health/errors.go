package health

import "errors"

var (
	// ErrEmptyRegistry indicates a health check was requested with no
	// registered services. No probing is performed.
	ErrEmptyRegistry = errors.New("health: no services registered")

	// ErrUnknownPolicy indicates an aggregation policy name was not recognised.
	ErrUnknownPolicy = errors.New("health: unknown aggregation policy")
)
