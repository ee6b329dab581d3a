package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateService indicates a registration conflicts with an existing name.
	ErrDuplicateService = errors.New("registry: duplicate service")

	// ErrInsufficientBatchSize indicates a bulk registration had too few entries.
	ErrInsufficientBatchSize = errors.New("registry: insufficient batch size")
)

// DuplicateServiceError names the entry that caused a registration conflict.
type DuplicateServiceError struct {
	// Name is the conflicting service name.
	Name string

	// Index is the position of the offending entry within a bulk batch.
	Index int

	// InBatch is true when the name repeats an earlier entry of the same batch
	// rather than an already registered service.
	InBatch bool
}

func (e *DuplicateServiceError) Error() string {
	if e.InBatch {
		return fmt.Sprintf("registry: service %q appears more than once in batch (entry %d)", e.Name, e.Index)
	}
	return fmt.Sprintf("registry: service %q already registered", e.Name)
}

// Is reports whether target is ErrDuplicateService.
func (e *DuplicateServiceError) Is(target error) bool {
	return target == ErrDuplicateService
}
