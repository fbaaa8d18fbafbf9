package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFilterValue is returned before storage is touched when a
	// filter, sort or pagination argument fails validation.
	ErrInvalidFilterValue = errors.New("invalid filter value")

	// ErrStorageUnavailable wraps any failure of the storage read path.
	ErrStorageUnavailable = errors.New("storage unavailable")

	ErrNotFound = errors.New("listing not found")
)

func invalid(field, format string, args ...any) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidFilterValue, field, fmt.Sprintf(format, args...))
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}
