package records

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when no row matches the given id.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidStatus is returned for a status outside the table's enum.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrUnknownColumn is returned when a query names a column the table lacks.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrUnknownTable is returned for a table the backend does not serve.
	ErrUnknownTable = errors.New("unknown table")

	// ErrSubscriptionsUnavailable is returned when a backend has no change feed.
	ErrSubscriptionsUnavailable = errors.New("change subscriptions unavailable")

	// ErrInvalidDateRange is returned when a list range is not YYYY-MM-DD.
	ErrInvalidDateRange = errors.New("invalid date range")
)

// ValidationError collects every problem found in a submission so they can
// be reported together.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, ". ")
}

// AsValidation unwraps err into a ValidationError when it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
