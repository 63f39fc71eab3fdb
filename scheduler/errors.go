package scheduler

import "errors"

var (
	// ErrInvalidSchedule is returned when a schedule request carries a
	// non-positive delay/period.
	ErrInvalidSchedule = errors.New("scheduler: invalid schedule parameters")

	// ErrJobNotFound names an unknown or already-fired job. Handle.Cancel
	// returns no error, and no function in this package returns it.
	ErrJobNotFound = errors.New("scheduler: job not found")
)
