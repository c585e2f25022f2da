package locate

import (
	"errors"
	"fmt"
)

// ErrBusy rejects a query while another run holds the target surface.
var ErrBusy = errors.New("a locate run is already in flight")

// LocateError provides detailed error context
type LocateError struct {
	Step     string
	Category Category
	Cause    error
	Details  string
}

func (e *LocateError) Error() string {
	if e.Category != "" {
		return fmt.Sprintf("[%s] %s failed: %v - %s", e.Category, e.Step, e.Cause, e.Details)
	}
	return fmt.Sprintf("%s failed: %v - %s", e.Step, e.Cause, e.Details)
}

func (e *LocateError) Unwrap() error {
	return e.Cause
}
