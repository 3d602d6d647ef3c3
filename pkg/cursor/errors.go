package cursor

import (
	"errors"
	"fmt"
)

// Navigation errors. Both are raised before any request is made.
var (
	// ErrNoNextCursor is returned when moving forward from the last page.
	ErrNoNextCursor = errors.New("no next page cursor")

	// ErrNoPreviousCursor is returned when moving backwards from the first page.
	ErrNoPreviousCursor = errors.New("no previous page cursor")
)

// Direction is a navigation direction within a timeline.
type Direction string

const (
	// DirectionForward moves towards later pages.
	DirectionForward Direction = "forward"

	// DirectionBackwards moves towards earlier pages.
	DirectionBackwards Direction = "backwards"
)

// NavigationError reports a navigation attempt past an end of the collection.
type NavigationError struct {
	Direction Direction
	Endpoint  string
	Err       error
}

// Error implements the error interface.
func (e *NavigationError) Error() string {
	return fmt.Sprintf("timeline error: %s from %s: %v", e.Direction, e.Endpoint, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *NavigationError) Unwrap() error {
	return e.Err
}

// IsExhausted reports whether err means there is no later page to fetch.
func IsExhausted(err error) bool {
	return errors.Is(err, ErrNoNextCursor)
}
