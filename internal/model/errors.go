package model

import "fmt"

// InvalidInputError reports a request or storyboard entry missing a required
// field. It is never retried.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}
