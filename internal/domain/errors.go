package domain

import "fmt"

// ValidationError is a fatal user-input error. It carries the offending value
// and the expected format so callers can diagnose without access to logs.
type ValidationError struct {
	Field    string
	Value    string
	Expected string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: expected %s", e.Field, e.Value, e.Expected)
}
