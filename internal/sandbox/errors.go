package sandbox

import (
	"errors"
	"fmt"
)

// ErrBudgetRejected is wrapped by the error returned when a decision spends
// more than the rejection threshold.
var ErrBudgetRejected = errors.New("decision rejected")

// ConfigurationError reports scenario reference data that cannot be played:
// a zero budget, an out-of-range hidden outcome, or an allocation that names
// something the scenario does not define.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// ExternalServiceError reports a failed or unusable collaborator call. Callers
// recover from it with a fallback; it never reaches game state.
type ExternalServiceError struct {
	Op  string
	Err error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: external service: %v", e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// ValidationError reports player input outside its domain. Out-of-domain
// values are rejected rather than clamped.
type ValidationError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s (%g): %s", e.Field, e.Value, e.Reason)
}
