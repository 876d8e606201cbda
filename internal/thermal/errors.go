package thermal

import (
	"errors"
	"fmt"
)

// Domain errors for thermal model construction and stepping.
var (
	// ErrConfiguration indicates a missing or non-positive physical constant.
	ErrConfiguration = errors.New("thermal: invalid configuration")

	// ErrInvariant indicates a shell whose mass, specific heat or energy makes
	// the energy/temperature conversion meaningless.
	ErrInvariant = errors.New("thermal: invariant violation")
)

// ConfigError names the offending configuration field. Input holds the raw
// text when the value could not be read as a number at all.
type ConfigError struct {
	Field  string
	Value  float64
	Reason string // defaults to "must be positive"
	Input  string
}

func (e *ConfigError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "must be positive"
	}
	if e.Input != "" {
		return fmt.Sprintf("thermal: %s %s, got %q", e.Field, reason, e.Input)
	}
	return fmt.Sprintf("thermal: %s %s, got %g", e.Field, reason, e.Value)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}

// InvariantError reports the shell where the model broke down.
type InvariantError struct {
	Shell   int
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("thermal: shell %d: %s", e.Shell, e.Message)
}

func (e *InvariantError) Unwrap() error {
	return ErrInvariant
}
