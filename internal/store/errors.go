package store

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrSlotTaken       = errors.New("slot already has a confirmed appointment")
	ErrDoctorNotFound  = errors.New("doctor not found")
	ErrPatientNotFound = errors.New("patient not found")
)

// ConfigurationError means the status catalog has no row for a state
// name the engine relies on. Not recoverable by the caller.
type ConfigurationError struct {
	State string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("status catalog has no state named %q", e.State)
}
