package portal

import (
	"errors"
	"fmt"
)

// ValidationError is malformed input detected before any remote call.
type ValidationError struct {
	Msg     string
	Details map[string]any
}

func (e *ValidationError) Error() string { return e.Msg }

// Invalid returns a ValidationError with a formatted message.
func Invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ConfigurationError is a required setting missing for the requested operation.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string { return "configuration: " + e.Err.Error() }
func (e *ConfigurationError) Unwrap() error { return e.Err }

// RemoteError is a failed control-plane call outside a batch.
type RemoteError struct {
	Op  string // user-facing summary, e.g. "Failed to start VM"
	Err error
}

func (e *RemoteError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *RemoteError) Unwrap() error { return e.Err }

// NotFoundError is a named resource that does not exist.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

// NotImplementedError is a documented capability gap.
type NotImplementedError struct {
	Msg  string
	Name string
}

func (e *NotImplementedError) Error() string { return e.Msg }

func remote(op string, err error) error {
	return &RemoteError{Op: op, Err: err}
}

func misconfigured(err error) error {
	return &ConfigurationError{Err: err}
}

var errClientUnavailable = errors.New("cloud client not configured")
