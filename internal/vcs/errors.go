package vcs

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches every *ConfigurationError.
	ErrConfiguration = errors.New("source control configuration error")
	// ErrBadLogData matches every *BadLogDataError.
	ErrBadLogData = errors.New("bad log data")
	// ErrUnknownBackend is returned for an unregistered source control type.
	ErrUnknownBackend = errors.New("unknown source control type")
	// ErrUnsupportedVersion is returned when the VCS client is too old.
	ErrUnsupportedVersion = errors.New("unsupported client version")
)

// ConfigurationError reports a configuration field that the attempted
// operation requires but that is missing or invalid.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%v: <%s> %s", ErrConfiguration, e.Field, e.Message)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// BadLogDataError reports history output that could not be parsed. It is
// distinct from an empty history, which is not an error.
type BadLogDataError struct {
	Backend string
	Message string
	Err     error
}

func (e *BadLogDataError) Error() string {
	return fmt.Sprintf("%v from %s: %s", ErrBadLogData, e.Backend, e.Message)
}

func (e *BadLogDataError) Unwrap() error {
	return e.Err
}

func (e *BadLogDataError) Is(target error) bool {
	return target == ErrBadLogData
}

// NewBadLogData wraps a parser failure.
func NewBadLogData(backend string, err error) *BadLogDataError {
	return &BadLogDataError{Backend: backend, Message: err.Error(), Err: err}
}
