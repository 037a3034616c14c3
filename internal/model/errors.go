package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration = errors.New("model: invalid configuration")
	ErrNotFound      = errors.New("model: not found")
	ErrCycle         = errors.New("model: dependency cycle")
	ErrBlocked       = errors.New("model: task blocked")
)

// ConfigurationError reports a malformed recurrence rule, end rule or record.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrConfiguration, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", ErrConfiguration, e.Field, e.Message)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

func configErrorf(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NewConfigurationError is used by packages that validate rules outside model.
func NewConfigurationError(field, format string, args ...any) error {
	return configErrorf(field, format, args...)
}

type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s %q", ErrNotFound, e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// CycleError carries one witness path, first and last element equal.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return ErrCycle.Error()
	}
	return fmt.Sprintf("%s: %s", ErrCycle, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCycle }

type BlockedError struct {
	TaskID    string
	BlockedBy []string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("%s: %q waits on %s", ErrBlocked, e.TaskID, strings.Join(e.BlockedBy, ", "))
}

func (e *BlockedError) Unwrap() error { return ErrBlocked }
