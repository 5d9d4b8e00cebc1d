package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConflict is returned when a unique constraint would be violated,
	// e.g. a duplicate idempotency key or an active (name, channel)
	// template pair.
	ErrConflict = errors.New("conflict")

	// ErrNotFound is returned when the referenced record does not exist
	// or has been soft-deleted.
	ErrNotFound = errors.New("not found")
)

// ConfigError reports a channel configuration that does not match the
// shape required by the channel type. It is a validation failure and is
// never retried.
type ConfigError struct {
	Type    ChannelType
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("channel configuration for type %q missing required fields: %s",
		e.Type, strings.Join(e.Missing, ", "))
}
