package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument marks contract violations: absent collections, bad weights, unknown rule kinds.
var ErrInvalidArgument = errors.New("invalid argument")

// InvalidArgumentError names the offending argument. It unwraps to ErrInvalidArgument.
type InvalidArgumentError struct {
	Arg    string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Arg, e.Reason)
}

func (e *InvalidArgumentError) Unwrap() error { return ErrInvalidArgument }

func InvalidArgument(arg, reason string) error {
	return &InvalidArgumentError{Arg: arg, Reason: reason}
}
