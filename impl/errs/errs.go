// Package errs has the error kinds surfaced by the image engine. Configuration and
// request validation errors are returned synchronously to the caller. Execution
// errors (transport, decode, transform) are wrapped in an *Error and broadcast to
// every waiter on a key.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest means the request cannot be executed at all, e.g. no URI.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrConfigurationConflict means the request was configured inconsistently, e.g.
	// mipmap combined with resize.
	ErrConfigurationConflict = errors.New("configuration conflict")
	// ErrTransport means the network collaborator failed.
	ErrTransport = errors.New("transport failure")
	// ErrDecode means the bytes could not be decoded into a bitmap.
	ErrDecode = errors.New("decode failure")
	// ErrTransform means a transform in the chain failed.
	ErrTransform = errors.New("transform failure")
	// ErrDetached is how a result settles when its caller detached before completion.
	ErrDetached = errors.New("detached")
)

// Error is an execution-time error for one key. Both the kind and the underlying
// cause match with errors.Is.
type Error struct {
	Kind error
	Key  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s (key %s)", e.Kind, shortKey(e.Key))
	}
	return fmt.Sprintf("%s (key %s): %s", e.Kind, shortKey(e.Key), e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Transport wraps a network error for the passed key
func Transport(key string, err error) error {
	return &Error{Kind: ErrTransport, Key: key, Err: err}
}

// Decode wraps a decode error for the passed key
func Decode(key string, err error) error {
	return &Error{Kind: ErrDecode, Key: key, Err: err}
}

// Transform wraps a transform error for the passed key
func Transform(key string, err error) error {
	return &Error{Kind: ErrTransform, Key: key, Err: err}
}

// Invalid returns an ErrInvalidRequest with a reason
func Invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, reason)
}

// Conflict returns an ErrConfigurationConflict with a reason
func Conflict(reason string) error {
	return fmt.Errorf("%w: %s", ErrConfigurationConflict, reason)
}

// KindOf returns the kind sentinel for the passed error, or nil if the error is
// not one of the engine's kinds.
func KindOf(err error) error {
	for _, kind := range []error{ErrInvalidRequest, ErrConfigurationConflict, ErrTransport, ErrDecode, ErrTransform, ErrDetached} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// shortKey shortens a 64-char key for messages
func shortKey(key string) string {
	if len(key) > 10 {
		return key[:10]
	}
	return key
}
