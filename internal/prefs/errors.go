package prefs

import (
	"errors"
	"fmt"
)

var (
	// ErrNilApp is raised when Initialize is called without an App.
	ErrNilApp = errors.New("app cannot be nil")
	// ErrNilStore is raised when InitializeWithStore is called without a store.
	ErrNilStore = errors.New("store cannot be nil")
	// ErrAlreadyInitialized is raised by a second Initialize call.
	ErrAlreadyInitialized = errors.New("preferences already initialized")
	// ErrNotInitialized is raised by Default before Initialize.
	ErrNotInitialized = errors.New("preferences not initialized: call prefs.Initialize(app) once during startup")

	// ErrNotFound is returned by LookupStringSet for an absent key.
	ErrNotFound = errors.New("preference not found")
	// ErrEncode wraps string set encoding failures. Nothing is written when
	// it is returned.
	ErrEncode = errors.New("encoding string set")
)

// UsageError is the panic value for programming mistakes around the
// process-wide instance: a nil App, double initialization, or access before
// initialization.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string {
	return "prefs: " + e.Err.Error()
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// TypeMismatchError reports a typed read of a key that holds another kind.
type TypeMismatchError struct {
	Key      string
	Expected string
	Err      error
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s's value is not a %s", e.Key, e.Expected)
}

func (e *TypeMismatchError) Unwrap() error {
	return e.Err
}

// MalformedSetError reports a stored string set that could not be decoded.
type MalformedSetError struct {
	Key string
	Err error
}

func (e *MalformedSetError) Error() string {
	return fmt.Sprintf("malformed string set under %s: %v", e.Key, e.Err)
}

func (e *MalformedSetError) Unwrap() error {
	return e.Err
}
