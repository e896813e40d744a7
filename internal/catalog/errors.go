package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned by operations that need an identity
	// when the request has none.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrInvalidCredentials is returned by Login for both unknown usernames
	// and wrong passwords.
	ErrInvalidCredentials = errors.New("wrong credentials")
)

// ValidationError reports input that was rejected. Value is the offending
// argument as the caller supplied it.
type ValidationError struct {
	Field   string
	Value   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
