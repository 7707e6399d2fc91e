package scheduling

import (
	"errors"
	"fmt"

	"clinicbook/internal/domain"
	"clinicbook/internal/store"
)

// ValidationError reports bad input: a missing id, a non-working day, an off-grid hour
// or a time in the past.
type ValidationError struct {
	msg string
	err error
}

func (e *ValidationError) Error() string {
	return e.msg
}

func (e *ValidationError) Unwrap() error {
	return e.err
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

func invalidSlot(err error) error {
	return &ValidationError{msg: err.Error(), err: err}
}

// AuthorizationError reports an actor that is not entitled to act on a booking or provider.
type AuthorizationError struct {
	msg string
	err error
}

func (e *AuthorizationError) Error() string {
	return e.msg
}

func (e *AuthorizationError) Unwrap() error {
	return e.err
}

func authorizationError(format string, args ...any) error {
	return &AuthorizationError{msg: fmt.Sprintf(format, args...)}
}

var (
	ErrSlotTaken          = errors.New("slot already taken")
	ErrInvalidTransition  = domain.ErrInvalidTransition
	ErrNotFound           = store.ErrNotFound
	ErrStorageUnavailable = store.ErrUnavailable
)

// IsRetryable reports whether the whole operation may be retried unchanged.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

func fromTransition(err error) error {
	if errors.Is(err, domain.ErrNotPermitted) {
		return &AuthorizationError{msg: err.Error(), err: err}
	}
	return err
}
