package scheduling

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies an operational failure class.
type ErrorCode string

const (
	CodeNotFound           ErrorCode = "not_found"
	CodeInvalidSlot        ErrorCode = "invalid_slot"
	CodeConsentRequired    ErrorCode = "consent_required"
	CodeSlotConflict       ErrorCode = "slot_conflict"
	CodeInvalidTransition  ErrorCode = "invalid_transition"
	CodeCancellationWindow ErrorCode = "cancellation_window_violation"
)

// OperationalError is an expected failure of a scheduling operation. Its
// message is safe to surface verbatim to the caller. Anything that is not
// an OperationalError is an internal error and must be logged with full
// context instead.
type OperationalError struct {
	Code    ErrorCode
	Message string
}

func (e *OperationalError) Error() string {
	return e.Message
}

// HTTPStatus maps the failure class to an HTTP-style status code.
func (e *OperationalError) HTTPStatus() int {
	switch e.Code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeSlotConflict:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// AsOperational unwraps err into an OperationalError if it is one.
func AsOperational(err error) (*OperationalError, bool) {
	var oe *OperationalError
	if errors.As(err, &oe) {
		return oe, true
	}
	return nil, false
}

func errNotFound(format string, args ...any) error {
	return &OperationalError{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func errInvalidSlot(format string, args ...any) error {
	return &OperationalError{Code: CodeInvalidSlot, Message: fmt.Sprintf(format, args...)}
}

func errConsentRequired(format string, args ...any) error {
	return &OperationalError{Code: CodeConsentRequired, Message: fmt.Sprintf(format, args...)}
}

func errSlotConflict(format string, args ...any) error {
	return &OperationalError{Code: CodeSlotConflict, Message: fmt.Sprintf(format, args...)}
}

func errInvalidTransition(format string, args ...any) error {
	return &OperationalError{Code: CodeInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

func errCancellationWindow(message string) error {
	return &OperationalError{Code: CodeCancellationWindow, Message: message}
}
