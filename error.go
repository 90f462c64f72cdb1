package bluez

import "fmt"

// ErrorInterface prefixes every error name visible to bus clients.
const ErrorInterface = "org.bluez.Error"

// Error is a named failure returned to a remote caller.
type Error struct {
	Name    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

// Is matches on Name so that sentinel comparisons ignore the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Name == e.Name
}

func newError(name, format string, args ...interface{}) *Error {
	return &Error{Name: ErrorInterface + "." + name, Message: fmt.Sprintf(format, args...)}
}

func ErrInvalidArguments(msg string) *Error { return newError("InvalidArguments", "%s", msg) }
func ErrNotReady() *Error                   { return newError("NotReady", "Adapter is not ready") }
func ErrNoSuchAdapter() *Error              { return newError("NoSuchAdapter", "No such adapter") }
func ErrInProgress(msg string) *Error       { return newError("InProgress", "%s", msg) }
func ErrNotInProgress(msg string) *Error    { return newError("NotInProgress", "%s", msg) }
func ErrAlreadyExists(msg string) *Error    { return newError("AlreadyExists", "%s", msg) }
func ErrDoesNotExist(msg string) *Error     { return newError("DoesNotExist", "%s", msg) }
func ErrNotAuthorized() *Error              { return newError("NotAuthorized", "Not authorized") }
func ErrNotAvailable(msg string) *Error     { return newError("NotAvailable", "%s", msg) }
func ErrFailed(msg string) *Error           { return newError("Failed", "%s", msg) }

func ErrUnsupportedMajorClass() *Error {
	return newError("UnsupportedMajorClass", "Unsupported Major Class")
}

func ErrConnectionAttemptFailed(msg string) *Error {
	return newError("ConnectionAttemptFailed", "%s", msg)
}

func ErrAuthenticationFailed() *Error {
	return newError("AuthenticationFailed", "Authentication Failed")
}

func ErrAuthenticationTimeout() *Error {
	return newError("AuthenticationTimeout", "Authentication Timeout")
}

func ErrAuthenticationRejected() *Error {
	return newError("AuthenticationRejected", "Authentication Rejected")
}

func ErrAuthenticationCanceled() *Error {
	return newError("AuthenticationCanceled", "Authentication Canceled")
}

func ErrRepeatedAttempts() *Error {
	return newError("RepeatedAttempts", "Repeated Attempts")
}

// ErrorName returns the bus error name of err, or "" when err is not an *Error.
func ErrorName(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Name
	}
	return ""
}
