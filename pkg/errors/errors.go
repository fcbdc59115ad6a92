// Package errors defines the error taxonomy shared by every labelhub
// package. It is a leaf package: token, partition, store and coordinator all
// import it, and it imports nothing from the module.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies an Error.
type ErrorCode int

const (
	// ErrConfig covers invalid input: token syntax, directories, a partition
	// with zero workers, malformed requests.
	ErrConfig ErrorCode = iota + 1

	// ErrAuth means the token is well formed but not on the allow-list.
	ErrAuth

	// ErrNotFound means there is no shard, image or record for the token.
	ErrNotFound

	// ErrOutOfRange means a classification was attempted past the end of
	// the shard, or for an image outside it.
	ErrOutOfRange

	// ErrDataFormat means a persisted record could not be decoded.
	ErrDataFormat

	// ErrNetwork means a peer could not be reached. Callers decide whether
	// to retry.
	ErrNetwork

	// ErrConflictWithExisting means a submission was rejected against the
	// state already stored.
	ErrConflictWithExisting

	// ErrNoRecords means there is nothing to undo or submit.
	ErrNoRecords

	// ErrStorage is the generic failure returned in place of backend errors.
	ErrStorage
)

// String returns the code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrConfig:
		return "ConfigError"
	case ErrAuth:
		return "AuthError"
	case ErrNotFound:
		return "NotFoundError"
	case ErrOutOfRange:
		return "OutOfRangeError"
	case ErrDataFormat:
		return "DataFormatError"
	case ErrNetwork:
		return "NetworkError"
	case ErrConflictWithExisting:
		return "ConflictWithExistingError"
	case ErrNoRecords:
		return "NoRecordsError"
	case ErrStorage:
		return "StorageError"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// ParseCode is the inverse of String. Unknown names yield 0.
func ParseCode(name string) ErrorCode {
	for c := ErrConfig; c <= ErrStorage; c++ {
		if c.String() == name {
			return c
		}
	}
	return 0
}

// Error is the concrete error type for the taxonomy.
type Error struct {
	Code    ErrorCode
	Message string
	Token   string // worker token the error relates to, if any
	Err     error  // underlying cause, never shown to API clients
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Token != "" {
		msg += fmt.Sprintf(" (token: %s)", e.Token)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same code, so errors.Is works against
// the sentinel values below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	Config               = &Error{Code: ErrConfig}
	Auth                 = &Error{Code: ErrAuth}
	NotFound             = &Error{Code: ErrNotFound}
	OutOfRange           = &Error{Code: ErrOutOfRange}
	DataFormat           = &Error{Code: ErrDataFormat}
	Network              = &Error{Code: ErrNetwork}
	ConflictWithExisting = &Error{Code: ErrConflictWithExisting}
	NoRecords            = &Error{Code: ErrNoRecords}
	Storage              = &Error{Code: ErrStorage}
)

// ============================================================================
// Constructors
// ============================================================================

// NewConfigError reports invalid input.
func NewConfigError(format string, args ...any) *Error {
	return &Error{Code: ErrConfig, Message: fmt.Sprintf(format, args...)}
}

// NewAuthError reports a token that is not on the allow-list.
func NewAuthError(token string) *Error {
	return &Error{Code: ErrAuth, Message: "unknown token", Token: token}
}

// NewNotFoundError reports a missing resource of the given kind.
func NewNotFoundError(token, what string) *Error {
	return &Error{Code: ErrNotFound, Message: what + " not found", Token: token}
}

// NewOutOfRangeError reports a classification outside the shard.
func NewOutOfRangeError(token, format string, args ...any) *Error {
	return &Error{Code: ErrOutOfRange, Message: fmt.Sprintf(format, args...), Token: token}
}

// NewDataFormatError reports a corrupt persisted record.
func NewDataFormatError(what string, cause error) *Error {
	return &Error{Code: ErrDataFormat, Message: "corrupt " + what, Err: cause}
}

// NewNetworkError wraps a transport failure.
func NewNetworkError(op string, cause error) *Error {
	return &Error{Code: ErrNetwork, Message: op + " failed", Err: cause}
}

// NewConflictError reports a submission rejected against existing state.
func NewConflictError(token, reason string) *Error {
	return &Error{Code: ErrConflictWithExisting, Message: reason, Token: token}
}

// NewNoRecordsError reports that there is nothing to act on.
func NewNoRecordsError(token, what string) *Error {
	return &Error{Code: ErrNoRecords, Message: what, Token: token}
}

// NewStorageError wraps a backend failure. The message is deliberately
// generic; the cause stays available through Unwrap for logging.
func NewStorageError(cause error) *Error {
	return &Error{Code: ErrStorage, Message: "storage failure", Err: cause}
}

// ============================================================================
// Helpers
// ============================================================================

// CodeOf returns the code of the first *Error in err's chain, or 0.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return 0
}

// IsInputError reports whether err should be surfaced to the caller as-is.
func IsInputError(err error) bool {
	switch CodeOf(err) {
	case ErrConfig, ErrAuth, ErrNotFound, ErrOutOfRange, ErrConflictWithExisting, ErrNoRecords:
		return true
	}
	return false
}

// IsConfig reports whether err is a ConfigError.
func IsConfig(err error) bool { return CodeOf(err) == ErrConfig }

// IsAuth reports whether err is an AuthError.
func IsAuth(err error) bool { return CodeOf(err) == ErrAuth }

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool { return CodeOf(err) == ErrNotFound }

// IsOutOfRange reports whether err is an OutOfRangeError.
func IsOutOfRange(err error) bool { return CodeOf(err) == ErrOutOfRange }

// IsDataFormat reports whether err is a DataFormatError.
func IsDataFormat(err error) bool { return CodeOf(err) == ErrDataFormat }

// IsNetwork reports whether err is a NetworkError.
func IsNetwork(err error) bool { return CodeOf(err) == ErrNetwork }

// IsConflict reports whether err is a ConflictWithExistingError.
func IsConflict(err error) bool { return CodeOf(err) == ErrConflictWithExisting }

// IsNoRecords reports whether err is a NoRecordsError.
func IsNoRecords(err error) bool { return CodeOf(err) == ErrNoRecords }
