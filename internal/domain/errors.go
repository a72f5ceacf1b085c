package domain

import (
	"errors"
	"fmt"
)

// Category sentinels. Use with NewSubSystemError for subsystem-specific errors.
var (
	ErrTimeout       = fmt.Errorf("operation timed out")
	ErrInvalidInput  = fmt.Errorf("invalid input")
	ErrUnavailable   = fmt.Errorf("unavailable")
	ErrLimitReached  = fmt.Errorf("limit reached")
	ErrStorageFailed = fmt.Errorf("storage operation failed")
)

// Sentinel errors for the domain layer.
var (
	ErrUnknownPlatform = fmt.Errorf("unknown platform")
	ErrUnknownStep     = fmt.Errorf("step is not part of the setup sequence")
	ErrConfigLoad      = fmt.Errorf("failed to load configuration")
	ErrEncryption      = fmt.Errorf("encryption operation failed")
	ErrDecryption      = fmt.Errorf("decryption failed")
	ErrEmptyToken      = fmt.Errorf("token must not be empty")

	// Settings sink errors. ErrSinkWrite marks a write that failed on
	// every attempt.
	ErrSinkWrite   = fmt.Errorf("settings write failed")
	ErrSinkOpen    = fmt.Errorf("settings sink circuit open: %w", ErrUnavailable)
	ErrSinkClosed  = fmt.Errorf("settings sink closed")
	ErrSinkLimited = fmt.Errorf("settings sink: %w", ErrLimitReached)
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op        string // operation name (e.g., "Store.UpdateToken")
	Err       error  // underlying sentinel or wrapped error
	Detail    string // human-readable detail
	SubSystem string // subsystem identifier (e.g., "settings"); used for ErrorCode dispatch
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// NewSubSystemError creates a DomainError tagged with a subsystem for ErrorCode dispatch.
func NewSubSystemError(subsystem, op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail, SubSystem: subsystem}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRetryableError reports whether err is a transient error that may succeed on retry.
// A write that already exhausted its retries (ErrSinkWrite) is not.
func IsRetryableError(err error) bool {
	if errors.Is(err, ErrSinkOpen) || errors.Is(err, ErrSinkClosed) || errors.Is(err, ErrSinkWrite) {
		return false
	}
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrStorageFailed)
}

// ErrorCode is a machine-parseable error category for logs.
type ErrorCode string

const (
	CodeUnknown         ErrorCode = "UNKNOWN"
	CodeUnknownPlatform ErrorCode = "UNKNOWN_PLATFORM"
	CodeUnknownStep     ErrorCode = "UNKNOWN_STEP"
	CodeConfigLoad      ErrorCode = "CONFIG_LOAD"
	CodeEncryption      ErrorCode = "ENCRYPTION"
	CodeDecryption      ErrorCode = "DECRYPTION"
	CodeEmptyToken      ErrorCode = "EMPTY_TOKEN"
	CodeSinkWrite       ErrorCode = "SINK_WRITE"
	CodeSinkOpen        ErrorCode = "SINK_CIRCUIT_OPEN"
	CodeSinkClosed      ErrorCode = "SINK_CLOSED"
	CodeSinkLimited     ErrorCode = "SINK_RATE_LIMITED"

	// Subsystem-specific codes used by subSystemCodeMap.
	CodeSettingsTimeout ErrorCode = "SETTINGS_TIMEOUT"

	// Category error codes, the fallback when no subsystem-specific code matches.
	CodeTimeout       ErrorCode = "TIMEOUT"
	CodeInvalidInput  ErrorCode = "INVALID_INPUT"
	CodeUnavailable   ErrorCode = "UNAVAILABLE"
	CodeLimitReached  ErrorCode = "LIMIT_REACHED"
	CodeStorageFailed ErrorCode = "STORAGE_FAILED"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrTimeout:       CodeTimeout,
	ErrInvalidInput:  CodeInvalidInput,
	ErrUnavailable:   CodeUnavailable,
	ErrLimitReached:  CodeLimitReached,
	ErrStorageFailed: CodeStorageFailed,

	ErrUnknownPlatform: CodeUnknownPlatform,
	ErrUnknownStep:     CodeUnknownStep,
	ErrConfigLoad:      CodeConfigLoad,
	ErrEncryption:      CodeEncryption,
	ErrDecryption:      CodeDecryption,
	ErrEmptyToken:      CodeEmptyToken,
	ErrSinkWrite:       CodeSinkWrite,
	ErrSinkOpen:        CodeSinkOpen,
	ErrSinkClosed:      CodeSinkClosed,
	ErrSinkLimited:     CodeSinkLimited,
}

// subSystemCodeMap maps (category sentinel, subsystem) pairs to specific ErrorCodes.
var subSystemCodeMap = map[error]map[string]ErrorCode{
	ErrTimeout: {
		"settings": CodeSettingsTimeout,
	},
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and uses errors.Is to match sentinel errors.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	// Fast path: direct sentinel lookup.
	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code := de.Code(); code != CodeUnknown {
			return code
		}
	}

	// Prefer the most specific match: wrapped sentinels (ErrSinkOpen wraps
	// ErrUnavailable) are checked before their categories.
	for _, sentinel := range specificFirst {
		if errors.Is(err, sentinel) {
			return errorCodeMap[sentinel]
		}
	}

	return CodeUnknown
}

var specificFirst = []error{
	ErrSinkOpen, ErrSinkLimited, ErrSinkClosed, ErrSinkWrite,
	ErrUnknownPlatform, ErrUnknownStep, ErrConfigLoad, ErrEncryption, ErrDecryption,
	ErrEmptyToken,
	ErrTimeout, ErrInvalidInput, ErrUnavailable, ErrLimitReached, ErrStorageFailed,
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
// If SubSystem is set, checks the subSystemCodeMap for a specific code.
func (e *DomainError) Code() ErrorCode {
	if e.SubSystem != "" {
		if subsysMap, ok := subSystemCodeMap[e.Err]; ok {
			if code, ok := subsysMap[e.SubSystem]; ok {
				return code
			}
		}
	}
	if code, ok := errorCodeMap[e.Err]; ok {
		return code
	}
	return CodeUnknown
}
