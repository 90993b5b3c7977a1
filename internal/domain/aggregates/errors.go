package aggregates

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies an aggregate failure. Transports map codes to their own
// statuses; callers branch on codes, never on messages.
type ErrorCode string

const (
	CodeValidation         ErrorCode = "validation"
	CodeNotFound           ErrorCode = "not_found"
	CodeScopeMismatch      ErrorCode = "scope_mismatch"
	CodeConflict           ErrorCode = "conflict"
	CodeInvariantViolation ErrorCode = "invariant_violation"
	CodePreconditionFailed ErrorCode = "precondition_failed"
	CodeIntegrity          ErrorCode = "integrity"
	CodeRetryable          ErrorCode = "retryable"
	CodeInternal           ErrorCode = "internal"
)

type Error struct {
	Code ErrorCode
	// Op names the failing operation, e.g. "Dedupe.Merge".
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
	}
	if e.Message != "" {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(e.Message)
	}
	if b.Len() == 0 {
		return string(e.Code)
	}
	fmt.Fprintf(&b, " (%s)", e.Code)
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap gives err a code, keeping its text as the message.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

// NotFound reports a missing row, naming its table and id.
func NotFound(op, table string, id fmt.Stringer) error {
	return NewError(CodeNotFound, op, fmt.Sprintf("%s not found: %s", table, id), nil)
}

func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code && code != ""
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return ""
	}
	return aggErr.Code
}

// Retryable reports whether rerunning the whole write transaction may succeed:
// a lost race on a unique index or status, or a transient storage failure.
func Retryable(err error) bool {
	switch CodeOf(err) {
	case CodeConflict, CodeRetryable:
		return true
	default:
		return false
	}
}
