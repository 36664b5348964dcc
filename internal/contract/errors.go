package contract

import (
	"errors"
	"fmt"
)

// Code identifies a business-rule failure. Callers branch on it to render a
// message without string matching.
type Code string

const (
	CodeSuspensionNotAllowed    Code = "SuspensionNotAllowed"
	CodeInvalidRange            Code = "InvalidRange"
	CodeSuspensionLimitExceeded Code = "SuspensionLimitExceeded"
	CodeInvalidSuspensionState  Code = "InvalidSuspensionState"
	CodeMissingReason           Code = "MissingReason"
	CodeContractAlreadyTerminal Code = "ContractAlreadyTerminal"
	CodeInvalidCancelDate       Code = "InvalidCancelDate"
	CodeInvalidTransition       Code = "InvalidTransition"
	CodeNoContract              Code = "NoContract"
	CodeNoActiveContract        Code = "NoActiveContract"
	CodeContractNotYetValid     Code = "ContractNotYetValid"
	CodeContractExpired         Code = "ContractExpired"
	CodeWeekdayNotAllowed       Code = "WeekdayNotAllowed"
	CodeWeeklyCapExceeded       Code = "WeeklyCapExceeded"
	CodeInvalidRequest          Code = "InvalidRequest"
)

// Error is a business-rule rejection. It is returned, never panicked, and
// carries enough detail for a user-facing message.
type Error struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error with the same code, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrSuspensionNotAllowed    = &Error{Code: CodeSuspensionNotAllowed}
	ErrInvalidRange            = &Error{Code: CodeInvalidRange}
	ErrSuspensionLimitExceeded = &Error{Code: CodeSuspensionLimitExceeded}
	ErrInvalidSuspensionState  = &Error{Code: CodeInvalidSuspensionState}
	ErrMissingReason           = &Error{Code: CodeMissingReason}
	ErrContractAlreadyTerminal = &Error{Code: CodeContractAlreadyTerminal}
	ErrInvalidCancelDate       = &Error{Code: CodeInvalidCancelDate}
	ErrInvalidTransition       = &Error{Code: CodeInvalidTransition}
	ErrNoContract              = &Error{Code: CodeNoContract}
	ErrNoActiveContract        = &Error{Code: CodeNoActiveContract}
	ErrContractNotYetValid     = &Error{Code: CodeContractNotYetValid}
	ErrContractExpired         = &Error{Code: CodeContractExpired}
	ErrWeekdayNotAllowed       = &Error{Code: CodeWeekdayNotAllowed}
	ErrWeeklyCapExceeded       = &Error{Code: CodeWeeklyCapExceeded}
	ErrInvalidRequest          = &Error{Code: CodeInvalidRequest}
)

// NewError builds an Error with a formatted message.
func NewError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// With attaches a detail value and returns e.
func (e *Error) With(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// AsError extracts the business error from err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
