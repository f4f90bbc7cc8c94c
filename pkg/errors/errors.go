// Unified error handling for the scope client
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// ErrorCode represents the category of error
type ErrorCode string

const (
	// Configuration errors
	ErrConfig           ErrorCode = "CONFIG"
	ErrConfigValidation ErrorCode = "CONFIG_VALIDATION"

	// Socket and dial errors
	ErrTransport       ErrorCode = "TRANSPORT"
	ErrTransportClosed ErrorCode = "TRANSPORT_CLOSED"

	// Parameter RPC errors
	ErrRPC       ErrorCode = "RPC"
	ErrRPCRemote ErrorCode = "RPC_REMOTE"

	// Display errors
	ErrRender ErrorCode = "RENDER"

	// Wire format errors
	ErrProtocol ErrorCode = "PROTOCOL"
)

// ScopeError is the unified error type
type ScopeError struct {
	// Code is the error category
	Code ErrorCode

	// Op names the operation that failed (e.g. "dial", "setHscale")
	Op string

	// Message is a human-readable error description
	Message string

	// Err wraps the underlying error; it carries a stack trace when
	// created through Wrap.
	Err error

	// Context provides additional key/value detail
	Context map[string]interface{}
}

// Error implements the error interface
func (e *ScopeError) Error() string {
	var sb strings.Builder
	sb.WriteString("[")
	sb.WriteString(string(e.Code))
	if e.Op != "" {
		sb.WriteString(":")
		sb.WriteString(e.Op)
	}
	sb.WriteString("] ")
	sb.WriteString(e.Message)
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(pkgerrors.Cause(e.Err).Error())
	}
	return sb.String()
}

// Unwrap returns the underlying error
func (e *ScopeError) Unwrap() error {
	return e.Err
}

// Format supports %+v, printing the stack of the wrapped error.
func (e *ScopeError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') && e.Err != nil {
			fmt.Fprintf(s, "%s\n%+v", e.Error(), e.Err)
			return
		}
		fallthrough
	case 's':
		fmt.Fprint(s, e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}

// SetOp sets the failing operation
func (e *ScopeError) SetOp(op string) *ScopeError {
	e.Op = op
	return e
}

// SetContext adds additional context
func (e *ScopeError) SetContext(key string, value interface{}) *ScopeError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a ScopeError without an underlying cause
func New(code ErrorCode, message string) *ScopeError {
	return &ScopeError{Code: code, Message: message}
}

// Newf creates a ScopeError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *ScopeError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps err with a code and message, recording the call stack.
func Wrap(err error, code ErrorCode, message string) *ScopeError {
	if err == nil {
		return nil
	}
	return &ScopeError{
		Code:    code,
		Message: message,
		Err:     pkgerrors.WithStack(err),
	}
}

// TransportError wraps a socket failure for the given operation
func TransportError(op string, err error) *ScopeError {
	return Wrap(err, ErrTransport, "connection failed").SetOp(op)
}

// RPCError wraps a failed parameter call
func RPCError(method string, err error) *ScopeError {
	return Wrap(err, ErrRPC, "call failed").SetOp(method)
}

// RemoteError reports an error returned by the device for a call
func RemoteError(method string, code int, message string) *ScopeError {
	return New(ErrRPCRemote, message).SetOp(method).SetContext("code", code)
}

// ConfigError reports an invalid option in a config section
func ConfigError(section, option, reason string) *ScopeError {
	return New(ErrConfigValidation, reason).
		SetOp(section + "." + option)
}

// CodeOf returns the code of the first ScopeError in err's chain, or ""
func CodeOf(err error) ErrorCode {
	var se *ScopeError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ""
}

// Is reports whether err carries the given code
func Is(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// IsTransport reports whether err is any transport error
func IsTransport(err error) bool {
	return strings.HasPrefix(string(CodeOf(err)), "TRANSPORT")
}

// IsRPC reports whether err is any RPC error
func IsRPC(err error) bool {
	return strings.HasPrefix(string(CodeOf(err)), "RPC")
}

// Cause returns the innermost error, unwrapping stacks added by Wrap
func Cause(err error) error {
	for {
		next := stderrors.Unwrap(err)
		if next == nil {
			return pkgerrors.Cause(err)
		}
		err = next
	}
}
