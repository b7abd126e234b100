package jsonrpc

import "fmt"

// JSON-RPC 2.0 reserved error codes, plus the client-local timeout code.
const (
	// CodeParseError indicates invalid JSON was received.
	CodeParseError = -32700
	// CodeInvalidRequest indicates the JSON was not a valid request object.
	CodeInvalidRequest = -32600
	// CodeMethodNotFound indicates the method does not exist.
	CodeMethodNotFound = -32601
	// CodeInvalidParams indicates invalid method parameters.
	CodeInvalidParams = -32602
	// CodeInternalError indicates an internal JSON-RPC error.
	CodeInternalError = -32603

	// CodeClientTimeout is synthesized locally when no response line arrives
	// within the caller's deadline. It never travels on the wire.
	CodeClientTimeout = -1
)

// Error implements the error interface so a response error can be returned
// directly from transport helpers.
func (e *Error) Error() string {
	return fmt.Sprintf("JSON-RPC error (code %d): %s", e.Code, e.Message)
}

// IsTimeout reports whether the error is a client-synthesized timeout.
func (e *Error) IsTimeout() bool {
	return e != nil && e.Code == CodeClientTimeout
}

// NewTimeoutError builds the sentinel error placed in a synthesized response
// when a call exceeds its deadline.
func NewTimeoutError(timeout string) *Error {
	return &Error{
		Code:    CodeClientTimeout,
		Message: fmt.Sprintf("Timeout after %s", timeout),
	}
}
