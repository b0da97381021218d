package domain

import "fmt"

// TransportError is a network-level failure: timeout, refused connection,
// malformed JSON. Distinct from the exchange rejecting a request.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ExchangeError is a non-zero code in the exchange response envelope.
type ExchangeError struct {
	Code string
	Msg  string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("exchange: code %s: %s", e.Code, e.Msg)
}

// AuthError covers missing credentials and failed logins.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "auth: " + e.Reason
}

// ValidationError is caller-supplied bad input, rejected before any
// network call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
