// Package provider holds the error taxonomy shared by the speech, telephony and agent adapters.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies why a provider call failed.
type Kind string

const (
	// KindConfiguration means a credential or setting required by the adapter is missing.
	KindConfiguration Kind = "configuration"
	// KindUnauthorized means the provider rejected our credentials.
	KindUnauthorized Kind = "unauthorized"
	// KindRejected means the provider refused the request for any other reason.
	KindRejected Kind = "rejected"
	// KindUnavailable covers transport errors and timeouts.
	KindUnavailable Kind = "unavailable"
)

// Error is returned by every provider adapter. Callers branch on Kind, never on Message.
type Error struct {
	Provider string
	Kind     Kind
	// Status is the provider HTTP status when one was received.
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Provider, e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Configuration builds a KindConfiguration error.
func Configuration(name, message string) *Error {
	return &Error{Provider: name, Kind: KindConfiguration, Message: message}
}

// FromStatus maps an HTTP status from a provider into an Error.
func FromStatus(name string, status int, message string) *Error {
	k := KindRejected
	switch {
	case status == 401 || status == 403:
		k = KindUnauthorized
	case status == 429 || status >= 500:
		k = KindUnavailable
	}
	return &Error{Provider: name, Kind: k, Status: status, Message: message}
}

// Transport wraps a network-level failure. Deadline and cancellation are reported as unavailable.
func Transport(name string, err error) *Error {
	msg := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "request timed out"
	}
	return &Error{Provider: name, Kind: KindUnavailable, Message: msg, Err: err}
}

// IsKind reports whether err is a provider Error of kind k.
func IsKind(err error, k Kind) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == k
	}
	return false
}

func IsUnauthorized(err error) bool { return IsKind(err, KindUnauthorized) }

func IsConfiguration(err error) bool { return IsKind(err, KindConfiguration) }
