// Package upstream holds the HTTP plumbing and error taxonomy shared by the
// clients of the external geo services (Overpass, OSRM, Nominatim).
package upstream

import (
	"errors"
	"fmt"
)

// Kind classifies why an upstream call failed.
type Kind string

const (
	KindUnavailable Kind = "upstream_unavailable"
	KindMalformed   Kind = "malformed_response"
)

var (
	// ErrUpstreamUnavailable matches network failures and non-2xx responses.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrMalformedResponse matches payloads that could not be decoded into the expected shape.
	ErrMalformedResponse = errors.New("malformed upstream response")
)

// Error describes a failed call to an external service.
type Error struct {
	Err     error
	Kind    Kind
	Service string
	Op      string
	Status  int
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Service, e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match the package sentinels against the error kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUpstreamUnavailable:
		return e.Kind == KindUnavailable
	case ErrMalformedResponse:
		return e.Kind == KindMalformed
	}
	return false
}

// Unavailable builds an ErrUpstreamUnavailable error.
func Unavailable(service, op string, status int, err error) *Error {
	return &Error{Kind: KindUnavailable, Service: service, Op: op, Status: status, Err: err}
}

// Malformed builds an ErrMalformedResponse error.
func Malformed(service, op string, err error) *Error {
	return &Error{Kind: KindMalformed, Service: service, Op: op, Err: err}
}

// KindOf returns the failure kind of err, or "" for nil and unclassified errors.
func KindOf(err error) Kind {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return ""
}
