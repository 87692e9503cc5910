// Package cos provides a client for the Tencent Cloud Object Storage (COS)
// XML API, including the q-sign-algorithm=sha1 request signing scheme.
package cos

import (
	"errors"
	"fmt"
)

// Client errors.
var (
	// ErrMalformedURI indicates a request path that cannot be canonicalized.
	ErrMalformedURI = errors.New("malformed request URI")

	// ErrConfig indicates an invalid or incomplete client configuration.
	ErrConfig = errors.New("invalid configuration")
)

// Kind classifies a client error. Callers branch on kinds by value; error
// message text is never part of the contract.
type Kind int

const (
	// KindUnknown is the zero kind for errors this package did not produce.
	KindUnknown Kind = iota

	// KindConfig covers invalid client configuration.
	KindConfig

	// KindMalformedURI covers paths that cannot be canonicalized for signing.
	KindMalformedURI

	// KindAuth covers HMAC key construction failures. crypto/hmac accepts
	// arbitrary key material, so with validated non-empty secrets no current
	// code path produces it; the kind is reserved in the taxonomy.
	KindAuth

	// KindTransport covers network-level request failures.
	KindTransport

	// KindTimeout covers request deadline and network timeout failures.
	KindTimeout

	// KindServer covers non-2xx responses from the COS service.
	KindServer

	// KindDecode covers response bodies that fail to parse.
	KindDecode
)

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindMalformedURI:
		return "malformed_uri"
	case KindAuth:
		return "auth"
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindServer:
		return "server"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error is the error type returned by this package. Server-side rejections
// carry the COS error code, request ID and HTTP status from the XML error body.
type Error struct {
	// Kind classifies the failure.
	Kind Kind

	// Message describes the failure.
	Message string

	// Code is the COS error code for server errors (e.g. "NoSuchKey").
	Code string

	// StatusCode is the HTTP status for server errors.
	StatusCode int

	// RequestID is the COS request ID for server errors.
	RequestID string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Code != "":
		return fmt.Sprintf("cos: %s: %s (%s)", e.Kind, e.Code, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("cos: %s: %s: %v", e.Kind, e.Message, e.Err)
	default:
		return fmt.Sprintf("cos: %s: %s", e.Kind, e.Message)
	}
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// newError builds an *Error from a kind, message and optional cause.
func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindUnknown if err was not produced by
// this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsNotFound reports whether err is a server rejection with HTTP 404.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindServer && e.StatusCode == 404
}
