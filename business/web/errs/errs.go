// Package errs carries the HTTP status a handler wants a failure reported
// with, and the body written back to the client.
package errs

import (
	"errors"
	"net/http"
)

// Response is the body written for every failed request.
type Response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is an error whose message can be shown to the client as is.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted attaches the status to the error.
func NewTrusted(err error, status int) error {
	return &Trusted{Err: err, Status: status}
}

// NotFound reports that the node, block or transaction named in the request
// does not exist.
func NotFound(err error) error {
	return NewTrusted(err, http.StatusNotFound)
}

// BadRequest reports a request that can't be understood.
func BadRequest(err error) error {
	return NewTrusted(err, http.StatusBadRequest)
}

// Rejected reports a request the ledger refused, like a transaction the
// sender can't afford.
func Rejected(err error) error {
	return NewTrusted(err, http.StatusForbidden)
}

// Error implements the error interface.
func (t *Trusted) Error() string {
	return t.Err.Error()
}

// Unwrap exposes the ledger error so callers can still match on it.
func (t *Trusted) Unwrap() error {
	return t.Err
}

// GetTrusted returns the trusted error in the chain, or nil when there is
// none.
func GetTrusted(err error) *Trusted {
	var t *Trusted
	if !errors.As(err, &t) {
		return nil
	}
	return t
}
