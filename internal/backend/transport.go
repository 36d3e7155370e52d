// Package backend talks to the remote Parse-style REST backend: it resolves
// the installation, user and model object ids into an identity cache and
// persists committed lamp states as Event objects.
//
// Requests never block the caller. A Transport queues them and hands the
// completions back through Dispatch, which the control loop calls, so
// callbacks and cache writes always run on the loop goroutine.
package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrStatus wraps non-2xx responses.
	ErrStatus = errors.New("unexpected backend status")
	// ErrNotFound is reported when a query returned no usable object id.
	ErrNotFound = errors.New("object not found")
	// ErrQueueFull is reported when the transport cannot accept more work.
	ErrQueueFull = errors.New("request queue full")
)

// Backend operations, used for logging and metrics labels.
const (
	OpResolveInstallation = "resolve_installation"
	OpResolveUser         = "resolve_user"
	OpResolveModel        = "resolve_model"
	OpUpdateInstallation  = "update_installation"
	OpPersistState        = "persist_state"
)

// Request is one backend call. Path includes the query string.
type Request struct {
	Operation string
	Method    string
	Path      string
	Body      []byte
}

// Response is the outcome of a Request. Err is set for transport failures
// and for non-2xx statuses (wrapping ErrStatus).
type Response struct {
	StatusCode int
	Body       []byte
	Err        error
}

// OK reports a 2xx response without transport error.
func (r Response) OK() bool {
	return r.Err == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Callback receives a Response from Dispatch.
type Callback func(Response)

// Transport sends requests asynchronously.
type Transport interface {
	// Send queues req and returns immediately. cb may be nil.
	Send(req Request, cb Callback)
	// Dispatch runs the callbacks of every completed request and returns
	// how many it ran.
	Dispatch() int
}

func statusError(code int) error {
	return fmt.Errorf("%w: %d", ErrStatus, code)
}
