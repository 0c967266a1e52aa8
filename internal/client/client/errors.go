package client

import "errors"

// Transport failures, matched with errors.Is. A failed exchange always
// aborts the whole pass.
var (
	// ErrUnavailable covers network errors and 502, 503 and 504 responses.
	// The pass is retried on the next trigger.
	ErrUnavailable = errors.New("server unavailable")
	// ErrUnauthorized is a rejected bearer token (401 or 403).
	ErrUnauthorized = errors.New("unauthorized")
	// ErrServer wraps any other non-2xx status with the server's message.
	ErrServer = errors.New("server error")
)
