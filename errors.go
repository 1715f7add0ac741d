package at

import "errors"

// ErrTimeout is delivered when the receive timer expires.
var ErrTimeout = errors.New("timed out")

// ErrBusy is reported when an operation requires an idle conversation.
var ErrBusy = errors.New("AT busy")

// ErrNotBusy is reported when an operation requires one in flight.
var ErrNotBusy = errors.New("AT not busy")
