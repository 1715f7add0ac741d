// Package at defines the interfaces and shared types of the AT conversation
// driver: a token-at-a-time request/response engine for talking to an AT
// partner (prototypically a modem on a serial line) over any byte stream.
//
// The package holds only contracts. The engine lives in engine/basic,
// transports in engine/transport, pattern matching in match and expect,
// and multi-step scripts in seq.
package at

import "time"

// DefaultTimeout is the receive timeout used when none is given.
const DefaultTimeout = 60 * time.Second

// HandlerFunc processes one inbound token during an active receive.
//
// The returned value steers the engine: CBRepeat keeps the handler attached
// for the next token, another HandlerFunc replaces it, and any other value
// terminates the receive with that value as its data. A returned error
// terminates the receive with that error.
//
// A handler that synchronously begins a new operation on the conversation
// must return CBRepeat so the engine leaves the new operation in place.
type HandlerFunc func(token string) (any, error)

// CompletionFunc is invoked exactly once when an operation terminates.
// Exactly one of err and data is meaningful. An error returned by the
// callback itself is routed to the conversation's unhandled sink, or, under
// the sequencer, becomes the step error.
type CompletionFunc func(err error, data any) error

// UnsolicitedHandler handles a token accepted by a registration. The match
// argument carries the raw match result (e.g. regexp submatches). Returning
// false declines the token, and dispatch continues with older registrations.
type UnsolicitedHandler func(token string, match any) bool

// UnhandledFunc receives errors and tokens that had no other destination.
type UnhandledFunc func(err error, data any)

// StepFunc is an asynchronous sequencer step. It must arrange for done to
// be called exactly once.
type StepFunc func(done CompletionFunc)

// ReceiveConfig configures a single receive operation.
type ReceiveConfig struct {
	// Timeout for the whole receive. Zero means the conversation default.
	Timeout time.Duration
	// OnData handles each inbound token. Nil accepts one token verbatim.
	OnData HandlerFunc
}

// Timer abstracts the host timer primitives. A handle cancelled through the
// returned function never fires.
type Timer interface {
	Now() time.Time
	Schedule(d time.Duration, f func()) (cancel func() error)
	Sleep(d time.Duration)
}

// Writer is the injected outbound sink of a conversation. WriteToken is
// called synchronously from Send; its error propagates to the caller.
type Writer interface {
	WriteToken(token string) error
}

// Transport is a full transport collaborator: a Writer plus lifecycle and
// inbound token delivery. Implementations tokenize the byte stream and
// deliver one whole token per OnToken callback.
type Transport interface {
	Writer
	String() string
	Open() error
	Close() error
	IsRunning() bool
	// OnToken sets the callback for inbound tokens. Must be set before Open.
	OnToken(onToken func(token string))
	// OnError sets the callback for fatal transport errors.
	OnError(onError func(err error))
	// OnUp registers a callback for when the transport comes up.
	OnUp(onUp func()) (cancel func())
	// OnDown registers a callback for when the transport goes down.
	OnDown(onDown func()) (cancel func())
}

// Conversation is the engine operation set. One instance talks to one
// partner; at most one receive or wait is in flight at a time.
type Conversation interface {
	String() string
	Timer() Timer

	// Send writes token through the transport writer. It reports ErrBusy,
	// without writing, while a receive or wait is in flight.
	Send(token string) error
	// ForceSend writes token regardless of the busy state.
	ForceSend(token string) error
	// Receive transitions to the receiving phase. If busy, ErrBusy is
	// delivered through onDone, or the unhandled sink when onDone is nil.
	Receive(cfg *ReceiveConfig, onDone CompletionFunc)
	// Cmd sends token and then receives, with the same gating as both.
	// Transport write errors are returned to the caller.
	Cmd(token string, cfg *ReceiveConfig, onDone CompletionFunc) error
	// Wait holds the conversation busy for d, then completes with WaitStop.
	Wait(d time.Duration, onDone CompletionFunc)
	// Stop terminates the in-flight operation, delivering (err, data) to its
	// completion callback. Stopping an idle conversation surfaces ErrNotBusy
	// through the unhandled sink.
	Stop(err error, data any)
	// ResetTimeout cancels and re-arms the receive timeout. Zero re-arms
	// with the previous value.
	ResetTimeout(d time.Duration)
	// Feed dispatches one inbound token. The returned error is non-nil only
	// when a dispatch failure had no callback or sink to deliver it to.
	Feed(token string) error
	Busy() bool
	// SetOnDone attaches a completion callback to the in-flight operation.
	// A callback already present runs first; an error it returns becomes the
	// err seen by cb. Reports ErrNotBusy when no operation is in flight.
	SetOnDone(cb CompletionFunc) error

	// Register prepends spec to the unsolicited dispatch order. With dedupe,
	// existing registrations with an equal spec are removed first.
	Register(spec any, dedupe bool, handler UnsolicitedHandler)
	// Deregister removes the most recent registration with an equal spec,
	// or all of them. It reports whether anything was removed.
	Deregister(spec any, all bool) bool
	DeregisterAll()

	// Acc is the per-operation accumulator slot. Handlers may store state
	// here; the slot is cleared whenever an operation terminates.
	Acc() any
	SetAcc(v any)

	// OnUnhandled sets the sink for tokens and errors with no destination.
	OnUnhandled(sink UnhandledFunc)
	// Unhandled routes (err, data) to the unhandled sink. With no sink the
	// error comes back to the caller and data is dropped.
	Unhandled(err error, data any) error
	SetDefaultTimeout(d time.Duration)
	// SetDebug raises the engine's dispatch logging from trace to debug.
	SetDebug(debug bool)
}
