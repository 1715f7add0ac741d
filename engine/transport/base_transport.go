// Package transport holds the reference transport collaborators: the
// in-memory dummy for tests, and stream, websocket and serial transports
// that tokenize the byte stream into lines.
package transport

import (
	"sync"
	"sync/atomic"
)

// baseTransport is the base struct for transport implementations.
type baseTransport struct {
	running atomic.Bool
	onToken func(token string)
	onError func(err error)
	sendMut sync.Mutex

	onUp     sync.Map
	onDown   sync.Map
	onUpHndl int
	onDnHndl int
}

func (t *baseTransport) IsRunning() bool {
	return t.running.Load()
}

// OnToken sets the callback invoked with each inbound token.
func (t *baseTransport) OnToken(onToken func(token string)) {
	t.onToken = onToken
}

// OnError sets the callback invoked on a fatal transport error.
func (t *baseTransport) OnError(onError func(err error)) {
	t.onError = onError
}

// OnUp registers a callback for when the transport comes up and returns a
// function to cancel the registration.
func (t *baseTransport) OnUp(onUp func()) (cancel func()) {
	hndl := t.onUpHndl
	t.onUp.Store(hndl, onUp)
	t.onUpHndl++
	return func() { t.onUp.Delete(hndl) }
}

// OnDown registers a callback for when the transport goes down and returns
// a function to cancel the registration.
func (t *baseTransport) OnDown(onDown func()) (cancel func()) {
	hndl := t.onDnHndl
	t.onDown.Store(hndl, onDown)
	t.onDnHndl++
	return func() { t.onDown.Delete(hndl) }
}

// setStateDown sets the transport to down state, and makes the down
// callback if the transport was previously up.
func (t *baseTransport) setStateDown() {
	if t.running.Swap(false) {
		t.onDown.Range(func(_, cb any) bool {
			cb.(func())()
			return true
		})
	}
}

// setStateUp sets the transport to up state, and makes the up callback if
// the transport was previously down.
func (t *baseTransport) setStateUp() {
	if !t.running.Swap(true) {
		t.onUp.Range(func(_, cb any) bool {
			cb.(func())()
			return true
		})
	}
}

// setStateClosed sets the transport to closed state without making the
// down callback. Returns if the transport was running.
func (t *baseTransport) setStateClosed() bool {
	return t.running.Swap(false)
}
