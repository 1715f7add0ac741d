// Package basic gives the default implementation of the at.Conversation
// interface: the busy/idle state machine, inbound dispatch, send gating and
// the timed receive/wait operations.
package basic

import (
	"sync"
	"time"

	"github.com/mysticpants/at"
	"github.com/mysticpants/at/log"
	"github.com/mysticpants/at/match"
)

// Conversation drives a token-at-a-time dialogue with one partner. At most
// one receive or wait is in flight; handlers and timer callbacks run on the
// goroutine that triggered them.
type Conversation struct {
	writer at.Writer
	timer  at.Timer

	// Dispatch is cooperative, so there is little contention; the lock only
	// keeps timer goroutines and the feeding goroutine consistent.
	mutex sync.Mutex

	// Receiving phase: the active token handler. Detached while it runs.
	onData at.HandlerFunc
	// Pending completion callback of the in-flight operation.
	onDone at.CompletionFunc
	// Current receive timeout value, reused by ResetTimeout.
	toTime time.Duration
	// Cancel handles for the receive-timeout and wait timers.
	toCancel   func() error
	waitCancel func() error

	defaultTimeout time.Duration
	regs           []registration
	acc            any
	onUnhandled    at.UnhandledFunc
	debug          bool
}

var _ at.Conversation = (*Conversation)(nil)

// NewConversation creates a conversation writing through writer and keeping
// time with timer.
func NewConversation(writer at.Writer, timer at.Timer) *Conversation {
	if writer == nil || timer == nil {
		return nil
	}
	return &Conversation{
		writer:         writer,
		timer:          timer,
		defaultTimeout: at.DefaultTimeout,
	}
}

func (c *Conversation) String() string {
	return "at-conversation"
}

func (c *Conversation) Timer() at.Timer {
	return c.timer
}

// Busy reports whether a receive or wait is in flight. While an active
// receive handler is being invoked the conversation is observably idle, so
// the handler can send or begin the next operation.
func (c *Conversation) Busy() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.busyLocked()
}

func (c *Conversation) busyLocked() bool {
	return c.onData != nil || c.waitCancel != nil
}

func (c *Conversation) Send(token string) error {
	if c.Busy() {
		return at.ErrBusy
	}
	return c.write(token)
}

func (c *Conversation) ForceSend(token string) error {
	return c.write(token)
}

func (c *Conversation) write(token string) error {
	c.trace("Send token", "token", token)
	return c.writer.WriteToken(token)
}

func (c *Conversation) Receive(cfg *at.ReceiveConfig, onDone at.CompletionFunc) {
	c.mutex.Lock()
	if c.busyLocked() {
		c.mutex.Unlock()
		c.rejectBusy(onDone)
		return
	}

	d := c.defaultTimeout
	var handler at.HandlerFunc
	if cfg != nil {
		if cfg.Timeout > 0 {
			d = cfg.Timeout
		}
		handler = cfg.OnData
	}
	if handler == nil {
		handler = acceptOne
	}

	// One receive timer per instance: a handle from an enclosing receive
	// may still be armed when a handler starts the next one.
	if c.toCancel != nil {
		c.toCancel()
	}
	c.onData = handler
	c.onDone = onDone
	c.toTime = d
	c.toCancel = c.timer.Schedule(d, c.onReceiveTimeout)
	c.mutex.Unlock()

	c.trace("Receive armed", "timeout", d)
}

// acceptOne is the default receive handler: one token, verbatim.
func acceptOne(token string) (any, error) {
	return token, nil
}

func (c *Conversation) Cmd(token string, cfg *at.ReceiveConfig, onDone at.CompletionFunc) error {
	if c.Busy() {
		c.rejectBusy(onDone)
		return at.ErrBusy
	}
	if err := c.write(token); err != nil {
		return err
	}
	c.Receive(cfg, onDone)
	return nil
}

func (c *Conversation) Wait(d time.Duration, onDone at.CompletionFunc) {
	c.mutex.Lock()
	if c.busyLocked() {
		c.mutex.Unlock()
		c.rejectBusy(onDone)
		return
	}
	c.onDone = onDone
	c.waitCancel = c.timer.Schedule(d, c.onWaitExpiry)
	c.mutex.Unlock()

	c.trace("Wait armed", "duration", d)
}

func (c *Conversation) Stop(err error, data any) {
	c.mutex.Lock()
	if !c.busyLocked() {
		c.mutex.Unlock()
		c.Unhandled(at.ErrNotBusy, nil)
		return
	}
	cb := c.finishLocked()
	c.mutex.Unlock()
	c.deliver(cb, err, data)
}

func (c *Conversation) ResetTimeout(d time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.toCancel == nil && c.onData == nil {
		return
	}
	if c.toCancel != nil {
		c.toCancel()
		c.toCancel = nil
	}
	if d > 0 {
		c.toTime = d
	}
	c.toCancel = c.timer.Schedule(c.toTime, c.onReceiveTimeout)
}

func (c *Conversation) SetOnDone(cb at.CompletionFunc) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if !c.busyLocked() {
		return at.ErrNotBusy
	}
	if prev := c.onDone; prev != nil {
		// The callback supplied at phase creation runs first; an error it
		// returns becomes the error cb observes.
		c.onDone = func(err error, data any) error {
			if perr := prev(err, data); perr != nil {
				return cb(perr, nil)
			}
			return cb(err, data)
		}
	} else {
		c.onDone = cb
	}
	return nil
}

// Feed dispatches one inbound token: registrations first (newest to
// oldest), then the waiting-phase drop, then the active receive handler,
// then the unhandled sink. The returned error is non-nil only when a
// failure had no callback or sink to deliver it to.
func (c *Conversation) Feed(token string) error {
	c.trace("Feed token", "token", token)

	c.mutex.Lock()
	regs := make([]registration, len(c.regs))
	copy(regs, c.regs)
	c.mutex.Unlock()

	for i := len(regs) - 1; i >= 0; i-- {
		result, err := match.Match(regs[i].spec, token)
		if err != nil {
			return c.dispatchError(err)
		}
		if !match.Matched(result) {
			continue
		}
		if regs[i].handler(token, result) {
			c.trace("Token consumed by registration", "token", token)
			return nil
		}
	}

	c.mutex.Lock()
	if c.waitCancel != nil {
		// The waiting phase swallows inbound tokens.
		c.mutex.Unlock()
		return nil
	}
	handler := c.onData
	c.onData = nil
	c.mutex.Unlock()

	if handler == nil {
		return c.Unhandled(nil, token)
	}

	result, err := handler(token)
	if err != nil {
		c.mutex.Lock()
		cb := c.finishLocked()
		c.mutex.Unlock()
		c.deliver(cb, err, nil)
		return nil
	}
	switch r := result.(type) {
	case *at.Sentinel:
		if r == at.CBRepeat {
			c.mutex.Lock()
			// The handler may have begun a new operation; leave it in place.
			if c.onData == nil && c.waitCancel == nil {
				c.onData = handler
			}
			c.mutex.Unlock()
			return nil
		}
	case at.HandlerFunc:
		c.mutex.Lock()
		c.onData = r
		c.mutex.Unlock()
		return nil
	case func(string) (any, error):
		c.mutex.Lock()
		c.onData = r
		c.mutex.Unlock()
		return nil
	}

	c.mutex.Lock()
	cb := c.finishLocked()
	c.mutex.Unlock()
	c.deliver(cb, nil, result)
	return nil
}

func (c *Conversation) Acc() any {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.acc
}

func (c *Conversation) SetAcc(v any) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.acc = v
}

func (c *Conversation) OnUnhandled(sink at.UnhandledFunc) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.onUnhandled = sink
}

func (c *Conversation) SetDefaultTimeout(d time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if d > 0 {
		c.defaultTimeout = d
	}
}

func (c *Conversation) SetDebug(debug bool) {
	c.debug = debug
}

// finishLocked performs the terminal transition: clear the accumulator,
// cancel both timers, detach the handler and snapshot the completion
// callback, leaving the conversation idle. The ordering is load-bearing:
// the snapshot callback observes an idle instance when invoked.
func (c *Conversation) finishLocked() at.CompletionFunc {
	c.acc = nil
	if c.toCancel != nil {
		c.toCancel()
		c.toCancel = nil
	}
	if c.waitCancel != nil {
		c.waitCancel()
		c.waitCancel = nil
	}
	c.onData = nil
	cb := c.onDone
	c.onDone = nil
	return cb
}

// deliver invokes a snapshot completion callback. Errors with no callback,
// and errors the callback itself returns, go to the unhandled sink. Data
// with no callback is dropped; in particular a wait's natural expiry is not
// surfaced when no callback was attached.
func (c *Conversation) deliver(cb at.CompletionFunc, err error, data any) {
	if cb == nil {
		if err != nil {
			c.Unhandled(err, data)
		}
		return
	}
	if cberr := cb(err, data); cberr != nil {
		c.Unhandled(cberr, nil)
	}
}

// dispatchError routes a dispatch failure: the in-flight operation's
// completion callback when one exists, the unhandled sink otherwise.
func (c *Conversation) dispatchError(err error) error {
	c.mutex.Lock()
	if c.onData != nil || c.waitCancel != nil || c.onDone != nil {
		cb := c.finishLocked()
		c.mutex.Unlock()
		c.deliver(cb, err, nil)
		return nil
	}
	c.mutex.Unlock()
	return c.Unhandled(err, nil)
}

func (c *Conversation) rejectBusy(onDone at.CompletionFunc) {
	if onDone != nil {
		c.deliver(onDone, at.ErrBusy, nil)
		return
	}
	c.Unhandled(at.ErrBusy, nil)
}

// Unhandled hands (err, data) to the sink. With no sink, errors are
// returned to the caller and data is dropped.
func (c *Conversation) Unhandled(err error, data any) error {
	c.mutex.Lock()
	sink := c.onUnhandled
	c.mutex.Unlock()
	if sink != nil {
		sink(err, data)
		return nil
	}
	if err != nil {
		log.Warn(c, "Unhandled error dropped", "err", err)
		return err
	}
	c.trace("Unhandled token dropped", "data", data)
	return nil
}

func (c *Conversation) onReceiveTimeout() {
	c.mutex.Lock()
	if c.toCancel == nil {
		// The receive terminated before the expiry was observed.
		c.mutex.Unlock()
		return
	}
	cb := c.finishLocked()
	c.mutex.Unlock()

	log.Debug(c, "Receive timed out")
	c.deliver(cb, at.ErrTimeout, nil)
}

func (c *Conversation) onWaitExpiry() {
	c.mutex.Lock()
	if c.waitCancel == nil {
		c.mutex.Unlock()
		return
	}
	cb := c.finishLocked()
	c.mutex.Unlock()

	c.trace("Wait expired")
	c.deliver(cb, nil, at.WaitStop)
}

func (c *Conversation) trace(msg string, v ...any) {
	if c.debug {
		log.Debug(c, msg, v...)
	} else {
		log.Trace(c, msg, v...)
	}
}
