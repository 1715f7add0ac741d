// Package seq drives a script of steps over a conversation to completion.
//
// A script yields steps of three kinds. An at.StepFunc (or any
// func(at.CompletionFunc)) is called with the sequencer's continuation and
// advances when the continuation fires. The conversation instance itself
// marks a step that has already begun a receive or wait on the
// conversation; the sequencer attaches its continuation to that phase. Any
// other value is the step's synchronous result.
//
// A sequence terminates with the last step's data on exhaustion, or with
// the first error a step surfaces. Stopping the conversation terminates
// only the step in flight: its completion is observed through the
// continuation like any other, so a stop with a nil error advances the
// sequence rather than aborting it.
package seq

import (
	"fmt"

	"github.com/mysticpants/at"
)

// puller yields the next step, reporting false on exhaustion.
type puller func() (any, bool)

// Run drives script over conv. The script may be a []any of steps, a
// nullary func() any pulled until it yields nil, or a func() (any, bool)
// iterator. The conversation must be idle; otherwise at.ErrBusy is
// delivered through onDone, or the unhandled sink when onDone is nil, the
// busy error coming back from Run itself when neither exists. Beyond that,
// Run returns an error only for arguments it cannot interpret.
func Run(conv at.Conversation, script any, onDone at.CompletionFunc) error {
	if conv == nil {
		return fmt.Errorf("nil conversation")
	}
	next, err := normalize(script)
	if err != nil {
		return err
	}

	if conv.Busy() {
		if onDone != nil {
			onDone(at.ErrBusy, nil)
			return nil
		}
		return conv.Unhandled(at.ErrBusy, nil)
	}

	s := &sequence{
		conv:   conv,
		next:   next,
		onDone: onDone,
	}
	s.advance()
	return nil
}

func normalize(script any) (puller, error) {
	switch s := script.(type) {
	case []any:
		i := 0
		return func() (any, bool) {
			if i >= len(s) {
				return nil, false
			}
			v := s[i]
			i++
			return v, true
		}, nil
	case func() any:
		return func() (any, bool) {
			v := s()
			if v == nil {
				return nil, false
			}
			return v, true
		}, nil
	case func() (any, bool):
		return s, nil
	}
	return nil, fmt.Errorf("unsupported script type %T", script)
}

type sequence struct {
	conv     at.Conversation
	next     puller
	onDone   at.CompletionFunc
	lastData any
	finished bool
}

func (s *sequence) advance() {
	for {
		v, ok := s.next()
		if !ok {
			s.terminate(nil, s.lastData)
			return
		}

		switch step := v.(type) {
		case at.StepFunc:
			step(s.continuation())
			return
		case func(at.CompletionFunc):
			step(s.continuation())
			return
		}

		if cv, ok := v.(at.Conversation); ok && cv == s.conv {
			// The step already began a phase on the conversation; ride its
			// completion.
			if err := s.conv.SetOnDone(s.continuation()); err != nil {
				s.terminate(err, nil)
			}
			return
		}

		// Synchronous step: its value is the result.
		s.lastData = v
	}
}

// continuation builds the per-step completion. Steps must fire it exactly
// once; late calls after the sequence finished are dropped.
func (s *sequence) continuation() at.CompletionFunc {
	fired := false
	return func(err error, data any) error {
		if fired || s.finished {
			return nil
		}
		fired = true
		if err != nil {
			s.terminate(err, nil)
			return nil
		}
		s.lastData = data
		s.advance()
		return nil
	}
}

func (s *sequence) terminate(err error, data any) {
	if s.finished {
		return
	}
	s.finished = true
	if s.onDone != nil {
		s.onDone(err, data)
	}
}
