package atsh

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/mysticpants/at"
	"github.com/mysticpants/at/expect"
	"github.com/mysticpants/at/seq"
)

// Script is the YAML form of a scripted dialogue.
type Script struct {
	Uri     string `yaml:"uri"`
	Timeout string `yaml:"timeout"`
	Steps   []Step `yaml:"steps"`
}

// Step is one scripted exchange. Send writes a token; Expect lists regular
// expressions the replies must satisfy; Wait holds the conversation busy
// for a duration. A step may send, expect, or both.
type Step struct {
	Send    string   `yaml:"send"`
	Expect  []string `yaml:"expect"`
	Flags   []string `yaml:"flags"`
	Select  *int     `yaml:"select"`
	Timeout string   `yaml:"timeout"`
	Wait    string   `yaml:"wait"`
}

var flagNames = map[string]expect.Flags{
	"unordered":           expect.Unordered,
	"ignore-non-matching": expect.IgnoreNonMatching,
	"allow-repeats":       expect.AllowRepeats,
	"collect-all":         expect.CollectAll,
	"use-match-result":    expect.UseMatchResult,
}

// applyFlags lets command-line flags override the script file.
func (s *Script) applyFlags(uri string, timeout string) {
	if uri != "" {
		s.Uri = uri
	}
	if timeout != "" {
		s.Timeout = timeout
	}
}

// Run drives the script's steps through the sequencer and blocks until the
// dialogue terminates.
func (s *Script) Run(conv at.Conversation) error {
	defTimeout, err := parseDuration(s.Timeout)
	if err != nil {
		return err
	}
	if defTimeout > 0 {
		conv.SetDefaultTimeout(defTimeout)
	}

	steps := make([]any, len(s.Steps))
	for i := range s.Steps {
		step, err := s.Steps[i].compile(conv)
		if err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		steps[i] = step
	}

	done := make(chan error, 1)
	err = seq.Run(conv, steps, func(err error, data any) error {
		done <- err
		return nil
	})
	if err != nil {
		return err
	}
	return <-done
}

func (st *Step) compile(conv at.Conversation) (at.StepFunc, error) {
	if st.Wait != "" {
		d, err := parseDuration(st.Wait)
		if err != nil {
			return nil, err
		}
		return func(done at.CompletionFunc) {
			conv.Wait(d, done)
		}, nil
	}

	if st.Send == "" && len(st.Expect) == 0 {
		return nil, errors.New("step does nothing")
	}

	timeout, err := parseDuration(st.Timeout)
	if err != nil {
		return nil, err
	}

	var flags expect.Flags
	for _, name := range st.Flags {
		f, ok := flagNames[name]
		if !ok {
			return nil, fmt.Errorf("unknown flag %q", name)
		}
		flags |= f
	}

	var handler at.HandlerFunc
	if len(st.Expect) > 0 {
		pattern := make([]any, len(st.Expect))
		for i, e := range st.Expect {
			re, err := regexp.Compile(e)
			if err != nil {
				return nil, fmt.Errorf("expect %q: %w", e, err)
			}
			pattern[i] = re
		}
		n := -1
		if st.Select != nil {
			n = *st.Select
		}
		handler, err = expect.Compile(pattern, flags, n)
		if err != nil {
			return nil, err
		}
	}

	send := st.Send
	cfg := &at.ReceiveConfig{Timeout: timeout, OnData: handler}

	if send == "" {
		return func(done at.CompletionFunc) {
			conv.Receive(cfg, done)
		}, nil
	}
	if handler == nil && len(st.Expect) == 0 {
		return func(done at.CompletionFunc) {
			done(conv.Send(send), nil)
		}, nil
	}
	return func(done at.CompletionFunc) {
		if err := conv.Cmd(send, cfg, done); err != nil && !errors.Is(err, at.ErrBusy) {
			// Busy was already delivered through done.
			done(err, nil)
		}
	}, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}
