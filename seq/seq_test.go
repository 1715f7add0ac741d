package seq_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mysticpants/at"
	basic_engine "github.com/mysticpants/at/engine/basic"
	"github.com/mysticpants/at/engine/transport"
	"github.com/mysticpants/at/seq"
	tu "github.com/mysticpants/at/utils/testutils"
)

func executeTest(t *testing.T, main func(*transport.DummyTransport, *basic_engine.Conversation, *basic_engine.DummyTimer)) {
	tp := transport.NewDummyTransport()
	timer := basic_engine.NewDummyTimer()
	conv := basic_engine.NewConversation(tp, timer)
	tp.OnToken(func(token string) {
		require.NoError(t, conv.Feed(token))
	})
	tp.OnError(func(err error) {
		require.NoError(t, err)
	})
	require.NoError(t, tp.Open())

	main(tp, conv, timer)

	require.NoError(t, tp.Close())
}

func TestSyncSteps(t *testing.T) {
	executeTest(t, func(tp *transport.DummyTransport, conv *basic_engine.Conversation, timer *basic_engine.DummyTimer) {
		hitCnt := 0
		require.NoError(t, seq.Run(conv, []any{"one", "two", "three"}, func(err error, data any) error {
			hitCnt++
			require.NoError(t, err)
			require.Equal(t, "three", data)
			return nil
		}))
		require.Equal(t, 1, hitCnt)
	})
}

func TestAsyncSteps(t *testing.T) {
	executeTest(t, func(tp *transport.DummyTransport, conv *basic_engine.Conversation, timer *basic_engine.DummyTimer) {
		hitCnt := 0
		script := []any{
			at.StepFunc(func(done at.CompletionFunc) {
				require.NoError(t, conv.Cmd("AT", nil, done))
			}),
			at.StepFunc(func(done at.CompletionFunc) {
				require.NoError(t, conv.Cmd("AT+GMR", nil, done))
			}),
		}
		require.NoError(t, seq.Run(conv, script, func(err error, data any) error {
			hitCnt++
			require.NoError(t, err)
			require.Equal(t, "1.0.0", data)
			return nil
		}))

		require.Equal(t, "AT", tu.NoErr[string](t)(tp.Consume()))
		require.NoError(t, tp.FeedToken("OK"))

		require.Equal(t, "AT+GMR", tu.NoErr[string](t)(tp.Consume()))
		require.Equal(t, 0, hitCnt)
		require.NoError(t, tp.FeedToken("1.0.0"))
		require.Equal(t, 1, hitCnt)
		require.False(t, conv.Busy())
	})
}

// A step that already began a phase yields the conversation itself; the
// sequencer rides the phase's completion.
func TestSelfReferenceStep(t *testing.T) {
	executeTest(t, func(tp *transport.DummyTransport, conv *basic_engine.Conversation, timer *basic_engine.DummyTimer) {
		i := 0
		script := func() any {
			i++
			switch i {
			case 1:
				conv.Receive(nil, nil)
				return conv
			case 2:
				return "done"
			}
			return nil
		}

		hitCnt := 0
		require.NoError(t, seq.Run(conv, script, func(err error, data any) error {
			hitCnt++
			require.NoError(t, err)
			require.Equal(t, "done", data)
			return nil
		}))

		require.Equal(t, 0, hitCnt)
		require.NoError(t, tp.FeedToken("OK"))
		require.Equal(t, 1, hitCnt)
	})
}

// A user completion supplied at phase creation runs before the sequencer's
// continuation; its error becomes the step error.
func TestSelfReferenceWrapsOnDone(t *testing.T) {
	executeTest(t, func(tp *transport.DummyTransport, conv *basic_engine.Conversation, timer *basic_engine.DummyTimer) {
		order := []string{}
		i := 0
		script := func() any {
			i++
			switch i {
			case 1:
				conv.Receive(nil, func(err error, data any) error {
					order = append(order, "user")
					require.Equal(t, "OK", data)
					return nil
				})
				return conv
			}
			return nil
		}

		require.NoError(t, seq.Run(conv, script, func(err error, data any) error {
			order = append(order, "seq")
			require.NoError(t, err)
			require.Equal(t, "OK", data)
			return nil
		}))
		require.NoError(t, tp.FeedToken("OK"))
		require.Equal(t, []string{"user", "seq"}, order)
	})
}

func TestSelfReferenceUserError(t *testing.T) {
	executeTest(t, func(tp *transport.DummyTransport, conv *basic_engine.Conversation, timer *basic_engine.DummyTimer) {
		boom := errors.New("boom")
		i := 0
		script := func() any {
			i++
			switch i {
			case 1:
				conv.Receive(nil, func(err error, data any) error {
					return boom
				})
				return conv
			case 2:
				t.Fatal("sequence must not advance past a failed step")
			}
			return nil
		}

		hitCnt := 0
		require.NoError(t, seq.Run(conv, script, func(err error, data any) error {
			hitCnt++
			require.ErrorIs(t, err, boom)
			return nil
		}))
		require.NoError(t, tp.FeedToken("OK"))
		require.Equal(t, 1, hitCnt)
	})
}

func TestStepError(t *testing.T) {
	executeTest(t, func(tp *transport.DummyTransport, conv *basic_engine.Conversation, timer *basic_engine.DummyTimer) {
		boom := errors.New("boom")
		script := []any{
			at.StepFunc(func(done at.CompletionFunc) {
				done(boom, nil)
			}),
			at.StepFunc(func(done at.CompletionFunc) {
				t.Fatal("unreachable step")
			}),
		}
		hitCnt := 0
		require.NoError(t, seq.Run(conv, script, func(err error, data any) error {
			hitCnt++
			require.ErrorIs(t, err, boom)
			require.Nil(t, data)
			return nil
		}))
		require.Equal(t, 1, hitCnt)
	})
}

// Stopping the conversation kills only the step in flight; a nil-error stop
// advances the sequence.
func TestStopAdvancesSequence(t *testing.T) {
	executeTest(t, func(tp *transport.DummyTransport, conv *basic_engine.Conversation, timer *basic_engine.DummyTimer) {
		script := []any{
			at.StepFunc(func(done at.CompletionFunc) {
				conv.Receive(&at.ReceiveConfig{OnData: func(token string) (any, error) {
					return at.CBRepeat, nil
				}}, done)
			}),
			"after",
		}
		hitCnt := 0
		require.NoError(t, seq.Run(conv, script, func(err error, data any) error {
			hitCnt++
			require.NoError(t, err)
			require.Equal(t, "after", data)
			return nil
		}))

		require.NoError(t, tp.FeedToken("partial"))
		require.Equal(t, 0, hitCnt)

		conv.Stop(nil, "stopped")
		require.Equal(t, 1, hitCnt)
	})
}

func TestWaitStep(t *testing.T) {
	executeTest(t, func(tp *transport.DummyTransport, conv *basic_engine.Conversation, timer *basic_engine.DummyTimer) {
		script := []any{
			at.StepFunc(func(done at.CompletionFunc) {
				conv.Wait(2*time.Second, done)
			}),
		}
		hitCnt := 0
		require.NoError(t, seq.Run(conv, script, func(err error, data any) error {
			hitCnt++
			require.NoError(t, err)
			require.Equal(t, at.WaitStop, data)
			return nil
		}))

		require.Equal(t, 0, hitCnt)
		timer.MoveForward(3 * time.Second)
		require.Equal(t, 1, hitCnt)
	})
}

func TestBusyAtEntry(t *testing.T) {
	executeTest(t, func(tp *transport.DummyTransport, conv *basic_engine.Conversation, timer *basic_engine.DummyTimer) {
		conv.Receive(nil, nil)

		hitCnt := 0
		require.NoError(t, seq.Run(conv, []any{"x"}, func(err error, data any) error {
			hitCnt++
			require.ErrorIs(t, err, at.ErrBusy)
			return nil
		}))
		require.Equal(t, 1, hitCnt)

		conv.Stop(nil, nil)
	})
}

// Without an onDone, the busy rejection goes to the unhandled sink; with
// neither, it comes back from Run.
func TestBusyAtEntryWithoutCallback(t *testing.T) {
	executeTest(t, func(tp *transport.DummyTransport, conv *basic_engine.Conversation, timer *basic_engine.DummyTimer) {
		conv.Receive(nil, nil)

		require.ErrorIs(t, seq.Run(conv, []any{"x"}, nil), at.ErrBusy)

		var errs []error
		conv.OnUnhandled(func(err error, data any) {
			errs = append(errs, err)
		})
		require.NoError(t, seq.Run(conv, []any{"x"}, nil))
		require.Len(t, errs, 1)
		require.ErrorIs(t, errs[0], at.ErrBusy)

		conv.OnUnhandled(nil)
		conv.Stop(nil, nil)
	})
}

func TestEmptyScript(t *testing.T) {
	executeTest(t, func(tp *transport.DummyTransport, conv *basic_engine.Conversation, timer *basic_engine.DummyTimer) {
		hitCnt := 0
		require.NoError(t, seq.Run(conv, []any{}, func(err error, data any) error {
			hitCnt++
			require.NoError(t, err)
			require.Nil(t, data)
			return nil
		}))
		require.Equal(t, 1, hitCnt)
	})
}

func TestUnsupportedScript(t *testing.T) {
	executeTest(t, func(tp *transport.DummyTransport, conv *basic_engine.Conversation, timer *basic_engine.DummyTimer) {
		require.Error(t, seq.Run(conv, 42, nil))
	})
}
