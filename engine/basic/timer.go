package basic

import (
	"fmt"
	"time"

	"github.com/mysticpants/at"
)

type Timer struct{}

// NewTimer returns the wall-clock timer.
func NewTimer() at.Timer {
	return Timer{}
}

func (Timer) Sleep(d time.Duration) {
	time.Sleep(d)
}

// Schedule runs f after d and returns a cancellation function. Cancelling
// after the event fired or was cancelled returns an error.
func (Timer) Schedule(d time.Duration, f func()) func() error {
	t := time.AfterFunc(d, f)
	return func() error {
		if t == nil {
			return fmt.Errorf("event has already been canceled")
		}
		stopped := t.Stop()
		t = nil
		if !stopped {
			return fmt.Errorf("event has already fired")
		}
		return nil
	}
}

func (Timer) Now() time.Time {
	return time.Now()
}
