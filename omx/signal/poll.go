/*
DESCRIPTION
  poll.go provides the bounded wait primitive used for every confirmation in
  the component protocol.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package signal

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
)

// Default bounds. The drain loop polls more finely than the control
// confirmations.
const (
	DefaultInterval      = 10 * time.Millisecond
	DefaultAttempts      = 500
	DefaultDrainInterval = time.Millisecond
)

// Bounds limits a wait to Attempts evaluations of its condition with at
// most Interval between them.
type Bounds struct {
	Interval time.Duration
	Attempts int
}

// DefaultBounds returns the bounds used when none are configured.
func DefaultBounds() Bounds {
	return Bounds{Interval: DefaultInterval, Attempts: DefaultAttempts}
}

// TimeoutError is returned when a bounded wait is exhausted.
type TimeoutError struct {
	What     string
	Attempts int
	Interval time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for %s after %d attempts at %v intervals", e.What, e.Attempts, e.Interval)
}

// Poll evaluates cond until it reports true, it returns an error, or b.Attempts
// evaluations spaced b.Interval apart on clk have failed, in which case a
// *TimeoutError is returned. The wait is therefore bounded by
// (b.Attempts-1)*b.Interval. If wake is not nil, cond is also re-evaluated
// each time the channel returned by wake is closed. These extra evaluations
// do not count as attempts and do not restart the interval. wake is called
// before each evaluation so that a change racing with the evaluation is not
// missed.
func Poll(clk clock.Clock, b Bounds, what string, cond func() (bool, error), wake func() <-chan struct{}) error {
	attempts := b.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var w <-chan struct{}
	eval := func() (bool, error) {
		if wake != nil {
			w = wake()
		}
		return cond()
	}

	for i := 1; ; i++ {
		ok, err := eval()
		if err != nil || ok {
			return err
		}
		if i >= attempts {
			return &TimeoutError{What: what, Attempts: i, Interval: b.Interval}
		}

		t := clk.Timer(b.Interval)
	wait:
		for {
			select {
			case <-t.C:
				break wait
			case <-w:
				ok, err := eval()
				if err != nil || ok {
					t.Stop()
					return err
				}
			}
		}
	}
}
