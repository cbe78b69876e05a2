/*
DESCRIPTION
  state.go provides one step at a time state transitions for a Component.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package component

import (
	"fmt"

	"github.com/ausocean/omxcam/omx"
	"github.com/ausocean/omxcam/omx/signal"
)

// ladder is the order of the states a component moves through.
var ladder = []omx.State{omx.StateLoaded, omx.StateIdle, omx.StateExecuting}

func rung(s omx.State) int {
	for i, l := range ladder {
		if l == s {
			return i
		}
	}
	return -1
}

// adjacent reports whether from and to are one step apart.
func adjacent(from, to omx.State) bool {
	switch {
	case from == omx.StatePause:
		return to == omx.StateIdle || to == omx.StateExecuting
	case to == omx.StatePause:
		return from == omx.StateIdle || from == omx.StateExecuting
	}
	a, b := rung(from), rung(to)
	return a >= 0 && b >= 0 && (a-b == 1 || b-a == 1)
}

// State returns the last confirmed state of the component.
func (c *Component) State() omx.State { return c.state }

// Step moves the component to next, which must be adjacent to its current
// state, and waits for the runtime to report the new state.
func (c *Component) Step(next omx.State) error {
	if c.released {
		return ErrReleased
	}
	if !adjacent(c.state, next) {
		return fmt.Errorf("%s from %v to %v: %w", c.name, c.state, next, ErrSkippedState)
	}

	err := c.rt.SendCommand(c.h, omx.CommandStateSet, uint32(next))
	if err != nil {
		return omx.Check(err, "set state of %s to %v", c.name, next)
	}

	what := fmt.Sprintf("%s to enter %v state", c.name, next)
	err = signal.Poll(c.board.Clock(), c.bounds, what, func() (bool, error) {
		if err := c.board.Err(); err != nil {
			return false, err
		}
		s, err := c.rt.State(c.h)
		if err != nil {
			return false, omx.Check(err, "get state of %s", c.name)
		}
		return s == next, nil
	}, c.board.Changed)
	if err != nil {
		return err
	}

	c.debug("state changed", "from", c.state.String(), "to", next.String())
	c.state = next
	return nil
}

// SetState moves the component to target one step at a time, e.g. Loaded to
// Executing passes through Idle.
func (c *Component) SetState(target omx.State) error {
	for c.state != target {
		next, err := c.toward(target)
		if err != nil {
			return err
		}
		err = c.Step(next)
		if err != nil {
			return err
		}
	}
	return nil
}

// toward returns the state after the current one on the way to target.
func (c *Component) toward(target omx.State) (omx.State, error) {
	if adjacent(c.state, target) {
		return target, nil
	}
	from, to := rung(c.state), rung(target)
	if c.state == omx.StatePause {
		from = rung(omx.StateIdle)
	}
	if target == omx.StatePause {
		to = rung(omx.StateIdle)
	}
	switch {
	case from < 0 || to < 0:
		return omx.StateInvalid, fmt.Errorf("%s from %v to %v: %w", c.name, c.state, target, ErrSkippedState)
	case c.state == omx.StatePause:
		return omx.StateIdle, nil
	case to > from:
		return ladder[from+1], nil
	default:
		return ladder[from-1], nil
	}
}
