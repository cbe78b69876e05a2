/*
DESCRIPTION
  component.go provides Component, which drives one hardware component of an
  omx.Runtime through its lifecycle.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package component drives hardware components through their lifecycle
// (acquire, quiesce, Loaded, Idle, Executing and back, release) and manages
// their ports, tunnels and buffers. Every command is confirmed with a
// bounded wait; nothing is assumed done when the runtime accepts it.
//
// A Component is not safe for concurrent use. It is driven by a single
// control goroutine while runtime notifications arrive on a signal.Board.
package component

import (
	"errors"
	"fmt"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/omxcam/omx"
	"github.com/ausocean/omxcam/omx/signal"
)

const pkg = "component: "

// Errors returned for calls that would break the component protocol. They
// are detected before the runtime is contacted.
var (
	ErrSkippedState    = errors.New("state transition skips a state")
	ErrNotLoaded       = errors.New("component not in loaded state")
	ErrReleased        = errors.New("component released")
	ErrUnknownPort     = errors.New("unknown port")
	ErrDirection       = errors.New("incompatible port directions")
	ErrTunneled        = errors.New("port is tunneled")
	ErrPortEnabled     = errors.New("port is enabled")
	ErrNoBuffer        = errors.New("no buffer allocated on port")
	ErrBufferAllocated = errors.New("buffer already allocated on port")
	ErrBufferInFlight  = errors.New("buffer owned by component")
)

// Option applies an option to a Component.
type Option func(c *Component) error

// WithBounds sets the bounds of state and port confirmations.
func WithBounds(b signal.Bounds) Option {
	return func(c *Component) error {
		if b.Interval <= 0 || b.Attempts < 1 {
			return fmt.Errorf("invalid bounds: %+v", b)
		}
		c.bounds = b
		return nil
	}
}

// WithFlushBounds sets the bounds of flush confirmations.
func WithFlushBounds(b signal.Bounds) Option {
	return func(c *Component) error {
		if b.Interval <= 0 || b.Attempts < 1 {
			return fmt.Errorf("invalid flush bounds: %+v", b)
		}
		c.flushBounds = b
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Component) error {
		c.log = l
		return nil
	}
}

// Component is a hardware component acquired from a Runtime.
type Component struct {
	rt    omx.Runtime
	board *signal.Board
	log   logging.Logger

	name string
	h    omx.Handle

	bounds      signal.Bounds
	flushBounds signal.Bounds

	state    omx.State // Last confirmed state.
	released bool

	ports map[uint32]*portState
	order []uint32
}

// Acquire obtains the component with the given name, e.g. "camera", from rt
// and disables every one of its ports, confirming each. Notifications for
// the component are delivered to board.
func Acquire(rt omx.Runtime, board *signal.Board, name string, opts ...Option) (*Component, error) {
	c := &Component{
		rt:          rt,
		board:       board,
		name:        name,
		bounds:      signal.DefaultBounds(),
		flushBounds: signal.DefaultBounds(),
		ports:       make(map[uint32]*portState),
	}
	for i, o := range opts {
		err := o(c)
		if err != nil {
			return nil, fmt.Errorf("could not apply option %d: %w", i, err)
		}
	}

	full := omx.VendorPrefix + name
	h, err := rt.Acquire(full, board)
	if err != nil {
		return nil, omx.Check(err, "acquire %s", full)
	}
	c.h = h
	board.Register(h, name)

	s, err := rt.State(h)
	if err != nil {
		return nil, omx.Check(err, "get state of %s", name)
	}
	c.state = s
	c.debug("acquired", "handle", h, "state", s.String())

	err = c.discover()
	if err != nil {
		return nil, err
	}
	err = c.quiesce()
	if err != nil {
		return nil, err
	}
	return c, nil
}

// discover records the ports exposed by the component.
func (c *Component) discover() error {
	groups, err := c.rt.PortGroups(c.h)
	if err != nil {
		return omx.Check(err, "get port groups of %s", c.name)
	}
	for _, g := range groups {
		for _, idx := range g.Ports() {
			def, err := c.PortDefinition(idx)
			if err != nil {
				return err
			}
			c.ports[idx] = &portState{
				index:   idx,
				dir:     def.Dir,
				domain:  def.Domain,
				enabled: def.Enabled,
			}
			c.order = append(c.order, idx)
		}
	}
	return nil
}

// quiesce disables every port of the component so it starts from a known
// state regardless of its defaults.
func (c *Component) quiesce() error {
	for _, idx := range c.order {
		err := c.DisablePort(idx)
		if err != nil {
			return fmt.Errorf("could not quiesce %s: %w", c.name, err)
		}
	}
	return nil
}

// Release frees the component's handle. The component must be in the loaded
// state.
func (c *Component) Release() error {
	if c.released {
		return ErrReleased
	}
	if c.state != omx.StateLoaded {
		return fmt.Errorf("%s in state %v: %w", c.name, c.state, ErrNotLoaded)
	}
	err := c.rt.Release(c.h)
	if err != nil {
		return omx.Check(err, "release %s", c.name)
	}
	c.released = true
	c.debug("released")
	return nil
}

// Name returns the component's short name.
func (c *Component) Name() string { return c.name }

// Handle returns the component's runtime handle.
func (c *Component) Handle() omx.Handle { return c.h }

// Ports returns the component's port indices in discovery order.
func (c *Component) Ports() []uint32 { return append([]uint32(nil), c.order...) }

// SetParameter sets the parameter idx to the payload p.
func (c *Component) SetParameter(idx omx.Index, p interface{}) error {
	if c.released {
		return ErrReleased
	}
	return omx.Check(c.rt.SetParameter(c.h, idx, p), "set %v on %s", idx, c.name)
}

// GetParameter reads the parameter idx into the payload p.
func (c *Component) GetParameter(idx omx.Index, p interface{}) error {
	if c.released {
		return ErrReleased
	}
	return omx.Check(c.rt.GetParameter(c.h, idx, p), "get %v of %s", idx, c.name)
}

// SetConfig sets the configuration idx to the payload p.
func (c *Component) SetConfig(idx omx.Index, p interface{}) error {
	if c.released {
		return ErrReleased
	}
	return omx.Check(c.rt.SetConfig(c.h, idx, p), "set %v on %s", idx, c.name)
}

// GetConfig reads the configuration idx into the payload p.
func (c *Component) GetConfig(idx omx.Index, p interface{}) error {
	if c.released {
		return ErrReleased
	}
	return omx.Check(c.rt.GetConfig(c.h, idx, p), "get %v of %s", idx, c.name)
}

func (c *Component) debug(msg string, args ...interface{}) {
	if c.log != nil {
		c.log.Debug(pkg+msg, append([]interface{}{"component", c.name}, args...)...)
	}
}
