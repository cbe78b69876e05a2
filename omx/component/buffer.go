/*
DESCRIPTION
  buffer.go provides allocation and exchange of the single buffer held on a
  non-tunneled port.

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

// AllocateBuffer allocates the buffer of the non-tunneled port idx. The
// size is taken from the port definition read immediately before, as it
// depends on earlier configuration.
func (c *Component) AllocateBuffer(idx uint32) (*omx.Buffer, error) {
	if c.released {
		return nil, ErrReleased
	}
	p, err := c.port(idx)
	if err != nil {
		return nil, err
	}
	switch {
	case p.tunnel != nil:
		return nil, fmt.Errorf("allocate on %s port %d: %w", c.name, idx, ErrTunneled)
	case p.buf != nil:
		return nil, fmt.Errorf("allocate on %s port %d: %w", c.name, idx, ErrBufferAllocated)
	}

	def, err := c.PortDefinition(idx)
	if err != nil {
		return nil, err
	}
	b, err := c.rt.AllocateBuffer(c.h, idx, def.BufferSize)
	if err != nil {
		return nil, omx.Check(err, "allocate buffer on %s port %d", c.name, idx)
	}
	p.buf = b
	p.inFlight = false
	c.board.Set(signal.BufferReady(c.name, idx), false)
	c.debug("buffer allocated", "port", idx, "size", def.BufferSize)
	return b, nil
}

// FreeBuffer frees the buffer of port idx. The port must be disabled and
// the buffer owned by the application.
func (c *Component) FreeBuffer(idx uint32) error {
	if c.released {
		return ErrReleased
	}
	p, err := c.port(idx)
	if err != nil {
		return err
	}
	switch {
	case p.buf == nil:
		return fmt.Errorf("free on %s port %d: %w", c.name, idx, ErrNoBuffer)
	case p.enabled:
		return fmt.Errorf("free on %s port %d: %w", c.name, idx, ErrPortEnabled)
	case c.inFlight(p):
		return fmt.Errorf("free on %s port %d: %w", c.name, idx, ErrBufferInFlight)
	}

	err = c.rt.FreeBuffer(c.h, idx, p.buf)
	if err != nil {
		return omx.Check(err, "free buffer on %s port %d", c.name, idx)
	}
	p.buf = nil
	c.debug("buffer freed", "port", idx)
	return nil
}

// FillBuffer hands the buffer of output port idx to the component to be
// filled. The ready flag of the port is cleared before the request is
// issued; until it is raised again the buffer must not be touched.
func (c *Component) FillBuffer(idx uint32) error {
	if c.released {
		return ErrReleased
	}
	p, err := c.port(idx)
	if err != nil {
		return err
	}
	switch {
	case p.buf == nil:
		return fmt.Errorf("fill on %s port %d: %w", c.name, idx, ErrNoBuffer)
	case c.inFlight(p):
		return fmt.Errorf("fill on %s port %d: %w", c.name, idx, ErrBufferInFlight)
	}

	c.board.Set(signal.BufferReady(c.name, idx), false)
	p.inFlight = true
	err = c.rt.FillBuffer(c.h, p.buf)
	if err != nil {
		p.inFlight = false
		return omx.Check(err, "fill buffer on %s port %d", c.name, idx)
	}
	return nil
}

// Ready reports whether the buffer of port idx has been returned by the
// component since the last fill request.
func (c *Component) Ready(idx uint32) bool {
	return c.board.Get(signal.BufferReady(c.name, idx))
}

// TakeBuffer returns the buffer of port idx. It fails with
// ErrBufferInFlight while the component owns the buffer.
func (c *Component) TakeBuffer(idx uint32) (*omx.Buffer, error) {
	p, err := c.port(idx)
	if err != nil {
		return nil, err
	}
	switch {
	case p.buf == nil:
		return nil, fmt.Errorf("take from %s port %d: %w", c.name, idx, ErrNoBuffer)
	case c.inFlight(p):
		return nil, fmt.Errorf("take from %s port %d: %w", c.name, idx, ErrBufferInFlight)
	}
	return p.buf, nil
}

// inFlight reports whether the component owns the buffer of p, marking the
// buffer returned once its ready flag is seen.
func (c *Component) inFlight(p *portState) bool {
	if p.inFlight && c.board.Get(signal.BufferReady(c.name, p.index)) {
		p.inFlight = false
	}
	return p.inFlight
}
