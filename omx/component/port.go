/*
DESCRIPTION
  port.go provides port enable, disable, flush and definition access for a
  Component.

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

type portState struct {
	index    uint32
	dir      omx.Dir
	domain   omx.Domain
	enabled  bool // Last confirmed.
	tunnel   *Tunnel
	buf      *omx.Buffer
	inFlight bool // A fill was requested and not yet seen complete.
}

// Port is a snapshot of what a Component knows about one of its ports.
type Port struct {
	Index     uint32
	Dir       omx.Dir
	Domain    omx.Domain
	Enabled   bool
	Tunneled  bool
	Allocated bool
}

// Port returns a snapshot of the port idx.
func (c *Component) Port(idx uint32) (Port, error) {
	p, err := c.port(idx)
	if err != nil {
		return Port{}, err
	}
	return Port{
		Index:     p.index,
		Dir:       p.dir,
		Domain:    p.domain,
		Enabled:   p.enabled,
		Tunneled:  p.tunnel != nil,
		Allocated: p.buf != nil,
	}, nil
}

func (c *Component) port(idx uint32) (*portState, error) {
	p, ok := c.ports[idx]
	if !ok {
		return nil, fmt.Errorf("%s port %d: %w", c.name, idx, ErrUnknownPort)
	}
	return p, nil
}

// PortDefinition returns the runtime's current definition of port idx.
func (c *Component) PortDefinition(idx uint32) (omx.PortDefinition, error) {
	def := omx.PortDefinition{Port: idx}
	err := c.GetParameter(omx.IndexParamPortDefinition, &def)
	return def, err
}

// SetPortDefinition applies def to the port def.Port.
func (c *Component) SetPortDefinition(def omx.PortDefinition) error {
	return c.SetParameter(omx.IndexParamPortDefinition, &def)
}

// LogPort logs the definition of port idx at debug level.
func (c *Component) LogPort(idx uint32) error {
	def, err := c.PortDefinition(idx)
	if err != nil {
		return err
	}
	if c.log == nil {
		return nil
	}
	v := def.Video
	c.log.Debug(pkg+"port definition",
		"component", c.name,
		"port", def.Port,
		"dir", def.Dir.String(),
		"enabled", def.Enabled,
		"populated", def.Populated,
		"bufferCount", def.BufferCountActual,
		"bufferCountMin", def.BufferCountMin,
		"bufferSize", def.BufferSize,
		"bufferAlignment", def.BufferAlignment,
		"width", v.Width,
		"height", v.Height,
		"stride", v.Stride,
		"sliceHeight", v.SliceHeight,
		"bitrate", v.Bitrate,
		"framerate", float64(v.Framerate)/(1<<16),
		"compression", v.Compression.String(),
		"color", v.Color.String(),
	)
	return nil
}

// EnablePort enables port idx and waits until the runtime reports it
// enabled.
func (c *Component) EnablePort(idx uint32) error { return c.setPort(idx, true) }

// DisablePort disables port idx and waits until the runtime reports it
// disabled. A buffer on the port must not be in flight; flush it first.
func (c *Component) DisablePort(idx uint32) error { return c.setPort(idx, false) }

func (c *Component) setPort(idx uint32, enable bool) error {
	if c.released {
		return ErrReleased
	}
	p, err := c.port(idx)
	if err != nil {
		return err
	}
	if !enable && c.inFlight(p) {
		return fmt.Errorf("disable %s port %d: %w", c.name, idx, ErrBufferInFlight)
	}

	cmd, verb := omx.CommandPortDisable, "disable"
	if enable {
		cmd, verb = omx.CommandPortEnable, "enable"
	}
	err = c.rt.SendCommand(c.h, cmd, idx)
	if err != nil {
		return omx.Check(err, "%s %s port %d", verb, c.name, idx)
	}

	what := fmt.Sprintf("%s port %d to %s", c.name, idx, verb)
	err = signal.Poll(c.board.Clock(), c.bounds, what, func() (bool, error) {
		if err := c.board.Err(); err != nil {
			return false, err
		}
		def, err := c.PortDefinition(idx)
		if err != nil {
			return false, err
		}
		return def.Enabled == enable, nil
	}, c.board.Changed)
	if err != nil {
		return err
	}

	p.enabled = enable
	c.debug("port "+verb+"d", "port", idx)
	return nil
}

// Flush flushes port idx and waits for the runtime to confirm. Each call
// needs its own confirmation; an earlier unconsumed one is discarded.
func (c *Component) Flush(idx uint32) error {
	if c.released {
		return ErrReleased
	}
	p, err := c.port(idx)
	if err != nil {
		return err
	}

	f := signal.Flushed(c.name, idx)
	c.board.Set(f, false)
	err = c.rt.SendCommand(c.h, omx.CommandFlush, idx)
	if err != nil {
		return omx.Check(err, "flush %s port %d", c.name, idx)
	}
	err = c.board.Consume(f, c.flushBounds)
	if err != nil {
		return err
	}

	// A flush returns any buffer held by the port.
	c.inFlight(p)
	c.debug("port flushed", "port", idx, "flushes", c.board.Count(f))
	return nil
}
