/*
DESCRIPTION
  buffers.go implements tunnels and buffer handling for the simulated runtime,
  including production of encoder output from the frame source.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package sim

import (
	"io"

	"github.com/ausocean/omxcam/omx"
)

// SetupTunnel implements omx.Runtime.
func (r *Runtime) SetupTunnel(src omx.Handle, srcPort uint32, dst omx.Handle, dstPort uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sc, err := r.comp(src)
	if err != nil {
		return err
	}
	dc, err := r.comp(dst)
	if err != nil {
		return err
	}
	sp, err := r.port(sc, srcPort)
	if err != nil {
		return err
	}
	dp, err := r.port(dc, dstPort)
	if err != nil {
		return err
	}
	if sp.def.Dir != omx.DirOutput || dp.def.Dir != omx.DirInput || sp.def.Domain != dp.def.Domain {
		return omx.ErrorPortsNotCompatible
	}
	for _, e := range []struct {
		c *comp
		p *port
	}{{sc, sp}, {dc, dp}} {
		if e.c.state != omx.StateLoaded && e.p.def.Enabled {
			r.violate("%s: tunnel on enabled port %d in state %v", e.c.short, e.p.def.Port, e.c.state)
			return omx.ErrorIncorrectStateOperation
		}
		if e.p.buf != nil {
			r.violate("%s: tunnel on port %d with allocated buffer", e.c.short, e.p.def.Port)
			return omx.ErrorIncorrectStateOperation
		}
	}

	sp.peer = &peer{c: dc, port: dstPort}
	dp.peer = &peer{c: sc, port: srcPort}
	r.record(Record{Op: OpTunnel, Component: sc.short, Port: srcPort})
	r.debug("tunnel", "src", sc.short, "srcPort", srcPort, "dst", dc.short, "dstPort", dstPort)
	return nil
}

// AllocateBuffer implements omx.Runtime.
func (r *Runtime) AllocateBuffer(h omx.Handle, idx, size uint32) (*omx.Buffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.comp(h)
	if err != nil {
		return nil, err
	}
	p, err := r.port(c, idx)
	if err != nil {
		return nil, err
	}
	switch {
	case p.peer != nil:
		r.violate("%s: buffer allocated on tunneled port %d", c.short, idx)
		return nil, omx.ErrorIncorrectStateOperation
	case p.buf != nil:
		return nil, omx.ErrorInsufficientResources
	case size < p.def.BufferSize:
		return nil, omx.ErrorBadParameter
	case c.state != omx.StateLoaded && !p.def.Enabled:
		r.violate("%s: buffer allocated on disabled port %d in state %v", c.short, idx, c.state)
		return nil, omx.ErrorIncorrectStateOperation
	}

	b := &omx.Buffer{Data: make([]byte, size)}
	if p.def.Dir == omx.DirOutput {
		b.OutputPort = idx
	} else {
		b.InputPort = idx
	}
	p.buf = b
	p.def.Populated = p.def.Enabled
	r.record(Record{Op: OpAllocate, Component: c.short, Port: idx})
	return b, nil
}

// FreeBuffer implements omx.Runtime.
func (r *Runtime) FreeBuffer(h omx.Handle, idx uint32, b *omx.Buffer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.comp(h)
	if err != nil {
		return err
	}
	p, err := r.port(c, idx)
	if err != nil {
		return err
	}
	switch {
	case p.buf == nil || p.buf != b:
		return omx.ErrorBadParameter
	case p.pending:
		r.violate("%s: buffer freed on port %d while in flight", c.short, idx)
		return omx.ErrorIncorrectStateOperation
	case p.def.Enabled:
		r.violate("%s: buffer freed on enabled port %d", c.short, idx)
		return omx.ErrorIncorrectStateOperation
	}
	p.buf = nil
	p.def.Populated = false
	r.record(Record{Op: OpFree, Component: c.short, Port: idx})
	return nil
}

// FillBuffer implements omx.Runtime.
func (r *Runtime) FillBuffer(h omx.Handle, b *omx.Buffer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.comp(h)
	if err != nil {
		return err
	}
	if b == nil {
		return omx.ErrorBadParameter
	}
	p, err := r.port(c, b.OutputPort)
	if err != nil {
		return err
	}
	switch {
	case p.buf != b || p.def.Dir != omx.DirOutput:
		return omx.ErrorBadParameter
	case p.pending:
		r.violate("%s: fill requested on port %d while buffer in flight", c.short, b.OutputPort)
		return omx.ErrorIncorrectStateOperation
	case c.state != omx.StateIdle && c.state != omx.StateExecuting && c.state != omx.StatePause:
		return omx.ErrorIncorrectStateOperation
	case !p.def.Enabled:
		return omx.ErrorIncorrectStateOperation
	}
	p.pending = true
	r.record(Record{Op: OpFill, Component: c.short, Port: b.OutputPort})
	r.kick(c)
	return nil
}

// producing reports whether the encoder c is receiving frames: it is
// executing and its input is tunneled from an executing, capturing port.
// It must be called with r.mu held.
func (r *Runtime) producing(c *comp) bool {
	if c.model.encoder == 0 || c.state != omx.StateExecuting {
		return false
	}
	for _, p := range c.ports {
		if p.def.Dir != omx.DirInput || p.peer == nil || !p.def.Enabled {
			continue
		}
		up := p.peer.c
		if up.state == omx.StateExecuting && up.ports[p.peer.port].capturing {
			return true
		}
	}
	return false
}

// kick starts production of output on c if a buffer is waiting to be filled.
// It must be called with r.mu held.
func (r *Runtime) kick(c *comp) {
	if c.producing || !r.producing(c) {
		return
	}
	p := c.ports[c.model.encoder]
	if p.buf == nil || !p.pending {
		return
	}
	c.producing = true
	r.later(func() { r.produce(c) })
}

// kickAll must be called with r.mu held.
func (r *Runtime) kickAll() {
	for _, c := range r.comps {
		r.kick(c)
	}
}

// produce fills the pending encoder output buffer of c with the next chunk
// of the source.
func (r *Runtime) produce(c *comp) {
	r.mu.Lock()
	c.producing = false
	p := c.ports[c.model.encoder]
	if p.buf == nil || !p.pending || !r.producing(c) {
		r.mu.Unlock()
		return
	}

	b := p.buf
	err := r.fill(b, p.def.Video.Framerate)
	if err != nil {
		r.mu.Unlock()
		if r.log != nil {
			r.log.Error(pkg+"source failed", "error", err.Error())
		}
		c.cb.OnEvent(c.h, omx.EventError, uint32(omx.ErrorStreamCorrupt), 0)
		return
	}
	p.pending = false
	r.mu.Unlock()

	c.cb.OnFillBufferDone(c.h, b)
}

// fill copies the next chunk of encoder output into b. A frame larger than
// the buffer is spread over several buffers; the last carries
// omx.FlagEndOfFrame. Once the source is exhausted every fill returns an
// empty buffer flagged omx.FlagEOS. It must be called with r.mu held.
func (r *Runtime) fill(b *omx.Buffer, framerate uint32) error {
	b.Offset = 0
	b.FilledLen = 0

	if !r.inFrame {
		if r.eos {
			b.Flags = omx.FlagEOS
			return nil
		}
		f, err := r.src.Next()
		switch {
		case err == io.EOF:
			r.eos = true
			b.Flags = omx.FlagEOS | omx.FlagEndOfFrame
			return nil
		case err != nil:
			return err
		}
		r.rem = f.Data
		r.remFlags = 0
		if f.KeyFrame {
			r.remFlags |= omx.FlagSyncFrame
		}
		if f.Config {
			r.remFlags |= omx.FlagCodecConfig
		}
		r.inFrame = true
		r.frames++
	}

	n := copy(b.Data, r.rem)
	r.rem = r.rem[n:]
	b.FilledLen = uint32(n)
	b.Flags = r.remFlags
	if len(r.rem) == 0 {
		b.Flags |= omx.FlagEndOfFrame
		r.inFrame = false
	}
	if framerate != 0 {
		b.Timestamp = (r.frames - 1) * 1e6 * 65536 / int64(framerate)
	}
	return nil
}
