/*
DESCRIPTION
  commands.go implements the asynchronous commands of the simulated runtime:
  state changes, port enable/disable and flush.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package sim

import (
	"sort"

	"github.com/ausocean/omxcam/omx"
)

// adjacent reports whether a component may move from one state to the other
// in a single command.
func adjacent(from, to omx.State) bool {
	switch from {
	case omx.StateLoaded:
		return to == omx.StateIdle || to == omx.StateWaitForResources
	case omx.StateIdle:
		return to == omx.StateLoaded || to == omx.StateExecuting || to == omx.StatePause
	case omx.StateExecuting:
		return to == omx.StateIdle || to == omx.StatePause
	case omx.StatePause:
		return to == omx.StateIdle || to == omx.StateExecuting
	case omx.StateWaitForResources:
		return to == omx.StateLoaded
	default:
		return false
	}
}

// stateSet must be called with r.mu held.
func (r *Runtime) stateSet(c *comp, to omx.State) error {
	if c.target != omx.StateInvalid {
		r.violate("%s: state change to %v while moving to %v", c.short, to, c.target)
		return omx.ErrorIncorrectStateOperation
	}
	if to == c.state {
		return omx.ErrorSameState
	}
	if !adjacent(c.state, to) {
		r.violate("%s: state change skips from %v to %v", c.short, c.state, to)
		return omx.ErrorIncorrectStateTransition
	}

	c.target = to
	r.record(Record{Op: OpState, Component: c.short, State: to})
	r.later(func() { r.completeState(c) })
	return nil
}

func (r *Runtime) completeState(c *comp) {
	r.mu.Lock()
	from, to := c.state, c.target
	for _, idx := range c.portIndices() {
		p := c.ports[idx]
		switch {
		case to == omx.StateIdle && from == omx.StateLoaded && p.def.Enabled && p.peer == nil && p.buf == nil:
			r.violate("%s: idle with enabled port %d unpopulated", c.short, idx)
		case to == omx.StateLoaded && p.buf != nil:
			r.violate("%s: loaded with buffer still allocated on port %d", c.short, idx)
		case to == omx.StateExecuting && p.def.Enabled && p.peer == nil && p.buf == nil:
			r.violate("%s: executing with enabled port %d unpopulated", c.short, idx)
		}
	}
	c.state = to
	c.target = omx.StateInvalid

	var returned []*omx.Buffer
	if to == omx.StateIdle && from != omx.StateLoaded {
		returned = c.takePending()
	}
	if to == omx.StateExecuting {
		r.kickAll()
	}
	r.mu.Unlock()

	for _, b := range returned {
		c.cb.OnFillBufferDone(c.h, b)
	}
	c.cb.OnEvent(c.h, omx.EventCmdComplete, uint32(omx.CommandStateSet), uint32(to))
}

// portEnable must be called with r.mu held.
func (r *Runtime) portEnable(c *comp, idx uint32, enable bool) error {
	targets, err := r.targets(c, idx)
	if err != nil {
		return err
	}
	op, cmd := OpDisable, omx.CommandPortDisable
	if enable {
		op, cmd = OpEnable, omx.CommandPortEnable
	}
	for _, i := range targets {
		if !enable && c.ports[i].pending {
			r.violate("%s: port %d disabled with buffer in flight", c.short, i)
		}
		r.record(Record{Op: op, Component: c.short, Port: i})
	}

	r.later(func() {
		r.mu.Lock()
		var returned []*omx.Buffer
		for _, i := range targets {
			p := c.ports[i]
			p.def.Enabled = enable
			p.def.Populated = enable && (p.peer != nil || p.buf != nil)
			if !enable && p.pending {
				p.pending = false
				returned = append(returned, p.buf)
			}
		}
		r.mu.Unlock()

		for _, b := range returned {
			c.cb.OnFillBufferDone(c.h, b)
		}
		for _, i := range targets {
			c.cb.OnEvent(c.h, omx.EventCmdComplete, uint32(cmd), i)
		}
	})
	return nil
}

// flush must be called with r.mu held.
func (r *Runtime) flush(c *comp, idx uint32) error {
	if c.state == omx.StateLoaded || c.state == omx.StateInvalid {
		r.violate("%s: flush in state %v", c.short, c.state)
		return omx.ErrorIncorrectStateOperation
	}
	targets, err := r.targets(c, idx)
	if err != nil {
		return err
	}
	for _, i := range targets {
		r.record(Record{Op: OpFlush, Component: c.short, Port: i})
	}

	r.later(func() {
		r.mu.Lock()
		var returned []*omx.Buffer
		for _, i := range targets {
			p := c.ports[i]
			if p.pending {
				p.pending = false
				p.buf.FilledLen = 0
				returned = append(returned, p.buf)
			}
		}
		r.mu.Unlock()

		for _, b := range returned {
			c.cb.OnFillBufferDone(c.h, b)
		}
		for _, i := range targets {
			c.cb.OnEvent(c.h, omx.EventCmdComplete, uint32(omx.CommandFlush), i)
		}
	})
	return nil
}

// targets returns the ports addressed by idx, which may be omx.AllPorts.
// It must be called with r.mu held.
func (r *Runtime) targets(c *comp, idx uint32) ([]uint32, error) {
	if idx == omx.AllPorts {
		return c.portIndices(), nil
	}
	_, err := r.port(c, idx)
	if err != nil {
		return nil, err
	}
	return []uint32{idx}, nil
}

func (c *comp) portIndices() []uint32 {
	idx := make([]uint32, 0, len(c.ports))
	for i := range c.ports {
		idx = append(idx, i)
	}
	sort.Slice(idx, func(i, j int) bool { return idx[i] < idx[j] })
	return idx
}

// takePending returns the buffers owned by the component to the
// application. It must be called with r.mu held.
func (c *comp) takePending() []*omx.Buffer {
	var b []*omx.Buffer
	for _, i := range c.portIndices() {
		p := c.ports[i]
		if p.pending {
			p.pending = false
			b = append(b, p.buf)
		}
	}
	return b
}
