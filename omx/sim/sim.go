/*
DESCRIPTION
  sim.go provides an in-memory omx.Runtime. Commands complete asynchronously
  after a configurable latency and protocol violations are recorded, so the
  component layer and capture pipeline can be exercised without hardware.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package sim provides a simulated omx.Runtime exposing the camera,
// video_encode and null_sink components. The encoder output port is filled
// from a Source while the pipeline is executing and the camera is capturing.
//
// The runtime checks the protocol as a vendor runtime would: state changes
// must be to an adjacent state, buffers may only be allocated on enabled,
// non-tunneled ports, and so on. Rejected calls return an omx.Result and are
// recorded as violations, see Violations.
package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/ausocean/utils/logging"
	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"

	"github.com/ausocean/omxcam/omx"
)

// Backend is the name the runtime is registered under.
const Backend = "sim"

const pkg = "sim: "

// DefaultLatency is the delay before asynchronous completions are delivered.
const DefaultLatency = time.Millisecond

func init() {
	omx.Register(Backend, func() (omx.Runtime, error) { return New() })
}

// Option applies an option to a Runtime.
type Option func(r *Runtime) error

// WithClock sets the clock used for completion latency.
func WithClock(c clock.Clock) Option {
	return func(r *Runtime) error {
		if c == nil {
			return fmt.Errorf("nil clock")
		}
		r.clk = c
		return nil
	}
}

// WithLatency sets the delay before asynchronous completions are delivered.
func WithLatency(d time.Duration) Option {
	return func(r *Runtime) error {
		if d < 0 {
			return fmt.Errorf("invalid latency: %v", d)
		}
		r.latency = d
		return nil
	}
}

// WithSource sets the source of encoder output.
func WithSource(s Source) Option {
	return func(r *Runtime) error {
		if s == nil {
			return fmt.Errorf("nil source")
		}
		r.src = s
		return nil
	}
}

// WithLogger sets the logger used to trace calls.
func WithLogger(l logging.Logger) Option {
	return func(r *Runtime) error {
		r.log = l
		return nil
	}
}

// Runtime is a simulated omx.Runtime. It is safe for concurrent use.
type Runtime struct {
	clk     clock.Clock
	latency time.Duration
	log     logging.Logger
	src     Source

	wg sync.WaitGroup

	mu         sync.Mutex
	ready      bool
	next       omx.Handle
	comps      map[omx.Handle]*comp
	records    []Record
	violations error

	// Encoder output state.
	rem      []byte
	remFlags omx.BufferFlag
	inFrame  bool
	eos      bool
	frames   int64
}

type comp struct {
	h      omx.Handle
	short  string
	model  *model
	cb     omx.Callbacks
	state  omx.State
	target omx.State // Pending state, or StateInvalid.
	ports  map[uint32]*port
	store  map[key]interface{}
	notify map[omx.Index]bool

	producing bool
}

type port struct {
	model     portModel
	def       omx.PortDefinition
	peer      *peer
	buf       *omx.Buffer
	pending   bool // The component owns buf.
	capturing bool
}

type peer struct {
	c    *comp
	port uint32
}

type key struct {
	idx  omx.Index
	port uint32
}

// New returns a new simulated Runtime. By default it uses the wall clock,
// DefaultLatency and an endless test pattern source.
func New(opts ...Option) (*Runtime, error) {
	r := &Runtime{
		clk:     clock.New(),
		latency: DefaultLatency,
		src:     NewPattern(DefaultGOP, DefaultFrameSize),
		next:    1,
		comps:   make(map[omx.Handle]*comp),
	}
	for i, o := range opts {
		err := o(r)
		if err != nil {
			return nil, fmt.Errorf("could not apply option %d: %w", i, err)
		}
	}
	return r, nil
}

// Init implements omx.Runtime.
func (r *Runtime) Init() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ready {
		r.violate("init called twice")
		return omx.ErrorIncorrectStateOperation
	}
	r.ready = true
	return nil
}

// Deinit implements omx.Runtime. It waits for outstanding completions to be
// delivered.
func (r *Runtime) Deinit() error {
	r.mu.Lock()
	if !r.ready {
		r.mu.Unlock()
		return omx.ErrorNotReady
	}
	r.ready = false
	for _, c := range r.comps {
		r.violate("%s not released before deinit", c.short)
	}
	r.mu.Unlock()
	r.wg.Wait()
	return nil
}

// Acquire implements omx.Runtime.
func (r *Runtime) Acquire(name string, cb omx.Callbacks) (omx.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ready {
		r.violate("acquire of %s before init", name)
		return 0, omx.ErrorNotReady
	}
	m, short, ok := lookup(name)
	if !ok {
		return 0, omx.ErrorComponentNotFound
	}
	if cb == nil {
		return 0, omx.ErrorBadParameter
	}

	c := &comp{
		h:      r.next,
		short:  short,
		model:  m,
		cb:     cb,
		state:  omx.StateLoaded,
		ports:  make(map[uint32]*port),
		store:  make(map[key]interface{}),
		notify: make(map[omx.Index]bool),
	}
	for _, pm := range m.ports {
		c.ports[pm.index] = &port{model: pm, def: pm.definition()}
	}
	r.next++
	r.comps[c.h] = c
	r.record(Record{Op: OpAcquire, Component: short})
	r.debug("acquired", "component", short, "handle", c.h)
	return c.h, nil
}

// Release implements omx.Runtime.
func (r *Runtime) Release(h omx.Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.comp(h)
	if err != nil {
		return err
	}
	if c.state != omx.StateLoaded || c.target != omx.StateInvalid {
		r.violate("%s released in state %v", c.short, c.state)
		return omx.ErrorIncorrectStateOperation
	}
	delete(r.comps, h)
	r.record(Record{Op: OpRelease, Component: c.short})
	return nil
}

// PortGroups implements omx.Runtime.
func (r *Runtime) PortGroups(h omx.Handle) ([]omx.PortRange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.comp(h)
	if err != nil {
		return nil, err
	}
	return c.model.groups(), nil
}

// State implements omx.Runtime.
func (r *Runtime) State(h omx.Handle) (omx.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.comp(h)
	if err != nil {
		return omx.StateInvalid, err
	}
	return c.state, nil
}

// SendCommand implements omx.Runtime.
func (r *Runtime) SendCommand(h omx.Handle, cmd omx.Command, param uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.comp(h)
	if err != nil {
		return err
	}
	switch cmd {
	case omx.CommandStateSet:
		return r.stateSet(c, omx.State(param))
	case omx.CommandPortEnable, omx.CommandPortDisable:
		return r.portEnable(c, param, cmd == omx.CommandPortEnable)
	case omx.CommandFlush:
		return r.flush(c, param)
	default:
		return omx.ErrorNotImplemented
	}
}

// Records returns a copy of the log of commands accepted by the runtime.
func (r *Runtime) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.records...)
}

// Violations returns the protocol violations detected so far, combined
// into one error, or nil.
func (r *Runtime) Violations() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.violations
}

// comp must be called with r.mu held.
func (r *Runtime) comp(h omx.Handle) (*comp, error) {
	c, ok := r.comps[h]
	if !ok {
		return nil, omx.ErrorInvalidComponent
	}
	return c, nil
}

// port must be called with r.mu held.
func (r *Runtime) port(c *comp, idx uint32) (*port, error) {
	p, ok := c.ports[idx]
	if !ok {
		return nil, omx.ErrorBadPortIndex
	}
	return p, nil
}

// violate must be called with r.mu held.
func (r *Runtime) violate(format string, args ...interface{}) {
	err := fmt.Errorf(format, args...)
	r.violations = multierr.Append(r.violations, err)
	if r.log != nil {
		r.log.Warning(pkg+"protocol violation", "error", err.Error())
	}
}

// record must be called with r.mu held.
func (r *Runtime) record(rec Record) {
	r.records = append(r.records, rec)
}

func (r *Runtime) debug(msg string, args ...interface{}) {
	if r.log != nil {
		r.log.Debug(pkg+msg, args...)
	}
}

// later runs f after the configured latency on a new goroutine.
func (r *Runtime) later(f func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if r.latency > 0 {
			r.clk.Sleep(r.latency)
		}
		f()
	}()
}
