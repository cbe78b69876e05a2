/*
DESCRIPTION
  board.go provides Board, the lock guarded set of flags through which
  asynchronous runtime notifications reach the control goroutine.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package signal bridges the callback driven notifications of an omx.Runtime
// to a single control goroutine. Callbacks only mutate flags on a Board;
// the control goroutine makes every decision by waiting on those flags with
// bounded waits.
package signal

import (
	"fmt"
	"sync"

	"github.com/ausocean/utils/logging"
	"github.com/benbjohnson/clock"

	"github.com/ausocean/omxcam/omx"
)

// Kind is the kind of a Flag.
type Kind int

// Flag kinds.
const (
	KindFlushed Kind = iota
	KindDeviceReady
	KindBufferReady
)

// Flag identifies one flag on a Board.
type Flag struct {
	Kind      Kind
	Component string
	Port      uint32
}

// Flushed is set when a flush of port on component completes.
func Flushed(component string, port uint32) Flag {
	return Flag{Kind: KindFlushed, Component: component, Port: port}
}

// DeviceReady is set when component reports its device number parameter
// has been applied.
func DeviceReady(component string) Flag {
	return Flag{Kind: KindDeviceReady, Component: component}
}

// BufferReady is set when the buffer of port on component has been filled
// and is owned by the application again.
func BufferReady(component string, port uint32) Flag {
	return Flag{Kind: KindBufferReady, Component: component, Port: port}
}

func (f Flag) String() string {
	switch f.Kind {
	case KindFlushed:
		return fmt.Sprintf("flush of %s port %d", f.Component, f.Port)
	case KindDeviceReady:
		return fmt.Sprintf("%s device ready", f.Component)
	case KindBufferReady:
		return fmt.Sprintf("%s port %d buffer ready", f.Component, f.Port)
	default:
		return "unknown flag"
	}
}

type state struct {
	set   bool
	count int // Number of times the flag has been raised.
}

// Board is a set of flags guarded by a single mutex. The lock is only held
// for the duration of a flag read or write, never across a sleep. Every
// change closes the current change channel so waiters wake promptly.
type Board struct {
	clk clock.Clock
	log logging.Logger

	mu      sync.Mutex
	flags   map[Flag]*state
	names   map[omx.Handle]string
	changed chan struct{}
	fault   error
}

// New returns a new Board. A nil clk means the wall clock.
func New(clk clock.Clock, l logging.Logger) *Board {
	if clk == nil {
		clk = clock.New()
	}
	return &Board{
		clk:     clk,
		log:     l,
		flags:   make(map[Flag]*state),
		names:   make(map[omx.Handle]string),
		changed: make(chan struct{}),
	}
}

// Clock returns the clock used for waits.
func (b *Board) Clock() clock.Clock { return b.clk }

// Register associates a component handle with the name used in its flags.
func (b *Board) Register(h omx.Handle, name string) {
	b.mu.Lock()
	b.names[h] = name
	b.mu.Unlock()
}

// Set sets or clears the flag f.
func (b *Board) Set(f Flag, v bool) {
	b.mu.Lock()
	b.set(f, v)
	b.mu.Unlock()
}

// set must be called with b.mu held.
func (b *Board) set(f Flag, v bool) {
	s, ok := b.flags[f]
	if !ok {
		s = &state{}
		b.flags[f] = s
	}
	s.set = v
	if v {
		s.count++
	}
	b.broadcast()
}

// broadcast must be called with b.mu held.
func (b *Board) broadcast() {
	close(b.changed)
	b.changed = make(chan struct{})
}

// Get returns the value of the flag f.
func (b *Board) Get(f Flag) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.get(f)
}

func (b *Board) get(f Flag) bool {
	s, ok := b.flags[f]
	return ok && s.set
}

// Count returns how many times the flag f has been raised.
func (b *Board) Count(f Flag) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.flags[f]
	if !ok {
		return 0
	}
	return s.count
}

// Fail records err as the Board's fault if none is recorded yet. All waits
// return the fault from then on.
func (b *Board) Fail(err error) {
	b.mu.Lock()
	if b.fault == nil {
		b.fault = err
	}
	b.broadcast()
	b.mu.Unlock()
}

// Err returns the recorded fault, if any.
func (b *Board) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fault
}

// Changed returns a channel that is closed on the next change to the Board,
// which is any flag change, fault or runtime event.
func (b *Board) Changed() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.changed
}

// Wait waits until pred holds, evaluated with the lock held. get gives pred
// access to flag values. A recorded fault ends the wait with that fault.
func (b *Board) Wait(what string, bnd Bounds, pred func(get func(Flag) bool) bool) error {
	return Poll(b.clk, bnd, what, func() (bool, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.fault != nil {
			return false, b.fault
		}
		return pred(b.get), nil
	}, b.Changed)
}

// WaitFor waits until f is set. The flag is left set.
func (b *Board) WaitFor(f Flag, bnd Bounds) error {
	return b.Wait(f.String(), bnd, func(get func(Flag) bool) bool { return get(f) })
}

// Consume waits until f is set and clears it under the same lock, so a
// later Consume of the same flag needs a new signal.
func (b *Board) Consume(f Flag, bnd Bounds) error {
	return b.Wait(f.String(), bnd, func(get func(Flag) bool) bool {
		if !get(f) {
			return false
		}
		b.flags[f].set = false
		return true
	})
}
