/*
DESCRIPTION
  record.go provides the command log kept by the simulated runtime.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package sim

import (
	"fmt"

	"github.com/ausocean/omxcam/omx"
)

// Op is a kind of recorded call.
type Op string

// Recorded calls.
const (
	OpAcquire  Op = "acquire"
	OpRelease  Op = "release"
	OpState    Op = "state"
	OpEnable   Op = "enable"
	OpDisable  Op = "disable"
	OpFlush    Op = "flush"
	OpTunnel   Op = "tunnel"
	OpAllocate Op = "allocate"
	OpFree     Op = "free"
	OpFill     Op = "fill"
	OpCapture  Op = "capture"
)

// Record is an accepted call. Port is meaningful for port operations and
// State for OpState; On is the new value for OpCapture.
type Record struct {
	Op        Op
	Component string
	Port      uint32
	State     omx.State
	On        bool
}

func (r Record) String() string {
	switch r.Op {
	case OpAcquire, OpRelease:
		return fmt.Sprintf("%s %s", r.Op, r.Component)
	case OpState:
		return fmt.Sprintf("%s %s %v", r.Op, r.Component, r.State)
	case OpCapture:
		return fmt.Sprintf("%s %s:%d %t", r.Op, r.Component, r.Port, r.On)
	default:
		return fmt.Sprintf("%s %s:%d", r.Op, r.Component, r.Port)
	}
}
