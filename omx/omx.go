/*
DESCRIPTION
  omx.go defines the contract of the vendor runtime through which hardware
  media components (camera, video encoder, sinks) are acquired, configured
  and commanded.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package omx describes the component/command/callback protocol spoken by a
// hardware media co-processor. The Runtime interface is implemented by
// backends (a vendor library binding, or the simulated backend in omx/sim);
// nothing in this package holds state beyond the backend registry.
//
// All commands issued through a Runtime complete asynchronously. A nil
// error from SendCommand only means the command was accepted; completion is
// reported later through the Callbacks registered when the component was
// acquired.
package omx

// VendorPrefix is prepended to component names, e.g. "camera", to form the
// full name passed to Runtime.Acquire.
const VendorPrefix = "OMX.broadcom."

// Handle identifies a component instance within a Runtime.
type Handle uint32

// AllPorts may be used as a port index in payloads that apply to every port
// of a component.
const AllPorts = 0xffffffff

// Callbacks receives notifications from a Runtime. Calls may arrive at any
// time and from any goroutine; implementations must not block.
type Callbacks interface {
	// OnEvent is called for generic events. The meaning of data1 and data2
	// depends on the event, e.g. for EventCmdComplete data1 holds the
	// Command and data2 its parameter.
	OnEvent(h Handle, e Event, data1, data2 uint32)

	// OnFillBufferDone is called when the component has filled an output
	// buffer that was handed to it with FillBuffer. Ownership of b returns
	// to the application.
	OnFillBufferDone(h Handle, b *Buffer)
}

// Runtime is the transport to the hardware components. Every method returns
// a non-nil error on any non-success result; callers treat all such errors
// as fatal.
type Runtime interface {
	// Init and Deinit bracket all use of the Runtime.
	Init() error
	Deinit() error

	// Acquire obtains a handle to the component with the given full name,
	// e.g. "OMX.broadcom.camera". cb receives the component's notifications.
	Acquire(name string, cb Callbacks) (Handle, error)

	// Release frees a handle obtained with Acquire.
	Release(h Handle) error

	// PortGroups returns the ranges of port indices exposed by a component
	// in each of its port domains.
	PortGroups(h Handle) ([]PortRange, error)

	// State returns the current state of the component.
	State(h Handle) (State, error)

	// SendCommand requests a state change, port enable/disable or flush.
	SendCommand(h Handle, cmd Command, param uint32) error

	// GetParameter, SetParameter, GetConfig and SetConfig read and write the
	// payload p, which must be a pointer to the payload struct matching idx.
	GetParameter(h Handle, idx Index, p interface{}) error
	SetParameter(h Handle, idx Index, p interface{}) error
	GetConfig(h Handle, idx Index, p interface{}) error
	SetConfig(h Handle, idx Index, p interface{}) error

	// AllocateBuffer allocates a buffer of size bytes for a non-tunneled port.
	AllocateBuffer(h Handle, port, size uint32) (*Buffer, error)

	// FreeBuffer frees a buffer obtained with AllocateBuffer.
	FreeBuffer(h Handle, port uint32, b *Buffer) error

	// SetupTunnel connects an output port of src to an input port of dst.
	// Buffers on both ports are then managed by the Runtime.
	SetupTunnel(src Handle, srcPort uint32, dst Handle, dstPort uint32) error

	// FillBuffer hands an output buffer to the component to be filled.
	// The buffer must not be touched until OnFillBufferDone is called.
	FillBuffer(h Handle, b *Buffer) error
}

// PortRange is a contiguous range of port indices in one port domain.
type PortRange struct {
	Domain Domain
	Start  uint32
	Count  uint32
}

// Ports returns the port indices covered by the range.
func (r PortRange) Ports() []uint32 {
	p := make([]uint32, 0, r.Count)
	for i := r.Start; i < r.Start+r.Count; i++ {
		p = append(p, i)
	}
	return p
}

// State is the lifecycle state of a component.
type State int

// Component states.
const (
	StateInvalid State = iota
	StateLoaded
	StateIdle
	StateExecuting
	StatePause
	StateWaitForResources
)

func (s State) String() string {
	switch s {
	case StateInvalid:
		return "invalid"
	case StateLoaded:
		return "loaded"
	case StateIdle:
		return "idle"
	case StateExecuting:
		return "executing"
	case StatePause:
		return "pause"
	case StateWaitForResources:
		return "wait for resources"
	default:
		return "unknown"
	}
}

// Command is a command verb accepted by SendCommand.
type Command uint32

// Commands.
const (
	CommandStateSet Command = iota
	CommandFlush
	CommandPortDisable
	CommandPortEnable
	CommandMarkBuffer
)

func (c Command) String() string {
	switch c {
	case CommandStateSet:
		return "state set"
	case CommandFlush:
		return "flush"
	case CommandPortDisable:
		return "port disable"
	case CommandPortEnable:
		return "port enable"
	case CommandMarkBuffer:
		return "mark buffer"
	default:
		return "unknown"
	}
}

// Event is the kind of a notification delivered to Callbacks.OnEvent.
type Event uint32

// Events. EventParamOrConfigChanged is a vendor extension.
const (
	EventCmdComplete Event = iota
	EventError
	EventMark
	EventPortSettingsChanged
	EventBufferFlag
	EventResourcesAcquired
	EventComponentResumed
	EventDynamicResourcesAvailable
	EventPortFormatDetected

	EventParamOrConfigChanged Event = 0x7f000001
)

func (e Event) String() string {
	switch e {
	case EventCmdComplete:
		return "command complete"
	case EventError:
		return "error"
	case EventParamOrConfigChanged:
		return "parameter or configuration changed"
	case EventPortSettingsChanged:
		return "port settings changed"
	case EventBufferFlag:
		return "buffer flag"
	default:
		return "(no description)"
	}
}

// Buffer is an application visible buffer exchanged with a non-tunneled
// port. Data is owned by the Runtime; its length is the allocated length.
type Buffer struct {
	Data       []byte
	Offset     uint32
	FilledLen  uint32
	Flags      BufferFlag
	Timestamp  int64
	InputPort  uint32
	OutputPort uint32
}

// InRange reports whether Offset and FilledLen lie within Data.
func (b *Buffer) InRange() bool {
	return uint64(b.Offset)+uint64(b.FilledLen) <= uint64(len(b.Data))
}

// Bytes returns the valid byte range of the buffer. It panics if the range
// is not within Data; see InRange.
func (b *Buffer) Bytes() []byte {
	return b.Data[b.Offset : b.Offset+b.FilledLen]
}

// KeyFrame reports whether the buffer holds (part of) a sync frame.
func (b *Buffer) KeyFrame() bool { return b.Flags&FlagSyncFrame != 0 }

// BufferFlag is a bitset of buffer attributes.
type BufferFlag uint32

// Buffer flags.
const (
	FlagEOS BufferFlag = 1 << iota
	FlagStartTime
	FlagDecodeOnly
	FlagDataCorrupt
	FlagEndOfFrame
	FlagSyncFrame
	FlagExtraData
	FlagCodecConfig
)
