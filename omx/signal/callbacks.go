/*
DESCRIPTION
  callbacks.go implements omx.Callbacks on Board. Handlers only translate
  notifications into flag changes; they never call back into the runtime.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package signal

import (
	"github.com/ausocean/omxcam/omx"
)

// OnEvent handles an event notification from the runtime.
func (b *Board) OnEvent(h omx.Handle, e omx.Event, data1, data2 uint32) {
	b.mu.Lock()
	name, ok := b.names[h]
	if !ok {
		name = "unknown"
	}
	switch e {
	case omx.EventCmdComplete:
		if omx.Command(data1) == omx.CommandFlush {
			b.set(Flushed(name, data2), true)
		}
	case omx.EventParamOrConfigChanged:
		if omx.Index(data2) == omx.IndexParamCameraDeviceNumber {
			b.set(DeviceReady(name), true)
		}
	case omx.EventError:
		if b.fault == nil {
			b.fault = &omx.CommandError{Op: "error event from " + name, Err: omx.Result(data1)}
		}
	}
	// Waits polling the runtime directly are woken by any event.
	b.broadcast()
	b.mu.Unlock()

	if b.log == nil {
		return
	}
	if e == omx.EventError {
		b.log.Error("error event", "component", name, "code", omx.Result(data1).Error())
		return
	}
	b.log.Debug("event", "component", name, "event", e.String(), "data1", data1, "data2", data2)
}

// OnFillBufferDone handles the return of a filled output buffer.
func (b *Board) OnFillBufferDone(h omx.Handle, buf *omx.Buffer) {
	b.mu.Lock()
	name, ok := b.names[h]
	if !ok {
		name = "unknown"
	}
	b.set(BufferReady(name, buf.OutputPort), true)
	b.mu.Unlock()
}
