/*
DESCRIPTION
  params.go implements parameter and configuration access for the simulated
  runtime.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package sim

import (
	"reflect"

	"github.com/ausocean/omxcam/omx"
)

// payloads maps each supported index to its payload type.
var payloads = map[omx.Index]reflect.Type{
	omx.IndexParamAudioInit:                 reflect.TypeOf(omx.PortInit{}),
	omx.IndexParamImageInit:                 reflect.TypeOf(omx.PortInit{}),
	omx.IndexParamVideoInit:                 reflect.TypeOf(omx.PortInit{}),
	omx.IndexParamOtherInit:                 reflect.TypeOf(omx.PortInit{}),
	omx.IndexParamPortDefinition:            reflect.TypeOf(omx.PortDefinition{}),
	omx.IndexParamVideoPortFormat:           reflect.TypeOf(omx.VideoPortFormat{}),
	omx.IndexParamVideoBitrate:              reflect.TypeOf(omx.VideoBitrate{}),
	omx.IndexParamCameraDeviceNumber:        reflect.TypeOf(omx.U32Param{}),
	omx.IndexConfigRequestCallback:          reflect.TypeOf(omx.RequestCallback{}),
	omx.IndexConfigPortCapturing:            reflect.TypeOf(omx.PortBoolean{}),
	omx.IndexConfigVideoFramerate:           reflect.TypeOf(omx.Framerate{}),
	omx.IndexConfigCommonSharpness:          reflect.TypeOf(omx.IntConfig{}),
	omx.IndexConfigCommonContrast:           reflect.TypeOf(omx.IntConfig{}),
	omx.IndexConfigCommonSaturation:         reflect.TypeOf(omx.IntConfig{}),
	omx.IndexConfigCommonBrightness:         reflect.TypeOf(omx.IntConfig{}),
	omx.IndexConfigCommonExposureValue:      reflect.TypeOf(omx.ExposureValue{}),
	omx.IndexConfigCommonFrameStabilisation: reflect.TypeOf(omx.PortBoolean{}),
	omx.IndexConfigCommonWhiteBalance:       reflect.TypeOf(omx.WhiteBalanceConfig{}),
	omx.IndexConfigCommonImageFilter:        reflect.TypeOf(omx.ImageFilterConfig{}),
	omx.IndexConfigCommonMirror:             reflect.TypeOf(omx.MirrorConfig{}),
}

var domainInits = map[omx.Index]omx.Domain{
	omx.IndexParamAudioInit: omx.DomainAudio,
	omx.IndexParamImageInit: omx.DomainImage,
	omx.IndexParamVideoInit: omx.DomainVideo,
	omx.IndexParamOtherInit: omx.DomainOther,
}

// GetParameter implements omx.Runtime.
func (r *Runtime) GetParameter(h omx.Handle, idx omx.Index, p interface{}) error {
	return r.get(h, idx, p)
}

// SetParameter implements omx.Runtime.
func (r *Runtime) SetParameter(h omx.Handle, idx omx.Index, p interface{}) error {
	return r.set(h, idx, p)
}

// GetConfig implements omx.Runtime.
func (r *Runtime) GetConfig(h omx.Handle, idx omx.Index, p interface{}) error {
	return r.get(h, idx, p)
}

// SetConfig implements omx.Runtime.
func (r *Runtime) SetConfig(h omx.Handle, idx omx.Index, p interface{}) error {
	return r.set(h, idx, p)
}

// payload checks that p points to the payload type of idx and returns the
// pointed to value and the port it addresses.
func payload(idx omx.Index, p interface{}) (reflect.Value, uint32, error) {
	want, ok := payloads[idx]
	if !ok {
		return reflect.Value{}, 0, omx.ErrorUnsupportedIndex
	}
	v := reflect.ValueOf(p)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Type() != want {
		return reflect.Value{}, 0, omx.ErrorBadParameter
	}
	v = v.Elem()
	port := uint32(omx.AllPorts)
	if f := v.FieldByName("Port"); f.IsValid() {
		port = uint32(f.Uint())
	}
	return v, port, nil
}

func (r *Runtime) get(h omx.Handle, idx omx.Index, p interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.comp(h)
	if err != nil {
		return err
	}
	v, idxPort, err := payload(idx, p)
	if err != nil {
		return err
	}

	if d, ok := domainInits[idx]; ok {
		var init omx.PortInit
		for _, g := range c.model.groups() {
			if g.Domain == d {
				init = omx.PortInit{Start: g.Start, Count: g.Count}
				break
			}
		}
		v.Set(reflect.ValueOf(init))
		return nil
	}

	if idxPort != omx.AllPorts {
		pt, err := r.port(c, idxPort)
		if err != nil {
			return err
		}
		if idx == omx.IndexParamPortDefinition {
			v.Set(reflect.ValueOf(pt.def))
			return nil
		}
		if idx == omx.IndexConfigPortCapturing {
			v.Set(reflect.ValueOf(omx.PortBoolean{Port: idxPort, Enabled: pt.capturing}))
			return nil
		}
	}

	if stored, ok := c.store[key{idx, idxPort}]; ok {
		v.Set(reflect.ValueOf(stored))
	}
	return nil
}

func (r *Runtime) set(h omx.Handle, idx omx.Index, p interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.comp(h)
	if err != nil {
		return err
	}
	v, idxPort, err := payload(idx, p)
	if err != nil {
		return err
	}
	if _, ok := domainInits[idx]; ok {
		return omx.ErrorUnsupportedSetting
	}
	var pt *port
	if idxPort != omx.AllPorts {
		pt, err = r.port(c, idxPort)
		if err != nil {
			return err
		}
	}

	switch idx {
	case omx.IndexParamPortDefinition:
		return r.setDefinition(c, pt, v.Interface().(omx.PortDefinition))

	case omx.IndexParamVideoPortFormat:
		if pt == nil {
			return omx.ErrorBadPortIndex
		}
		f := v.Interface().(omx.VideoPortFormat)
		pt.def.Video.Compression = f.Compression
		pt.def.Video.Color = f.Color
		if f.Framerate != 0 {
			pt.def.Video.Framerate = f.Framerate
		}

	case omx.IndexConfigRequestCallback:
		rc := v.Interface().(omx.RequestCallback)
		c.notify[rc.Index] = rc.Enable

	case omx.IndexConfigPortCapturing:
		if pt == nil {
			return omx.ErrorBadPortIndex
		}
		pt.capturing = v.Interface().(omx.PortBoolean).Enabled
		r.record(Record{Op: OpCapture, Component: c.short, Port: idxPort, On: pt.capturing})
		r.kickAll()
		return nil

	case omx.IndexParamCameraDeviceNumber:
		if c.model.camera && c.notify[idx] {
			r.later(func() {
				c.cb.OnEvent(c.h, omx.EventParamOrConfigChanged, idxPort, uint32(idx))
			})
		}
	}

	c.store[key{idx, idxPort}] = v.Interface()
	return nil
}

// setDefinition applies the writable fields of def to the port. It must be
// called with r.mu held.
func (r *Runtime) setDefinition(c *comp, pt *port, def omx.PortDefinition) error {
	if pt == nil {
		return omx.ErrorBadPortIndex
	}
	if c.state != omx.StateLoaded && pt.def.Enabled {
		r.violate("%s: port %d definition set while enabled in state %v", c.short, pt.def.Port, c.state)
		return omx.ErrorIncorrectStateOperation
	}
	if def.BufferCountActual < pt.def.BufferCountMin {
		return omx.ErrorBadParameter
	}
	vd := def.Video
	stride := vd.Stride
	if stride < 0 {
		stride = -stride
	}
	if vd.Compression == omx.CodingUnused && pt.def.BufferAlignment != 0 && uint32(stride)%pt.def.BufferAlignment != 0 {
		return omx.ErrorBadParameter
	}
	if vd.Compression == omx.CodingUnused && uint32(stride) < vd.Width {
		return omx.ErrorBadParameter
	}

	pt.def.BufferCountActual = def.BufferCountActual
	pt.def.Video = vd
	pt.def.BufferSize = bufferSize(pt.def, pt.model.size)
	return nil
}
