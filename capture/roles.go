/*
DESCRIPTION
  roles.go maps the symbolic port roles of the capture pipeline onto the
  components and port indices that carry them.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package capture

// Component names.
const (
	Camera  = "camera"
	Encoder = "video_encode"
	Sink    = "null_sink"
)

// components lists the pipeline's components in setup order.
var components = []string{Camera, Encoder, Sink}

// Role is the part a port plays in the pipeline.
type Role int

// Port roles, in setup order.
const (
	CameraInput Role = iota
	CameraPreview
	CameraVideo
	EncoderInput
	EncoderOutput
	SinkInput
)

func (r Role) String() string {
	switch r {
	case CameraInput:
		return "camera input"
	case CameraPreview:
		return "camera preview output"
	case CameraVideo:
		return "camera video output"
	case EncoderInput:
		return "encoder input"
	case EncoderOutput:
		return "encoder output"
	case SinkInput:
		return "null sink input"
	default:
		return "unknown role"
	}
}

type binding struct {
	role      Role
	component string
	port      uint32
	buffered  bool // Holds an application buffer.
}

// roles binds every role to its port. Ports are enabled, flushed and
// disabled in this order.
var roles = []binding{
	{role: CameraInput, component: Camera, port: 73, buffered: true},
	{role: CameraPreview, component: Camera, port: 70},
	{role: CameraVideo, component: Camera, port: 71},
	{role: EncoderInput, component: Encoder, port: 200},
	{role: EncoderOutput, component: Encoder, port: 201, buffered: true},
	{role: SinkInput, component: Sink, port: 240},
}

// tunnels are the direct connections of the pipeline, source first.
var tunnels = [][2]Role{
	{CameraPreview, SinkInput},
	{CameraVideo, EncoderInput},
}

// bind returns the binding of r.
func bind(r Role) binding {
	for _, b := range roles {
		if b.role == r {
			return b
		}
	}
	panic("unbound port role")
}

// PortOf returns the component name and port index bound to r.
func PortOf(r Role) (string, uint32) {
	b := bind(r)
	return b.component, b.port
}
