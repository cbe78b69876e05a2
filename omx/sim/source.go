/*
DESCRIPTION
  source.go provides the sources of simulated encoder output.

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

	"github.com/ausocean/omxcam/codec/h264"
)

// Defaults for the test pattern source.
const (
	DefaultGOP       = 25
	DefaultFrameSize = 4 << 10
)

// Frame is one unit of encoder output.
type Frame struct {
	Data     []byte
	KeyFrame bool
	Config   bool
}

// Source supplies encoder output. Next returns io.EOF once exhausted. Next
// is never called concurrently.
type Source interface {
	Next() (Frame, error)
}

// Script is a Source returning a fixed sequence of frames.
type Script struct {
	frames []Frame
	n      int

	// OnFrame, if not nil, is called with the 1-based number of each frame
	// before it is handed to the encoder.
	OnFrame func(n int)
}

// NewScript returns a Script over frames.
func NewScript(frames ...Frame) *Script {
	return &Script{frames: frames}
}

// Next implements Source.
func (s *Script) Next() (Frame, error) {
	if s.n >= len(s.frames) {
		return Frame{}, io.EOF
	}
	f := s.frames[s.n]
	s.n++
	if s.OnFrame != nil {
		s.OnFrame(s.n)
	}
	return f, nil
}

// Pattern is an endless Source of synthetic H.264 shaped frames with a
// keyframe every GOP frames.
type Pattern struct {
	gop  int
	size int
	n    int
}

// NewPattern returns a Pattern with the given group of pictures length and
// frame size in bytes.
func NewPattern(gop, size int) *Pattern {
	if gop < 1 {
		gop = DefaultGOP
	}
	if size < 8 {
		size = DefaultFrameSize
	}
	return &Pattern{gop: gop, size: size}
}

// Next implements Source.
func (p *Pattern) Next() (Frame, error) {
	key := p.n%p.gop == 0
	d := make([]byte, p.size)
	copy(d, []byte{0x00, 0x00, 0x00, 0x01})
	d[4] = 0x41 // Non-IDR slice.
	if key {
		d[4] = 0x65 // IDR slice.
	}
	for i := 5; i < len(d); i++ {
		d[i] = byte(p.n) | 0x80 // Never zero so no start code is emulated.
	}
	p.n++
	return Frame{Data: d, KeyFrame: key}, nil
}

// H264 is a Source replaying an H.264 elementary stream. Units holding an
// IDR slice are keyframes and units holding parameter sets are codec
// configuration.
type H264 struct {
	l *h264.Lexer
}

// NewH264 returns a Source reading an H.264 byte stream from r.
func NewH264(r io.Reader) *H264 {
	return &H264{l: h264.NewLexer(r)}
}

// Next implements Source.
func (s *H264) Next() (Frame, error) {
	u, err := s.l.Next()
	if err != nil {
		return Frame{}, err
	}
	return Frame{Data: u, KeyFrame: h264.IsKeyFrame(u), Config: h264.IsConfig(u)}, nil
}
