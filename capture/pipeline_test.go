/*
DESCRIPTION
  pipeline_test.go provides end to end tests of the capture pipeline against
  the simulated runtime.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package capture

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ausocean/omxcam/capture/config"
	"github.com/ausocean/omxcam/omx"
	"github.com/ausocean/omxcam/omx/sim"
)

// frame returns a small encoded frame tagged with n.
func frame(n int, key bool) sim.Frame {
	nal := byte(0x41)
	if key {
		nal = 0x65
	}
	return sim.Frame{Data: []byte{0x00, 0x00, 0x00, 0x01, nal, byte(n), byte(n)}, KeyFrame: key}
}

func testConfig(t *testing.T) config.Config {
	c := config.New((*testLogger)(t))
	c.Width = 640
	c.Height = 480
	c.FrameRate = 30
	c.PollInterval = time.Millisecond
	c.PollAttempts = 2000
	c.FlushAttempts = 2000
	c.DrainInterval = time.Millisecond
	return c
}

func newPipeline(t *testing.T, src sim.Source, cfg config.Config) (*Pipeline, *sim.Runtime) {
	rt, err := sim.New(sim.WithSource(src), sim.WithLogger((*testLogger)(t)))
	if err != nil {
		t.Fatalf("could not create runtime: %v", err)
	}
	t.Cleanup(func() { rt.Deinit() })
	p, err := New(rt, cfg)
	if err != nil {
		t.Fatalf("could not create pipeline: %v", err)
	}
	return p, rt
}

// keyframeScript returns seven frames with keyframes at 3 and 6 and a quit
// channel that is closed when frame 4 is produced.
func keyframeScript() (*sim.Script, []sim.Frame, chan struct{}) {
	var frames []sim.Frame
	for n := 1; n <= 7; n++ {
		frames = append(frames, frame(n, n == 3 || n == 6))
	}
	s := sim.NewScript(frames...)
	quit := make(chan struct{})
	var once sync.Once
	s.OnFrame = func(n int) {
		if n == 4 {
			once.Do(func() { close(quit) })
		}
	}
	return s, frames, quit
}

func TestRunStopsAtKeyframeFlip(t *testing.T) {
	src, frames, quit := keyframeScript()
	p, rt := newPipeline(t, src, testConfig(t))

	var out bytes.Buffer
	err := p.Run(&out, quit)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}

	// Quit is seen with non-keyframe 4 ready, so 4 and 5 are written and
	// the loop stops at keyframe 6.
	var want []byte
	for _, f := range frames[:5] {
		want = append(want, f.Data...)
	}
	if !bytes.Equal(out.Bytes(), want) {
		t.Errorf("unexpected output\nwant: %x\ngot:  %x", want, out.Bytes())
	}

	err = rt.Violations()
	if err != nil {
		t.Errorf("protocol violations: %v", err)
	}
}

// sizedFrame returns frame n padded to size bytes.
func sizedFrame(n int, key bool, size int) sim.Frame {
	f := frame(n, key)
	for len(f.Data) < size {
		f.Data = append(f.Data, byte(n))
	}
	return f
}

func TestRunKeyframeBoundary(t *testing.T) {
	tests := []struct {
		name  string
		keys  []int       // Keyframe numbers.
		sizes map[int]int // Frame sizes other than the default.
		quit  int         // Frame whose production raises quit.
		want  int         // Number of frames written.
	}{
		{name: "quit on non-keyframe", keys: []int{3, 6}, quit: 4, want: 5},
		{name: "quit on keyframe", keys: []int{3, 6}, quit: 3, want: 3},
		{name: "quit on first frame", keys: []int{3, 6}, quit: 1, want: 2},
		{name: "quit on keyframe run", keys: []int{3, 4, 6}, quit: 3, want: 4},
		{name: "quit on split keyframe", keys: []int{3, 6}, sizes: map[int]int{3: 150000}, quit: 3, want: 3},
		{name: "quit before split keyframe", keys: []int{3, 6}, sizes: map[int]int{3: 70000}, quit: 2, want: 2},
		{name: "quit on frame after split keyframe", keys: []int{3, 6}, sizes: map[int]int{3: 70000}, quit: 4, want: 5},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var frames []sim.Frame
			for n := 1; n <= 8; n++ {
				key := false
				for _, k := range test.keys {
					key = key || k == n
				}
				size, ok := test.sizes[n]
				if !ok {
					size = 7
				}
				frames = append(frames, sizedFrame(n, key, size))
			}
			src := sim.NewScript(frames...)
			quit := make(chan struct{})
			var once sync.Once
			src.OnFrame = func(n int) {
				if n == test.quit {
					once.Do(func() { close(quit) })
				}
			}
			p, rt := newPipeline(t, src, testConfig(t))

			var out bytes.Buffer
			err := p.Run(&out, quit)
			if err != nil {
				t.Fatalf("did not expect error: %v", err)
			}

			var want []byte
			for _, f := range frames[:test.want] {
				want = append(want, f.Data...)
			}
			if !bytes.Equal(out.Bytes(), want) {
				t.Errorf("unexpected output length %d, want %d frames (%d bytes)", out.Len(), test.want, len(want))
			}

			err = rt.Violations()
			if err != nil {
				t.Errorf("protocol violations: %v", err)
			}
		})
	}
}

func TestShutdownOrder(t *testing.T) {
	src, _, quit := keyframeScript()
	p, rt := newPipeline(t, src, testConfig(t))

	err := p.Run(&bytes.Buffer{}, quit)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}

	recs := rt.Records()
	start := -1
	for i, r := range recs {
		if r.Op == sim.OpCapture && !r.On {
			start = i
		}
	}
	if start < 0 {
		t.Fatal("capture never switched off")
	}

	var got []string
	for _, r := range recs[start+1:] {
		got = append(got, r.String())
	}
	want := []string{
		"fill video_encode:201",
		"flush camera:73",
		"flush camera:70",
		"flush camera:71",
		"flush video_encode:200",
		"flush video_encode:201",
		"flush null_sink:240",
		"disable camera:73",
		"disable camera:70",
		"disable camera:71",
		"disable video_encode:200",
		"disable video_encode:201",
		"disable null_sink:240",
		"free camera:73",
		"free video_encode:201",
		"state camera idle",
		"state video_encode idle",
		"state null_sink idle",
		"state camera loaded",
		"state video_encode loaded",
		"state null_sink loaded",
		"release camera",
		"release video_encode",
		"release null_sink",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected shutdown sequence (-want +got):\n%s", diff)
	}
}

func TestRunEndOfStream(t *testing.T) {
	frames := []sim.Frame{frame(1, true), frame(2, false), frame(3, false)}
	p, rt := newPipeline(t, sim.NewScript(frames...), testConfig(t))

	var out bytes.Buffer
	err := p.Run(&out, make(chan struct{}))
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	var want []byte
	for _, f := range frames {
		want = append(want, f.Data...)
	}
	if !bytes.Equal(out.Bytes(), want) {
		t.Errorf("unexpected output\nwant: %x\ngot:  %x", want, out.Bytes())
	}
	err = rt.Violations()
	if err != nil {
		t.Errorf("protocol violations: %v", err)
	}
}

// shortWriter accepts at most one byte per write.
type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return 1, nil
}

func TestDrainShortWrite(t *testing.T) {
	p, _ := newPipeline(t, sim.NewPattern(5, 64), testConfig(t))
	err := p.Setup()
	if err != nil {
		t.Fatalf("could not set up: %v", err)
	}
	err = p.Start()
	if err != nil {
		t.Fatalf("could not start: %v", err)
	}

	err = p.Drain(shortWriter{}, make(chan struct{}))
	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected IOError, got: %v", err)
	}
	if ioErr.Want != 64 || ioErr.Wrote != 1 {
		t.Errorf("unexpected IOError: %+v", ioErr)
	}
}

// failingSource fails after its first frame.
type failingSource struct{ n int }

func (s *failingSource) Next() (sim.Frame, error) {
	s.n++
	if s.n > 1 {
		return sim.Frame{}, errors.New("sensor gone")
	}
	return frame(s.n, true), nil
}

func TestDrainErrorEvent(t *testing.T) {
	p, _ := newPipeline(t, &failingSource{}, testConfig(t))
	err := p.Setup()
	if err != nil {
		t.Fatalf("could not set up: %v", err)
	}
	err = p.Start()
	if err != nil {
		t.Fatalf("could not start: %v", err)
	}

	err = p.Drain(&bytes.Buffer{}, make(chan struct{}))
	var cmdErr *omx.CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected CommandError, got: %v", err)
	}
	if cmdErr.Code() != omx.ErrorStreamCorrupt {
		t.Errorf("unexpected code: %v", cmdErr.Code())
	}
}

// overrunRuntime reports every filled buffer as longer than its allocation.
type overrunRuntime struct{ *sim.Runtime }

func (r overrunRuntime) Acquire(name string, cb omx.Callbacks) (omx.Handle, error) {
	return r.Runtime.Acquire(name, overrunCallbacks{cb})
}

type overrunCallbacks struct{ omx.Callbacks }

func (c overrunCallbacks) OnFillBufferDone(h omx.Handle, b *omx.Buffer) {
	b.FilledLen = uint32(len(b.Data)) + 1
	c.Callbacks.OnFillBufferDone(h, b)
}

func TestDrainBufferOverrun(t *testing.T) {
	rt, err := sim.New(sim.WithSource(sim.NewPattern(5, 64)), sim.WithLogger((*testLogger)(t)))
	if err != nil {
		t.Fatalf("could not create runtime: %v", err)
	}
	t.Cleanup(func() { rt.Deinit() })
	p, err := New(overrunRuntime{rt}, testConfig(t))
	if err != nil {
		t.Fatalf("could not create pipeline: %v", err)
	}
	err = p.Setup()
	if err != nil {
		t.Fatalf("could not set up: %v", err)
	}
	err = p.Start()
	if err != nil {
		t.Fatalf("could not start: %v", err)
	}

	var out bytes.Buffer
	err = p.Drain(&out, make(chan struct{}))
	var cmdErr *omx.CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected CommandError, got: %v", err)
	}
	if cmdErr.Code() != omx.ErrorOverflow {
		t.Errorf("unexpected code: %v", cmdErr.Code())
	}
	if out.Len() != 0 {
		t.Errorf("wrote %d bytes of an invalid buffer", out.Len())
	}
}

func TestConfigure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Width = 1000
	cfg.Bitrate = 2000000
	cfg.Brightness = 70
	cfg.HorizontalFlip = true
	cfg.WhiteBalance = "cloudy"
	p, _ := newPipeline(t, sim.NewPattern(5, 64), cfg)

	err := p.Setup()
	if err != nil {
		t.Fatalf("could not set up: %v", err)
	}

	cam, enc := p.Component(Camera), p.Component(Encoder)
	_, video := PortOf(CameraVideo)
	_, out := PortOf(EncoderOutput)

	def, err := cam.PortDefinition(video)
	if err != nil {
		t.Fatalf("could not get video port: %v", err)
	}
	if def.Video.Width != 1000 || def.Video.Stride != 1008 || def.Video.Framerate != 30<<16 {
		t.Errorf("unexpected video format: %+v", def.Video)
	}

	def, err = enc.PortDefinition(out)
	if err != nil {
		t.Fatalf("could not get encoder port: %v", err)
	}
	if def.Video.Bitrate != 2000000 || def.Video.Compression != omx.CodingAVC || def.Video.Stride != 1008 {
		t.Errorf("unexpected encoder format: %+v", def.Video)
	}

	var b omx.IntConfig
	b.Port = omx.AllPorts
	err = cam.GetConfig(omx.IndexConfigCommonBrightness, &b)
	if err != nil || b.Value != 70 {
		t.Errorf("unexpected brightness: %d, %v", b.Value, err)
	}
	m := omx.MirrorConfig{Port: video}
	err = cam.GetConfig(omx.IndexConfigCommonMirror, &m)
	if err != nil || m.Mode != omx.MirrorHorizontal {
		t.Errorf("unexpected mirror: %v, %v", m.Mode, err)
	}
	wb := omx.WhiteBalanceConfig{Port: omx.AllPorts}
	err = cam.GetConfig(omx.IndexConfigCommonWhiteBalance, &wb)
	if err != nil || wb.Mode != omx.WhiteBalanceCloudy {
		t.Errorf("unexpected white balance: %v, %v", wb.Mode, err)
	}

	if len(p.Tunnels()) != 2 {
		t.Errorf("expected 2 tunnels, got %d", len(p.Tunnels()))
	}
	for _, b := range roles {
		port, err := p.Component(b.component).Port(b.port)
		if err != nil {
			t.Fatalf("could not get port: %v", err)
		}
		if !port.Enabled || port.Allocated != b.buffered {
			t.Errorf("%v: unexpected port state %+v", b.role, port)
		}
	}
}

func TestNewInvalidConfig(t *testing.T) {
	rt, err := sim.New()
	if err != nil {
		t.Fatalf("could not create runtime: %v", err)
	}
	_, err = New(rt, config.Config{})
	if err == nil {
		t.Error("expected error for config without logger")
	}
}

func TestMirror(t *testing.T) {
	tests := []struct {
		h, v bool
		want omx.Mirror
	}{
		{false, false, omx.MirrorNone},
		{true, false, omx.MirrorHorizontal},
		{false, true, omx.MirrorVertical},
		{true, true, omx.MirrorBoth},
	}
	for _, test := range tests {
		got := mirror(test.h, test.v)
		if got != test.want {
			t.Errorf("mirror(%t, %t) = %v, want %v", test.h, test.v, got, test.want)
		}
	}
}

func TestModeTables(t *testing.T) {
	for _, m := range config.WhiteBalanceModes {
		if _, ok := whiteBalanceModes[m]; !ok {
			t.Errorf("white balance mode %q has no omx value", m)
		}
	}
	for _, f := range config.ImageFilters {
		if _, ok := imageFilters[f]; !ok {
			t.Errorf("image filter %q has no omx value", f)
		}
	}
}
