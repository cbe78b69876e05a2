/*
DESCRIPTION
  sim_test.go provides tests for the simulated runtime.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package sim

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ausocean/omxcam/omx"
)

type event struct {
	e            omx.Event
	data1, data2 uint32
}

// recorder collects notifications.
type recorder struct {
	mu     sync.Mutex
	events []event
	filled chan *omx.Buffer
}

func newRecorder() *recorder { return &recorder{filled: make(chan *omx.Buffer, 16)} }

func (r *recorder) OnEvent(h omx.Handle, e omx.Event, data1, data2 uint32) {
	r.mu.Lock()
	r.events = append(r.events, event{e, data1, data2})
	r.mu.Unlock()
}

func (r *recorder) OnFillBufferDone(h omx.Handle, b *omx.Buffer) { r.filled <- b }

func (r *recorder) has(want event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == want {
			return true
		}
	}
	return false
}

func (r *recorder) waitFor(t *testing.T, want event) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !r.has(want) {
		if time.Now().After(deadline) {
			t.Fatalf("did not get event %+v", want)
		}
		time.Sleep(time.Millisecond)
	}
}

func newTestRuntime(t *testing.T, opts ...Option) *Runtime {
	r, err := New(opts...)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	err = r.Init()
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	return r
}

func TestRegistered(t *testing.T) {
	rt, err := omx.Open(Backend)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if _, ok := rt.(*Runtime); !ok {
		t.Errorf("unexpected runtime type: %T", rt)
	}
}

func TestPortGroups(t *testing.T) {
	r := newTestRuntime(t)
	defer r.Deinit()
	h, err := r.Acquire(omx.VendorPrefix+"camera", newRecorder())
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	got, err := r.PortGroups(h)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	want := []omx.PortRange{
		{Domain: omx.DomainVideo, Start: 70, Count: 2},
		{Domain: omx.DomainImage, Start: 72, Count: 1},
		{Domain: omx.DomainOther, Start: 73, Count: 1},
	}
	if !cmp.Equal(got, want) {
		t.Errorf("unexpected port groups:\n%s", cmp.Diff(want, got))
	}

	var init omx.PortInit
	err = r.GetParameter(h, omx.IndexParamVideoInit, &init)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if init != (omx.PortInit{Start: 70, Count: 2}) {
		t.Errorf("unexpected video init: %+v", init)
	}
}

func TestStateSkipRejected(t *testing.T) {
	r := newTestRuntime(t)
	defer r.Deinit()
	h, err := r.Acquire(omx.VendorPrefix+"null_sink", newRecorder())
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	for _, p := range []uint32{240, 241} {
		r.comps[h].ports[p].def.Enabled = false
	}

	err = r.SendCommand(h, omx.CommandStateSet, uint32(omx.StateExecuting))
	if err != omx.ErrorIncorrectStateTransition {
		t.Errorf("expected omx.ErrorIncorrectStateTransition, got: %v", err)
	}
	if r.Violations() == nil {
		t.Error("expected skipped state to be recorded as a violation")
	}
	s, _ := r.State(h)
	if s != omx.StateLoaded {
		t.Errorf("unexpected state: %v", s)
	}

	err = r.SendCommand(h, omx.CommandStateSet, uint32(omx.StateLoaded))
	if err != omx.ErrorSameState {
		t.Errorf("expected omx.ErrorSameState, got: %v", err)
	}
}

func TestDeviceNumberCallback(t *testing.T) {
	r := newTestRuntime(t)
	defer r.Deinit()
	rec := newRecorder()
	h, err := r.Acquire(omx.VendorPrefix+"camera", rec)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}

	err = r.SetConfig(h, omx.IndexConfigRequestCallback, &omx.RequestCallback{
		Port:   omx.AllPorts,
		Index:  omx.IndexParamCameraDeviceNumber,
		Enable: true,
	})
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	err = r.SetParameter(h, omx.IndexParamCameraDeviceNumber, &omx.U32Param{Port: omx.AllPorts})
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	rec.waitFor(t, event{omx.EventParamOrConfigChanged, omx.AllPorts, uint32(omx.IndexParamCameraDeviceNumber)})
}

func TestPayloadChecks(t *testing.T) {
	r := newTestRuntime(t)
	defer r.Deinit()
	h, err := r.Acquire(omx.VendorPrefix+"camera", newRecorder())
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}

	tests := []struct {
		idx  omx.Index
		p    interface{}
		want error
	}{
		{idx: omx.IndexConfigCommonBrightness, p: &omx.IntConfig{Port: 71, Value: 50}},
		{idx: omx.IndexConfigCommonBrightness, p: omx.IntConfig{Port: 71}, want: omx.ErrorBadParameter},
		{idx: omx.IndexConfigCommonBrightness, p: &omx.PortBoolean{Port: 71}, want: omx.ErrorBadParameter},
		{idx: omx.IndexConfigCommonBrightness, p: &omx.IntConfig{Port: 99}, want: omx.ErrorBadPortIndex},
		{idx: omx.Index(0xdead), p: &omx.IntConfig{Port: 71}, want: omx.ErrorUnsupportedIndex},
	}
	for i, test := range tests {
		err := r.SetConfig(h, test.idx, test.p)
		if err != test.want {
			t.Errorf("unexpected error for test %d\nGot: %v\nWant: %v", i, err, test.want)
		}
	}

	got := omx.IntConfig{Port: 71}
	err = r.GetConfig(h, omx.IndexConfigCommonBrightness, &got)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if got.Value != 50 {
		t.Errorf("unexpected stored brightness: %d", got.Value)
	}
}

func TestPortDefinitionStride(t *testing.T) {
	r := newTestRuntime(t)
	defer r.Deinit()
	h, err := r.Acquire(omx.VendorPrefix+"camera", newRecorder())
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}

	def := omx.PortDefinition{Port: 70}
	err = r.GetParameter(h, omx.IndexParamPortDefinition, &def)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	def.Video.Width = 1000
	def.Video.Height = 500
	def.Video.SliceHeight = 0
	def.Video.Stride = 1000
	err = r.SetParameter(h, omx.IndexParamPortDefinition, &def)
	if err != omx.ErrorBadParameter {
		t.Errorf("expected unaligned stride to be rejected, got: %v", err)
	}

	def.Video.Stride = 1008
	err = r.SetParameter(h, omx.IndexParamPortDefinition, &def)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	err = r.GetParameter(h, omx.IndexParamPortDefinition, &def)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if want := uint32(1008 * 512 * 3 / 2); def.BufferSize != want {
		t.Errorf("unexpected buffer size\nGot: %d\nWant: %d", def.BufferSize, want)
	}
}

func TestFillChunks(t *testing.T) {
	frame := bytes.Repeat([]byte{0xaa}, 10)
	r, err := New(WithSource(NewScript(Frame{Data: frame, KeyFrame: true})))
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	b := &omx.Buffer{Data: make([]byte, 4)}

	var got []byte
	var flags []omx.BufferFlag
	for i := 0; i < 4; i++ {
		err := r.fill(b, 0)
		if err != nil {
			t.Fatalf("did not expect error: %v", err)
		}
		got = append(got, b.Bytes()...)
		flags = append(flags, b.Flags)
	}
	if !bytes.Equal(got, frame) {
		t.Errorf("chunks do not reassemble frame: %x", got)
	}
	want := []omx.BufferFlag{
		omx.FlagSyncFrame,
		omx.FlagSyncFrame,
		omx.FlagSyncFrame | omx.FlagEndOfFrame,
		omx.FlagEOS | omx.FlagEndOfFrame,
	}
	if !cmp.Equal(flags, want) {
		t.Errorf("unexpected flags:\n%s", cmp.Diff(want, flags))
	}
}

func TestH264Source(t *testing.T) {
	stream := []byte{
		0x00, 0x00, 0x00, 0x01, 0x67, 0x42,
		0x00, 0x00, 0x00, 0x01, 0x68, 0xce,
		0x00, 0x00, 0x00, 0x01, 0x65, 0x88,
		0x00, 0x00, 0x01, 0x41, 0x9a,
	}
	s := NewH264(bytes.NewReader(stream))
	var got []Frame
	for {
		f, err := s.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("did not expect error: %v", err)
		}
		got = append(got, f)
	}
	want := []Frame{
		{Data: stream[:12], Config: true},
		{Data: stream[12:18], KeyFrame: true},
		{Data: stream[18:]},
	}
	if !cmp.Equal(got, want) {
		t.Errorf("unexpected frames:\n%s", cmp.Diff(want, got))
	}
}

func TestReleaseRequiresLoaded(t *testing.T) {
	r := newTestRuntime(t)
	h, err := r.Acquire(omx.VendorPrefix+"null_sink", newRecorder())
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	for _, p := range []uint32{240, 241} {
		r.comps[h].ports[p].def.Enabled = false
	}
	rec := r.comps[h].cb.(*recorder)

	err = r.SendCommand(h, omx.CommandStateSet, uint32(omx.StateIdle))
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	rec.waitFor(t, event{omx.EventCmdComplete, uint32(omx.CommandStateSet), uint32(omx.StateIdle)})

	err = r.Release(h)
	if err != omx.ErrorIncorrectStateOperation {
		t.Errorf("expected omx.ErrorIncorrectStateOperation, got: %v", err)
	}

	err = r.Deinit()
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if r.Violations() == nil {
		t.Error("expected violations for release in idle and unreleased handle")
	}
}
