/*
DESCRIPTION
  signal_test.go provides tests for the Board and bounded polling.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package signal

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ausocean/omxcam/omx"
)

// pollMock runs Poll against a mock clock, advancing it until Poll returns.
func pollMock(t *testing.T, b Bounds, cond func() (bool, error)) error {
	mock := clock.NewMock()
	done := make(chan error, 1)
	go func() { done <- Poll(mock, b, "test", cond, nil) }()
	for i := 0; i < 10*b.Attempts+10; i++ {
		select {
		case err := <-done:
			return err
		default:
			mock.Add(b.Interval)
		}
	}
	t.Fatal("poll did not return")
	return nil
}

func TestPollAttempts(t *testing.T) {
	tests := []struct {
		attempts  int
		succeedAt int // 0 means never.
		wantCalls int32
		wantErr   bool
	}{
		{attempts: 5, succeedAt: 0, wantCalls: 5, wantErr: true},
		{attempts: 5, succeedAt: 3, wantCalls: 3},
		{attempts: 1, succeedAt: 1, wantCalls: 1},
		{attempts: 1, succeedAt: 0, wantCalls: 1, wantErr: true},
		{attempts: 0, succeedAt: 0, wantCalls: 1, wantErr: true},
	}

	for i, test := range tests {
		var calls int32
		err := pollMock(t, Bounds{Interval: 10 * time.Millisecond, Attempts: test.attempts}, func() (bool, error) {
			n := atomic.AddInt32(&calls, 1)
			return test.succeedAt != 0 && int(n) >= test.succeedAt, nil
		})
		if calls != test.wantCalls {
			t.Errorf("did not get expected number of evaluations for test %d\nGot: %d\nWant: %d", i, calls, test.wantCalls)
		}
		if (err != nil) != test.wantErr {
			t.Errorf("unexpected error for test %d: %v", i, err)
			continue
		}
		if !test.wantErr {
			continue
		}
		var te *TimeoutError
		if !errors.As(err, &te) {
			t.Errorf("expected *TimeoutError for test %d, got: %T", i, err)
			continue
		}
		if te.Attempts != int(test.wantCalls) {
			t.Errorf("timeout reports wrong attempt count for test %d: %d", i, te.Attempts)
		}
	}
}

func TestPollError(t *testing.T) {
	want := errors.New("broken")
	var calls int
	err := Poll(clock.New(), Bounds{Interval: time.Hour, Attempts: 10}, "test", func() (bool, error) {
		calls++
		return false, want
	}, nil)
	if err != want {
		t.Errorf("did not get expected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected one evaluation, got: %d", calls)
	}
}

func TestConsumeClears(t *testing.T) {
	b := New(nil, nil)
	f := Flushed("video_encode", 201)
	bnd := Bounds{Interval: time.Millisecond, Attempts: 3}

	b.Set(f, true)
	err := b.Consume(f, bnd)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if b.Get(f) {
		t.Error("flag still set after consume")
	}

	// A second consume must not be satisfied by the first signal.
	err = b.Consume(f, bnd)
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected timeout for stale flag, got: %v", err)
	}

	b.Set(f, true)
	err = b.Consume(f, bnd)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if got := b.Count(f); got != 2 {
		t.Errorf("unexpected raise count: %d", got)
	}
}

func TestWaitWakesOnChange(t *testing.T) {
	b := New(nil, nil)
	f := DeviceReady("camera")
	go func() {
		time.Sleep(5 * time.Millisecond)
		b.Set(f, true)
	}()

	start := time.Now()
	err := b.WaitFor(f, Bounds{Interval: time.Hour, Attempts: 2})
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if time.Since(start) > time.Minute {
		t.Error("wait was not woken by flag change")
	}
	if !b.Get(f) {
		t.Error("WaitFor should leave flag set")
	}
}

// toggle repeatedly flips f on b until stop is closed.
func toggle(b *Board, f Flag, stop <-chan struct{}) {
	for v := true; ; v = !v {
		select {
		case <-stop:
			return
		default:
		}
		b.Set(f, v)
		time.Sleep(100 * time.Microsecond)
	}
}

func TestWaitIgnoresUnrelatedChanges(t *testing.T) {
	mock := clock.NewMock()
	b := New(mock, nil)
	f := DeviceReady("camera")

	done := make(chan error, 1)
	go func() { done <- b.WaitFor(f, Bounds{Interval: 10 * time.Millisecond, Attempts: 3}) }()

	// The mock clock never advances, so no attempt may be used up by the
	// traffic on other flags.
	for i := 0; i < 200; i++ {
		b.Set(BufferReady("video_encode", 201), i%2 == 0)
		time.Sleep(50 * time.Microsecond)
	}
	select {
	case err := <-done:
		t.Fatalf("wait ended early: %v", err)
	default:
	}

	b.Set(f, true)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("did not expect error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("wait was not woken by flag change")
	}
}

func TestWaitTimeoutUnderTraffic(t *testing.T) {
	b := New(nil, nil)
	stop := make(chan struct{})
	defer close(stop)
	go toggle(b, Flushed("camera", 71), stop)

	bnd := Bounds{Interval: 10 * time.Millisecond, Attempts: 10}
	start := time.Now()
	err := b.WaitFor(DeviceReady("camera"), bnd)
	elapsed := time.Since(start)

	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TimeoutError, got: %v", err)
	}
	if te.Attempts != bnd.Attempts {
		t.Errorf("timeout reports wrong attempt count: %d", te.Attempts)
	}
	if least := time.Duration(bnd.Attempts-1) * bnd.Interval; elapsed < least {
		t.Errorf("wait timed out too early\nGot: %v\nWant at least: %v", elapsed, least)
	}
}

func TestCallbacks(t *testing.T) {
	b := New(nil, (*testLogger)(t))
	b.Register(1, "camera")
	b.Register(2, "video_encode")

	b.OnEvent(2, omx.EventCmdComplete, uint32(omx.CommandFlush), 201)
	if !b.Get(Flushed("video_encode", 201)) {
		t.Error("flush completion not recorded")
	}
	if b.Get(Flushed("camera", 201)) {
		t.Error("flush recorded against wrong component")
	}

	b.OnEvent(2, omx.EventCmdComplete, uint32(omx.CommandStateSet), uint32(omx.StateIdle))
	if b.Get(Flushed("video_encode", uint32(omx.StateIdle))) {
		t.Error("state completion recorded as flush")
	}

	b.OnEvent(1, omx.EventParamOrConfigChanged, 0, uint32(omx.IndexConfigCommonBrightness))
	if b.Get(DeviceReady("camera")) {
		t.Error("unrelated parameter change marked device ready")
	}
	b.OnEvent(1, omx.EventParamOrConfigChanged, 0, uint32(omx.IndexParamCameraDeviceNumber))
	if !b.Get(DeviceReady("camera")) {
		t.Error("device ready not recorded")
	}

	b.OnFillBufferDone(2, &omx.Buffer{OutputPort: 201})
	if !b.Get(BufferReady("video_encode", 201)) {
		t.Error("buffer ready not recorded")
	}

	if b.Err() != nil {
		t.Errorf("unexpected fault: %v", b.Err())
	}
}

func TestErrorEventFaults(t *testing.T) {
	b := New(nil, (*testLogger)(t))
	b.Register(1, "camera")
	b.OnEvent(1, omx.EventError, uint32(omx.ErrorHardware), 0)
	b.OnEvent(1, omx.EventError, uint32(omx.ErrorBadParameter), 0)

	err := b.WaitFor(DeviceReady("camera"), Bounds{Interval: time.Hour, Attempts: 100})
	var ce *omx.CommandError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *omx.CommandError, got: %v", err)
	}
	if ce.Code() != omx.ErrorHardware {
		t.Errorf("fault should hold first error, got: %v", ce.Code())
	}
}
