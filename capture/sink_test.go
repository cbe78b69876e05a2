/*
DESCRIPTION
  sink_test.go provides testing for the output sink.

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
	"io"
	"os"
	"path/filepath"
	"testing"
)

type closeBuffer struct {
	bytes.Buffer
	closed bool
}

func (b *closeBuffer) Close() error {
	b.closed = true
	return nil
}

func TestSinkFanOut(t *testing.T) {
	a, b := &closeBuffer{}, &closeBuffer{}
	s := NewSink(a, b)
	_, err := s.Write([]byte("frame"))
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	err = s.Close()
	if err != nil {
		t.Fatalf("did not expect error from close: %v", err)
	}
	for i, w := range []*closeBuffer{a, b} {
		if w.String() != "frame" || !w.closed {
			t.Errorf("writer %d: got %q, closed %t", i, w.String(), w.closed)
		}
	}
}

func TestSinkSingle(t *testing.T) {
	a := &closeBuffer{}
	if NewSink(a) != io.WriteCloser(a) {
		t.Error("single writer should be returned as is")
	}
}

func TestIOError(t *testing.T) {
	err := error(&IOError{Want: 10, Wrote: 4, Err: io.ErrShortWrite})
	if !errors.Is(err, io.ErrShortWrite) {
		t.Error("IOError does not unwrap to its cause")
	}
	const want = "failed to write to output: wrote 4 of 10 bytes: short write"
	if err.Error() != want {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestOpenSink(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.h264")
	b := filepath.Join(dir, "b.h264")
	stdout, err := os.Create(filepath.Join(dir, "stdout"))
	if err != nil {
		t.Fatalf("could not create stand in for stdout: %v", err)
	}

	s, err := OpenSink(a+", "+Stdout+","+b, stdout)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	_, err = s.Write([]byte("frame"))
	if err != nil {
		t.Fatalf("did not expect error from write: %v", err)
	}
	err = s.Close()
	if err != nil {
		t.Fatalf("did not expect error from close: %v", err)
	}

	for _, p := range []string{a, b, stdout.Name()} {
		got, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("could not read output: %v", err)
		}
		if string(got) != "frame" {
			t.Errorf("unexpected content of %s: %q", filepath.Base(p), got)
		}
	}
}

func TestOpenSinkDefault(t *testing.T) {
	stdout, err := os.Create(filepath.Join(t.TempDir(), "stdout"))
	if err != nil {
		t.Fatalf("could not create stand in for stdout: %v", err)
	}
	defer stdout.Close()
	for _, paths := range []string{"", Stdout, " , "} {
		s, err := OpenSink(paths, stdout)
		if err != nil {
			t.Fatalf("did not expect error for %q: %v", paths, err)
		}
		if s != io.WriteCloser(stdout) {
			t.Errorf("expected stdout for %q", paths)
		}
	}
}

func TestOpenSinkFailure(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.h264")
	_, err := OpenSink(a+","+filepath.Join(dir, "missing", "b.h264"), nil)
	if err == nil {
		t.Fatal("expected error for output in missing directory")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("unexpected error: %v", err)
	}
}
