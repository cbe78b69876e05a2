/*
DESCRIPTION
  main_test.go provides tests for the omxcam signal handling.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"os"
	"syscall"
	"testing"
	"time"
)

func TestNotifyQuit(t *testing.T) {
	quit, stop := notifyQuit(syscall.SIGUSR1)

	err := syscall.Kill(os.Getpid(), syscall.SIGUSR1)
	if err != nil {
		t.Fatalf("could not send signal: %v", err)
	}
	select {
	case <-quit:
	case <-time.After(5 * time.Second):
		t.Fatal("quit not closed by signal")
	}

	stopped := make(chan struct{})
	go func() {
		stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("signal goroutine did not exit")
	}
}

func TestNotifyQuitStopWithoutSignal(t *testing.T) {
	quit, stop := notifyQuit(syscall.SIGUSR2)
	stop()
	select {
	case <-quit:
		t.Error("quit closed without a signal")
	default:
	}
}
