/*
DESCRIPTION
  drain.go provides Drainer, the steady state loop that moves encoded data
  from the encoder output buffer to a writer.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package capture

import (
	"fmt"
	"io"
	"time"

	"github.com/ausocean/utils/bitrate"
	"github.com/ausocean/utils/logging"

	"github.com/ausocean/omxcam/omx"
	"github.com/ausocean/omxcam/omx/component"
	"github.com/ausocean/omxcam/omx/signal"
)

// DrainOption applies an option to a Drainer.
type DrainOption func(d *Drainer)

// WithDrainInterval sets the longest pause between loop iterations.
func WithDrainInterval(i time.Duration) DrainOption {
	return func(d *Drainer) {
		if i > 0 {
			d.interval = i
		}
	}
}

// WithDrainLogger sets the logger.
func WithDrainLogger(l logging.Logger) DrainOption {
	return func(d *Drainer) { d.log = l }
}

// WithReportPeriod sets how often the output bitrate is logged. Zero
// disables reporting.
func WithReportPeriod(p time.Duration) DrainOption {
	return func(d *Drainer) { d.period = p }
}

// Drainer repeatedly has the encoder fill its output buffer and writes the
// filled part to a writer.
//
// A quit request is only looked at when a buffer is ready. The keyframe flag
// of that buffer is noted and the loop stops, without writing, at the first
// buffer whose keyframe flag differs from it. If the request arrives inside
// a keyframe the loop stops at the first buffer outside it; otherwise at the
// start of the next keyframe.
type Drainer struct {
	enc   *component.Component
	port  uint32
	board *signal.Board
	w     io.Writer
	quit  <-chan struct{}

	interval time.Duration
	period   time.Duration
	log      logging.Logger

	bitrate bitrate.Calculator
	buffers int
	written int64
}

// NewDrainer returns a Drainer for the output port of enc, writing to w
// until quit is closed.
func NewDrainer(enc *component.Component, port uint32, board *signal.Board, w io.Writer, quit <-chan struct{}, opts ...DrainOption) *Drainer {
	d := &Drainer{
		enc:      enc,
		port:     port,
		board:    board,
		w:        w,
		quit:     quit,
		interval: signal.DefaultDrainInterval,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Run runs the loop. It returns nil once a keyframe boundary is reached
// after a quit request, or after a buffer flagged end of stream is written.
// On return the buffer is owned by the application.
func (d *Drainer) Run() error {
	clk := d.board.Clock()
	last := clk.Now()
	var (
		quitting bool
		quitKey  bool
		needFill = true
	)

	for {
		changed := d.board.Changed()
		err := d.board.Err()
		if err != nil {
			return err
		}

		if d.enc.Ready(d.port) {
			b, err := d.enc.TakeBuffer(d.port)
			if err != nil {
				return err
			}
			if !quitting && d.quitRequested() {
				quitting = true
				quitKey = b.KeyFrame()
				d.info("exit requested, waiting for keyframe boundary", "keyframe", quitKey)
			}
			if quitting && quitKey != b.KeyFrame() {
				d.info("keyframe boundary reached", "buffers", d.buffers, "bytes", d.written)
				return nil
			}

			err = d.write(b)
			if err != nil {
				return err
			}
			if b.Flags&omx.FlagEOS != 0 {
				d.info("end of stream", "buffers", d.buffers, "bytes", d.written)
				return nil
			}
			needFill = true
		}

		if needFill {
			needFill = false
			err = d.enc.FillBuffer(d.port)
			if err != nil {
				return err
			}
		}

		if d.period > 0 && clk.Since(last) >= d.period {
			last = clk.Now()
			d.info("output bitrate", "bps", d.bitrate.Bitrate())
		}

		select {
		case <-changed:
		case <-clk.After(d.interval):
		}
	}
}

// Written returns the number of bytes written.
func (d *Drainer) Written() int64 { return d.written }

func (d *Drainer) quitRequested() bool {
	select {
	case <-d.quit:
		return true
	default:
		return false
	}
}

// write writes the valid range of b, failing on a short write or a range
// reported by the runtime that does not fit the buffer.
func (d *Drainer) write(b *omx.Buffer) error {
	if !b.InRange() {
		return &omx.CommandError{
			Op:  fmt.Sprintf("read output buffer (offset %d, filled %d, alloc %d)", b.Offset, b.FilledLen, len(b.Data)),
			Err: omx.ErrorOverflow,
		}
	}
	p := b.Bytes()
	n, err := d.w.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return &IOError{Want: len(p), Wrote: n, Err: err}
	}
	d.buffers++
	d.written += int64(n)
	d.bitrate.Report(n)
	if d.log != nil {
		d.log.Debug(pkg+"wrote output buffer", "len", n, "alloc", len(b.Data), "keyframe", b.KeyFrame())
	}
	return nil
}

func (d *Drainer) info(msg string, args ...interface{}) {
	if d.log != nil {
		d.log.Info(pkg+msg, args...)
	}
}
