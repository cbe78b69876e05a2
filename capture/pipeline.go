/*
DESCRIPTION
  pipeline.go provides Pipeline, which builds the camera, encoder and null
  sink pipeline, runs it and tears it down.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package capture runs a camera through a hardware H.264 encoder and writes
// the encoded stream to a sink.
//
// The camera preview output is tunneled to a null sink and the camera video
// output to the encoder. The application holds one buffer on the encoder
// output, which is drained until a quit request is observed, and then stops
// on a keyframe boundary.
package capture

import (
	"fmt"
	"io"

	"github.com/ausocean/utils/logging"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ausocean/omxcam/capture/config"
	"github.com/ausocean/omxcam/omx"
	"github.com/ausocean/omxcam/omx/component"
	"github.com/ausocean/omxcam/omx/signal"
)

const pkg = "capture: "

// Option applies an option to a Pipeline.
type Option func(p *Pipeline) error

// WithClock sets the clock used for all waits. It is intended for tests.
func WithClock(c clock.Clock) Option {
	return func(p *Pipeline) error {
		if c == nil {
			return errors.New("nil clock")
		}
		p.clk = c
		return nil
	}
}

// Pipeline is one run of the capture pipeline. A Pipeline is used once:
// Setup, Start, Drain and Shutdown, in that order, or Run.
type Pipeline struct {
	rt    omx.Runtime
	cfg   config.Config
	log   logging.Logger
	clk   clock.Clock
	board *signal.Board
	id    string

	comps   map[string]*component.Component
	tunnels []*component.Tunnel
}

// New returns a Pipeline over rt. cfg is validated, defaulting unset fields.
func New(rt omx.Runtime, cfg config.Config, opts ...Option) (*Pipeline, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	p := &Pipeline{
		rt:    rt,
		cfg:   cfg,
		log:   cfg.Logger,
		clk:   clock.New(),
		id:    uuid.NewString(),
		comps: make(map[string]*component.Component),
	}
	for i, o := range opts {
		err := o(p)
		if err != nil {
			return nil, fmt.Errorf("could not apply option %d: %w", i, err)
		}
	}
	p.board = signal.New(p.clk, p.log)
	return p, nil
}

// ID returns the identifier of the run, which is attached to log lines.
func (p *Pipeline) ID() string { return p.id }

// Component returns the named component once acquired, or nil.
func (p *Pipeline) Component(name string) *component.Component { return p.comps[name] }

// Tunnels returns the tunnels set up by Setup.
func (p *Pipeline) Tunnels() []*component.Tunnel { return p.tunnels }

// Run sets up and starts the pipeline, drains it to w until quit is closed
// and a keyframe boundary is reached, and shuts it down. Any error is
// fatal; no cleanup is attempted after one.
func (p *Pipeline) Run(w io.Writer, quit <-chan struct{}) error {
	err := p.Setup()
	if err != nil {
		return errors.Wrap(err, "could not set up pipeline")
	}
	err = p.Start()
	if err != nil {
		return errors.Wrap(err, "could not start pipeline")
	}
	err = p.Drain(w, quit)
	if err != nil {
		return errors.Wrap(err, "capture failed")
	}
	err = p.Shutdown()
	if err != nil {
		return errors.Wrap(err, "could not shut down pipeline")
	}
	return nil
}

// Setup initialises the runtime, acquires and configures the components,
// tunnels them, takes them to idle, enables their ports and allocates the
// application buffers.
func (p *Pipeline) Setup() error {
	p.info("setting up pipeline", "runtime", p.cfg.Runtime)
	err := p.rt.Init()
	if err != nil {
		return omx.Check(err, "init")
	}

	bounds := component.WithBounds(p.bounds())
	flush := component.WithFlushBounds(signal.Bounds{Interval: p.cfg.PollInterval, Attempts: int(p.cfg.FlushAttempts)})
	for _, name := range components {
		c, err := component.Acquire(p.rt, p.board, name, bounds, flush, component.WithLogger(p.log))
		if err != nil {
			return errors.Wrapf(err, "could not acquire %s", name)
		}
		p.comps[name] = c
	}

	err = p.configureCamera()
	if err != nil {
		return errors.Wrap(err, "could not configure camera")
	}
	err = p.configureEncoder()
	if err != nil {
		return errors.Wrap(err, "could not configure encoder")
	}

	for _, t := range tunnels {
		src, dst := bind(t[0]), bind(t[1])
		tun, err := component.SetupTunnel(p.comps[src.component], src.port, p.comps[dst.component], dst.port)
		if err != nil {
			return errors.Wrapf(err, "could not tunnel %v to %v", t[0], t[1])
		}
		p.tunnels = append(p.tunnels, tun)
		p.debug("tunnel set up", "tunnel", tun.String())
	}

	err = p.setState(omx.StateIdle)
	if err != nil {
		return err
	}

	for _, b := range roles {
		err = p.comps[b.component].EnablePort(b.port)
		if err != nil {
			return errors.Wrapf(err, "could not enable %v", b.role)
		}
	}
	for _, b := range roles {
		if !b.buffered {
			continue
		}
		_, err = p.comps[b.component].AllocateBuffer(b.port)
		if err != nil {
			return errors.Wrapf(err, "could not allocate %v buffer", b.role)
		}
	}
	p.info("pipeline set up")
	return nil
}

// Start takes the components to executing and switches on capture.
func (p *Pipeline) Start() error {
	err := p.setState(omx.StateExecuting)
	if err != nil {
		return err
	}
	err = p.capture(true)
	if err != nil {
		return err
	}
	for _, b := range roles {
		err = p.comps[b.component].LogPort(b.port)
		if err != nil {
			return err
		}
	}
	p.info("capture started")
	return nil
}

// Drain writes the encoder output to w until quit is closed and a keyframe
// boundary is reached, or the stream ends.
func (p *Pipeline) Drain(w io.Writer, quit <-chan struct{}) error {
	_, port := PortOf(EncoderOutput)
	d := NewDrainer(p.comps[Encoder], port, p.board, w, quit,
		WithDrainInterval(p.cfg.DrainInterval),
		WithDrainLogger(p.log),
		WithReportPeriod(p.cfg.ReportPeriod),
	)
	err := d.Run()
	if err != nil {
		return err
	}
	p.info("capture finished", "bytes", d.Written())
	return nil
}

// Shutdown stops capture and returns the pipeline to its initial state:
// the last buffer is handed back with end of stream set, every port is
// flushed, then disabled, buffers are freed, components are taken to idle
// and loaded, released, and the runtime deinitialised. It stops at the
// first failure.
func (p *Pipeline) Shutdown() error {
	p.info("shutting down pipeline")
	err := p.capture(false)
	if err != nil {
		return err
	}

	enc := p.comps[Encoder]
	_, out := PortOf(EncoderOutput)
	b, err := enc.TakeBuffer(out)
	if err != nil {
		return errors.Wrap(err, "could not reclaim encoder buffer")
	}
	b.Flags = omx.FlagEOS
	err = enc.FillBuffer(out)
	if err != nil {
		return errors.Wrap(err, "could not return last buffer")
	}

	for _, b := range roles {
		err = p.comps[b.component].Flush(b.port)
		if err != nil {
			return errors.Wrapf(err, "could not flush %v", b.role)
		}
	}
	for _, b := range roles {
		err = p.comps[b.component].DisablePort(b.port)
		if err != nil {
			return errors.Wrapf(err, "could not disable %v", b.role)
		}
	}
	for _, b := range roles {
		if !b.buffered {
			continue
		}
		err = p.comps[b.component].FreeBuffer(b.port)
		if err != nil {
			return errors.Wrapf(err, "could not free %v buffer", b.role)
		}
	}

	err = p.setState(omx.StateIdle)
	if err != nil {
		return err
	}
	err = p.setState(omx.StateLoaded)
	if err != nil {
		return err
	}

	for _, name := range components {
		err = p.comps[name].Release()
		if err != nil {
			return errors.Wrapf(err, "could not release %s", name)
		}
	}
	err = p.rt.Deinit()
	if err != nil {
		return omx.Check(err, "deinit")
	}
	p.info("pipeline shut down")
	return nil
}

// setState steps every component to s in setup order.
func (p *Pipeline) setState(s omx.State) error {
	for _, name := range components {
		err := p.comps[name].SetState(s)
		if err != nil {
			return errors.Wrapf(err, "could not take %s to %v", name, s)
		}
	}
	p.debug("components in state", "state", s.String())
	return nil
}

// capture switches capture on the camera video output.
func (p *Pipeline) capture(on bool) error {
	name, port := PortOf(CameraVideo)
	err := p.comps[name].SetConfig(omx.IndexConfigPortCapturing, &omx.PortBoolean{Port: port, Enabled: on})
	if err != nil {
		return errors.Wrapf(err, "could not switch capture to %t", on)
	}
	return nil
}

func (p *Pipeline) bounds() signal.Bounds {
	return signal.Bounds{Interval: p.cfg.PollInterval, Attempts: int(p.cfg.PollAttempts)}
}

func (p *Pipeline) info(msg string, args ...interface{}) {
	p.log.Info(pkg+msg, append(args, "run", p.id)...)
}

func (p *Pipeline) debug(msg string, args ...interface{}) {
	p.log.Debug(pkg+msg, append(args, "run", p.id)...)
}
