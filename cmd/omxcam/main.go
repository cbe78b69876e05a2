/*
DESCRIPTION
  omxcam captures video from the camera, encodes it to H.264 in hardware and
  writes the raw bitstream to a file or standard output until interrupted.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package main is the omxcam capture program.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/omxcam/capture"
	"github.com/ausocean/omxcam/capture/config"
	"github.com/ausocean/omxcam/omx"
	"github.com/ausocean/omxcam/omx/sim"
)

// Current software version.
const version = "v0.1.0"

// Logging configuration.
const (
	logPath      = "/var/log/omxcam/omxcam.log"
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
	logVerbosity = logging.Info
	logSuppress  = true
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version")
		configPath  = flag.String("config", "", "YAML file of config variables")
		runtimeName = flag.String("runtime", "", "omx backend, one of the registered backends")
		inputPath   = flag.String("input", "", "H.264 file replayed by the sim backend")
		outputPath  = flag.String("output", "", "comma separated output files, - or empty for standard output")
		logFile     = flag.String("log", logPath, "log file path")
		verbose     = flag.Bool("v", false, "also log to standard error")
	)
	flag.Parse()
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Create lumberjack logger to handle logging to file.
	var w io.Writer = &lumberjack.Logger{
		Filename:   *logFile,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	if *verbose {
		w = io.MultiWriter(w, os.Stderr)
	}
	log := logging.New(logVerbosity, w, logSuppress)
	log.Info("starting omxcam", "version", version)

	vars := map[string]string{}
	if *configPath != "" {
		var err error
		vars, err = config.ReadFile(*configPath)
		if err != nil {
			fatal(log, errors.Wrap(err, "could not read config"))
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "runtime":
			vars[config.KeyRuntime] = *runtimeName
		case "input":
			vars[config.KeyInputPath] = *inputPath
		case "output":
			vars[config.KeyOutputPath] = *outputPath
		}
	})

	cfg := config.New(log)
	cfg.Update(vars)
	err := cfg.Validate()
	if err != nil {
		fatal(log, err)
	}
	log.SetLevel(cfg.LogLevel)

	err = run(log, cfg)
	if err != nil {
		fatal(log, err)
	}
	log.Info("omxcam finished")
}

// run opens the runtime and output and runs the pipeline until SIGINT,
// SIGTERM or SIGQUIT.
func run(log logging.Logger, cfg config.Config) error {
	rt, err := openRuntime(log, cfg)
	if err != nil {
		return err
	}

	out, err := capture.OpenSink(cfg.OutputPath, os.Stdout)
	if err != nil {
		return err
	}
	defer out.Close()

	p, err := capture.New(rt, cfg)
	if err != nil {
		return err
	}
	log.Info("created pipeline", "run", p.ID())

	err = p.Setup()
	if err != nil {
		return errors.Wrap(err, "could not set up pipeline")
	}
	err = p.Start()
	if err != nil {
		return errors.Wrap(err, "could not start pipeline")
	}

	quit, stop := notifyQuit(syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	log.Info("capturing, interrupt to stop")
	err = p.Drain(out, quit)
	stop()
	if err != nil {
		return errors.Wrap(err, "capture failed")
	}

	err = p.Shutdown()
	if err != nil {
		return errors.Wrap(err, "could not shut down pipeline")
	}
	return nil
}

// openRuntime returns the configured backend. The sim backend replays the
// input file when one is given.
func openRuntime(log logging.Logger, cfg config.Config) (omx.Runtime, error) {
	if cfg.Runtime != sim.Backend {
		rt, err := omx.Open(cfg.Runtime)
		if err != nil {
			return nil, errors.Wrapf(err, "could not open runtime %s", cfg.Runtime)
		}
		return rt, nil
	}

	opts := []sim.Option{sim.WithLogger(log)}
	if cfg.InputPath != "" {
		f, err := os.Open(cfg.InputPath)
		if err != nil {
			return nil, errors.Wrap(err, "could not open input")
		}
		opts = append(opts, sim.WithSource(sim.NewH264(f)))
	}
	return sim.New(opts...)
}

// notifyQuit returns a channel that is closed on the first of sigs, and a
// function that stops signal delivery and waits for the forwarding
// goroutine to exit.
func notifyQuit(sigs ...os.Signal) (<-chan struct{}, func()) {
	quit := make(chan struct{})
	done := make(chan struct{})
	c := make(chan os.Signal, 1)
	signal.Notify(c, sigs...)
	go func() {
		defer close(done)
		var once sync.Once
		for range c {
			once.Do(func() { close(quit) })
		}
	}()
	return quit, func() {
		signal.Stop(c)
		close(c)
		<-done
	}
}

// fatal logs err and exits with a single line diagnostic.
func fatal(log logging.Logger, err error) {
	log.Error("fatal error", "error", err.Error(), "cause", errors.Cause(err).Error())
	fmt.Fprintf(os.Stderr, "omxcam: %v\n", err)
	os.Exit(1)
}
