/*
DESCRIPTION
  config.go contains the Config struct of the capture pipeline and the
  methods to update and validate it.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config contains the configuration settings for the capture
// pipeline.
package config

import (
	"errors"
	"time"

	"github.com/ausocean/utils/logging"
)

// Config provides parameters relevant to a capture pipeline. A new config
// should be obtained with New, updated with Update and checked with Validate
// before use.
type Config struct {
	// Logger holds an implementation of the Logger interface as defined in
	// the logging package. This must be set for the pipeline to work
	// correctly.
	Logger logging.Logger

	// LogLevel is the pipeline logging verbosity level.
	// Valid values are defined by enums from the logging package: logging.Debug,
	// logging.Info, logging.Warning logging.Error, logging.Fatal.
	LogLevel int8

	// Runtime is the name of the registered omx backend to use, e.g. "sim".
	Runtime string

	// InputPath is an H.264 elementary stream replayed by the simulated
	// runtime instead of its test pattern.
	InputPath string

	// OutputPath is a comma separated list of files the encoded bitstream
	// is written to. An empty list or "-" means standard output.
	OutputPath string

	Width     uint // Frame width in pixels.
	Height    uint // Frame height in pixels.
	FrameRate uint // Frames per second.
	Bitrate   uint // Target bitrate in bits per second.

	// CameraDevice is the number of the camera to use.
	CameraDevice uint

	// Camera tuning. These are passed to the camera unmodified.
	Sharpness          int
	Contrast           int
	Brightness         int
	Saturation         int
	EV                 int // Exposure compensation.
	ISO                uint
	AutoISO            bool
	FrameStabilisation bool
	WhiteBalance       string // One of WhiteBalanceModes.
	ImageFilter        string // One of ImageFilters.
	HorizontalFlip     bool
	VerticalFlip       bool

	// Bounds of the waits for command confirmation.
	PollInterval  time.Duration
	PollAttempts  uint
	FlushAttempts uint

	// DrainInterval is the poll interval of the capture loop.
	DrainInterval time.Duration

	// ReportPeriod is how often the output bitrate is logged.
	ReportPeriod time.Duration
}

// New returns a Config holding the camera defaults, logging to l.
func New(l logging.Logger) Config {
	return Config{
		Logger:             l,
		LogLevel:           defaultVerbosity,
		Brightness:         defaultBrightness,
		ISO:                defaultISO,
		FrameStabilisation: true,
		WhiteBalance:       defaultWhiteBalance,
		ImageFilter:        defaultImageFilter,
	}
}

// Validate checks for any errors in the config fields and defaults settings
// if particular parameters have not been defined.
func (c *Config) Validate() error {
	if c.Logger == nil {
		return errors.New("no logger")
	}
	for _, v := range Variables {
		if v.Validate != nil {
			v.Validate(c)
		}
	}
	return nil
}

// Update takes a map of configuration variable names and their corresponding
// values, parses the string values and converting into correct type, and then
// sets the config struct fields as appropriate.
func (c *Config) Update(vars map[string]string) {
	for _, value := range Variables {
		if v, ok := vars[value.Name]; ok && value.Update != nil {
			value.Update(c, v)
		}
	}
}

// LogInvalidField logs that the field name was bad or unset and is being
// defaulted to def.
func (c *Config) LogInvalidField(name string, def interface{}) {
	c.Logger.Info(name+" bad or unset, defaulting", name, def)
}
