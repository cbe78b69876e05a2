/*
DESCRIPTION
  variables.go contains a list of structs that provide a variable Name, type in
  a string format, a function for updating the variable in the Config struct
  from a string, and finally, a validation function to check the validity of the
  corresponding field value in the Config.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ausocean/utils/logging"
	"github.com/ausocean/utils/sliceutils"
)

// Config map Keys.
const (
	KeyAutoISO            = "AutoISO"
	KeyBitrate            = "Bitrate"
	KeyBrightness         = "Brightness"
	KeyCameraDevice       = "CameraDevice"
	KeyContrast           = "Contrast"
	KeyDrainInterval      = "DrainInterval"
	KeyEV                 = "EV"
	KeyFlushAttempts      = "FlushAttempts"
	KeyFrameRate          = "FrameRate"
	KeyFrameStabilisation = "FrameStabilisation"
	KeyHeight             = "Height"
	KeyHorizontalFlip     = "HorizontalFlip"
	KeyImageFilter        = "ImageFilter"
	KeyInputPath          = "InputPath"
	KeyISO                = "ISO"
	KeyLogging            = "logging"
	KeyOutputPath         = "OutputPath"
	KeyPollAttempts       = "PollAttempts"
	KeyPollInterval       = "PollInterval"
	KeyReportPeriod       = "ReportPeriod"
	KeyRuntime            = "Runtime"
	KeySaturation         = "Saturation"
	KeySharpness          = "Sharpness"
	KeyVerticalFlip       = "VerticalFlip"
	KeyWhiteBalance       = "WhiteBalance"
	KeyWidth              = "Width"
)

// Config map parameter types.
const (
	typeString = "string"
	typeInt    = "int"
	typeUint   = "uint"
	typeBool   = "bool"
)

// Default variable values.
const (
	defaultVerbosity = logging.Error
	defaultRuntime   = "sim"

	// Video defaults.
	defaultWidth     = 1920
	defaultHeight    = 1080
	defaultFrameRate = 25
	defaultBitrate   = 10000000

	// Camera defaults.
	defaultBrightness   = 50
	defaultISO          = 100
	defaultWhiteBalance = "auto"
	defaultImageFilter  = "noise"

	// Wait defaults.
	defaultPollInterval  = 10 * time.Millisecond
	defaultPollAttempts  = 500
	defaultFlushAttempts = 500
	defaultDrainInterval = time.Millisecond
	defaultReportPeriod  = 10 * time.Second
)

// WhiteBalanceModes are the valid values of the WhiteBalance variable.
var WhiteBalanceModes = []string{"off", "auto", "sunlight", "cloudy", "shade", "tungsten", "fluorescent", "incandescent", "flash", "horizon"}

// ImageFilters are the valid values of the ImageFilter variable.
var ImageFilters = []string{"none", "noise", "emboss", "negative", "sketch", "oilpaint", "hatch", "gpen", "antialias", "dering", "solarize"}

// Variables describes the variables that can be used for capture control.
// These structs provide the name and type of variable, a function for updating
// this variable in a Config, and a function for validating the value of the variable.
var Variables = []struct {
	Name     string
	Type     string
	Update   func(*Config, string)
	Validate func(*Config)
}{
	{
		Name:   KeyAutoISO,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.AutoISO = parseBool(KeyAutoISO, v, c) },
	},
	{
		Name:     KeyBitrate,
		Type:     typeUint,
		Update:   func(c *Config, v string) { c.Bitrate = parseUint(KeyBitrate, v, c) },
		Validate: func(c *Config) { c.Bitrate = lessThanOrEqual(KeyBitrate, c.Bitrate, 0, c, defaultBitrate) },
	},
	{
		Name:   KeyBrightness,
		Type:   typeInt,
		Update: func(c *Config, v string) { c.Brightness = parseInt(KeyBrightness, v, c) },
	},
	{
		Name:   KeyCameraDevice,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.CameraDevice = parseUint(KeyCameraDevice, v, c) },
	},
	{
		Name:   KeyContrast,
		Type:   typeInt,
		Update: func(c *Config, v string) { c.Contrast = parseInt(KeyContrast, v, c) },
	},
	{
		Name:   KeyDrainInterval,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.DrainInterval = parseMillis(KeyDrainInterval, v, c) },
		Validate: func(c *Config) {
			if c.DrainInterval <= 0 {
				c.LogInvalidField(KeyDrainInterval, defaultDrainInterval)
				c.DrainInterval = defaultDrainInterval
			}
		},
	},
	{
		Name:   KeyEV,
		Type:   typeInt,
		Update: func(c *Config, v string) { c.EV = parseInt(KeyEV, v, c) },
	},
	{
		Name:   KeyFlushAttempts,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.FlushAttempts = parseUint(KeyFlushAttempts, v, c) },
		Validate: func(c *Config) {
			c.FlushAttempts = lessThanOrEqual(KeyFlushAttempts, c.FlushAttempts, 0, c, defaultFlushAttempts)
		},
	},
	{
		Name:     KeyFrameRate,
		Type:     typeUint,
		Update:   func(c *Config, v string) { c.FrameRate = parseUint(KeyFrameRate, v, c) },
		Validate: func(c *Config) { c.FrameRate = lessThanOrEqual(KeyFrameRate, c.FrameRate, 0, c, defaultFrameRate) },
	},
	{
		Name:   KeyFrameStabilisation,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.FrameStabilisation = parseBool(KeyFrameStabilisation, v, c) },
	},
	{
		Name:     KeyHeight,
		Type:     typeUint,
		Update:   func(c *Config, v string) { c.Height = parseUint(KeyHeight, v, c) },
		Validate: func(c *Config) { c.Height = lessThanOrEqual(KeyHeight, c.Height, 0, c, defaultHeight) },
	},
	{
		Name:   KeyHorizontalFlip,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.HorizontalFlip = parseBool(KeyHorizontalFlip, v, c) },
	},
	{
		Name:   KeyImageFilter,
		Type:   "enum:" + strings.Join(ImageFilters, ","),
		Update: func(c *Config, v string) { c.ImageFilter = strings.ToLower(v) },
		Validate: func(c *Config) {
			if !sliceutils.ContainsString(ImageFilters, c.ImageFilter) {
				c.LogInvalidField(KeyImageFilter, defaultImageFilter)
				c.ImageFilter = defaultImageFilter
			}
		},
	},
	{
		Name:   KeyInputPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.InputPath = v },
	},
	{
		Name:   KeyISO,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.ISO = parseUint(KeyISO, v, c) },
	},
	{
		Name: KeyLogging,
		Type: "enum:Debug,Info,Warning,Error,Fatal",
		Update: func(c *Config, v string) {
			switch v {
			case "Debug":
				c.LogLevel = logging.Debug
			case "Info":
				c.LogLevel = logging.Info
			case "Warning":
				c.LogLevel = logging.Warning
			case "Error":
				c.LogLevel = logging.Error
			case "Fatal":
				c.LogLevel = logging.Fatal
			default:
				c.Logger.Warning("invalid Logging param", "value", v)
			}
		},
		Validate: func(c *Config) {
			switch c.LogLevel {
			case logging.Debug, logging.Info, logging.Warning, logging.Error, logging.Fatal:
			default:
				c.LogInvalidField("LogLevel", defaultVerbosity)
				c.LogLevel = defaultVerbosity
			}
		},
	},
	{
		Name:   KeyOutputPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.OutputPath = v },
	},
	{
		Name:   KeyPollAttempts,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.PollAttempts = parseUint(KeyPollAttempts, v, c) },
		Validate: func(c *Config) {
			c.PollAttempts = lessThanOrEqual(KeyPollAttempts, c.PollAttempts, 0, c, defaultPollAttempts)
		},
	},
	{
		Name:   KeyPollInterval,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.PollInterval = parseMillis(KeyPollInterval, v, c) },
		Validate: func(c *Config) {
			if c.PollInterval <= 0 {
				c.LogInvalidField(KeyPollInterval, defaultPollInterval)
				c.PollInterval = defaultPollInterval
			}
		},
	},
	{
		Name: KeyReportPeriod,
		Type: typeUint,
		Update: func(c *Config, v string) {
			c.ReportPeriod = time.Duration(parseUint(KeyReportPeriod, v, c)) * time.Second
		},
		Validate: func(c *Config) {
			if c.ReportPeriod <= 0 {
				c.LogInvalidField(KeyReportPeriod, defaultReportPeriod)
				c.ReportPeriod = defaultReportPeriod
			}
		},
	},
	{
		Name:   KeyRuntime,
		Type:   typeString,
		Update: func(c *Config, v string) { c.Runtime = v },
		Validate: func(c *Config) {
			if c.Runtime == "" {
				c.LogInvalidField(KeyRuntime, defaultRuntime)
				c.Runtime = defaultRuntime
			}
		},
	},
	{
		Name:   KeySaturation,
		Type:   typeInt,
		Update: func(c *Config, v string) { c.Saturation = parseInt(KeySaturation, v, c) },
	},
	{
		Name:   KeySharpness,
		Type:   typeInt,
		Update: func(c *Config, v string) { c.Sharpness = parseInt(KeySharpness, v, c) },
	},
	{
		Name:   KeyVerticalFlip,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.VerticalFlip = parseBool(KeyVerticalFlip, v, c) },
	},
	{
		Name:   KeyWhiteBalance,
		Type:   "enum:" + strings.Join(WhiteBalanceModes, ","),
		Update: func(c *Config, v string) { c.WhiteBalance = strings.ToLower(v) },
		Validate: func(c *Config) {
			if !sliceutils.ContainsString(WhiteBalanceModes, c.WhiteBalance) {
				c.LogInvalidField(KeyWhiteBalance, defaultWhiteBalance)
				c.WhiteBalance = defaultWhiteBalance
			}
		},
	},
	{
		Name:     KeyWidth,
		Type:     typeUint,
		Update:   func(c *Config, v string) { c.Width = parseUint(KeyWidth, v, c) },
		Validate: func(c *Config) { c.Width = lessThanOrEqual(KeyWidth, c.Width, 0, c, defaultWidth) },
	},
}

func parseUint(n, v string, c *Config) uint {
	_v, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		c.Logger.Warning(fmt.Sprintf("expected unsigned int for param %s", n), "value", v)
	}
	return uint(_v)
}

func parseInt(n, v string, c *Config) int {
	_v, err := strconv.Atoi(v)
	if err != nil {
		c.Logger.Warning(fmt.Sprintf("expected integer for param %s", n), "value", v)
	}
	return _v
}

func parseBool(n, v string, c *Config) (b bool) {
	switch strings.ToLower(v) {
	case "true":
		b = true
	case "false":
		b = false
	default:
		c.Logger.Warning(fmt.Sprintf("expect bool for param %s", n), "value", v)
	}
	return
}

// parseMillis parses a whole number of milliseconds.
func parseMillis(n, v string, c *Config) time.Duration {
	return time.Duration(parseUint(n, v, c)) * time.Millisecond
}

func lessThanOrEqual(n string, v, cmp uint, c *Config, def uint) uint {
	if v <= cmp {
		c.LogInvalidField(n, def)
		return def
	}
	return v
}
