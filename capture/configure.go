/*
DESCRIPTION
  configure.go applies the capture configuration to the camera and encoder
  components before they leave the loaded state.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package capture

import (
	"github.com/pkg/errors"

	"github.com/ausocean/omxcam/omx"
	"github.com/ausocean/omxcam/omx/signal"
)

var whiteBalanceModes = map[string]omx.WhiteBalance{
	"off":          omx.WhiteBalanceOff,
	"auto":         omx.WhiteBalanceAuto,
	"sunlight":     omx.WhiteBalanceSunlight,
	"cloudy":       omx.WhiteBalanceCloudy,
	"shade":        omx.WhiteBalanceShade,
	"tungsten":     omx.WhiteBalanceTungsten,
	"fluorescent":  omx.WhiteBalanceFluorescent,
	"incandescent": omx.WhiteBalanceIncandescent,
	"flash":        omx.WhiteBalanceFlash,
	"horizon":      omx.WhiteBalanceHorizon,
}

var imageFilters = map[string]omx.ImageFilter{
	"none":      omx.ImageFilterNone,
	"noise":     omx.ImageFilterNoise,
	"emboss":    omx.ImageFilterEmboss,
	"negative":  omx.ImageFilterNegative,
	"sketch":    omx.ImageFilterSketch,
	"oilpaint":  omx.ImageFilterOilPaint,
	"hatch":     omx.ImageFilterHatch,
	"gpen":      omx.ImageFilterGpen,
	"antialias": omx.ImageFilterAntialias,
	"dering":    omx.ImageFilterDeRing,
	"solarize":  omx.ImageFilterSolarize,
}

// mirror returns the mirror mode for the given flips.
func mirror(h, v bool) omx.Mirror {
	switch {
	case h && v:
		return omx.MirrorBoth
	case h:
		return omx.MirrorHorizontal
	case v:
		return omx.MirrorVertical
	default:
		return omx.MirrorNone
	}
}

// align rounds n up to a multiple of a.
func align(n, a uint32) uint32 {
	if a == 0 {
		return n
	}
	return (n + a - 1) / a * a
}

// configureCamera sets up the camera outputs and tuning, then waits for the
// camera to report it is ready.
func (p *Pipeline) configureCamera() error {
	cam := p.comps[Camera]
	_, preview := PortOf(CameraPreview)
	_, video := PortOf(CameraVideo)

	p.debug("requesting camera ready callback")
	err := cam.SetConfig(omx.IndexConfigRequestCallback, &omx.RequestCallback{
		Port:   omx.AllPorts,
		Index:  omx.IndexParamCameraDeviceNumber,
		Enable: true,
	})
	if err != nil {
		return err
	}
	err = cam.SetParameter(omx.IndexParamCameraDeviceNumber, &omx.U32Param{
		Port:  omx.AllPorts,
		Value: uint32(p.cfg.CameraDevice),
	})
	if err != nil {
		return err
	}

	def, err := cam.PortDefinition(preview)
	if err != nil {
		return err
	}
	def.Video.Width = uint32(p.cfg.Width)
	def.Video.Height = uint32(p.cfg.Height)
	def.Video.Framerate = uint32(p.cfg.FrameRate) << 16
	def.Video.Stride = int32(align(def.Video.Width, def.BufferAlignment))
	def.Video.Color = omx.ColorYUV420PackedPlanar
	err = cam.SetPortDefinition(def)
	if err != nil {
		return errors.Wrap(err, "could not set camera preview format")
	}

	// The video output matches the preview.
	def, err = cam.PortDefinition(preview)
	if err != nil {
		return err
	}
	def.Port = video
	err = cam.SetPortDefinition(def)
	if err != nil {
		return errors.Wrap(err, "could not set camera video format")
	}

	for _, port := range []uint32{preview, video} {
		err = cam.SetConfig(omx.IndexConfigVideoFramerate, &omx.Framerate{Port: port, Q16: uint32(p.cfg.FrameRate) << 16})
		if err != nil {
			return err
		}
	}

	err = p.tuneCamera()
	if err != nil {
		return err
	}

	p.debug("waiting for camera to be ready")
	err = p.board.WaitFor(signal.DeviceReady(Camera), p.bounds())
	if err != nil {
		return errors.Wrap(err, "camera not ready")
	}
	p.info("camera ready")
	return nil
}

// tuneCamera applies the image settings. Values are passed through as
// given.
func (p *Pipeline) tuneCamera() error {
	cam := p.comps[Camera]
	_, video := PortOf(CameraVideo)
	c := &p.cfg

	wb, ok := whiteBalanceModes[c.WhiteBalance]
	if !ok {
		return errors.Errorf("unknown white balance mode %q", c.WhiteBalance)
	}
	filter, ok := imageFilters[c.ImageFilter]
	if !ok {
		return errors.Errorf("unknown image filter %q", c.ImageFilter)
	}

	settings := []struct {
		idx     omx.Index
		payload interface{}
	}{
		{omx.IndexConfigCommonSharpness, &omx.IntConfig{Port: omx.AllPorts, Value: int32(c.Sharpness)}},
		{omx.IndexConfigCommonContrast, &omx.IntConfig{Port: omx.AllPorts, Value: int32(c.Contrast)}},
		{omx.IndexConfigCommonSaturation, &omx.IntConfig{Port: omx.AllPorts, Value: int32(c.Saturation)}},
		{omx.IndexConfigCommonBrightness, &omx.IntConfig{Port: omx.AllPorts, Value: int32(c.Brightness)}},
		{omx.IndexConfigCommonExposureValue, &omx.ExposureValue{
			Port:            omx.AllPorts,
			EVCompensation:  int32(c.EV) << 16,
			Sensitivity:     uint32(c.ISO),
			AutoSensitivity: c.AutoISO,
		}},
		{omx.IndexConfigCommonFrameStabilisation, &omx.PortBoolean{Port: omx.AllPorts, Enabled: c.FrameStabilisation}},
		{omx.IndexConfigCommonWhiteBalance, &omx.WhiteBalanceConfig{Port: omx.AllPorts, Mode: wb}},
		{omx.IndexConfigCommonImageFilter, &omx.ImageFilterConfig{Port: omx.AllPorts, Filter: filter}},
		{omx.IndexConfigCommonMirror, &omx.MirrorConfig{Port: video, Mode: mirror(c.HorizontalFlip, c.VerticalFlip)}},
	}
	for _, s := range settings {
		err := cam.SetConfig(s.idx, s.payload)
		if err != nil {
			return err
		}
	}
	return nil
}

// configureEncoder sets the encoder output to H.264 at the configured
// bitrate, matching the camera's video format.
func (p *Pipeline) configureEncoder() error {
	cam, enc := p.comps[Camera], p.comps[Encoder]
	_, video := PortOf(CameraVideo)
	_, out := PortOf(EncoderOutput)

	src, err := cam.PortDefinition(video)
	if err != nil {
		return err
	}
	def, err := enc.PortDefinition(out)
	if err != nil {
		return err
	}
	def.Video.Width = src.Video.Width
	def.Video.Height = src.Video.Height
	def.Video.Framerate = src.Video.Framerate
	def.Video.Stride = src.Video.Stride
	def.Video.Bitrate = uint32(p.cfg.Bitrate)
	err = enc.SetPortDefinition(def)
	if err != nil {
		return errors.Wrap(err, "could not set encoder output format")
	}

	err = enc.SetParameter(omx.IndexParamVideoBitrate, &omx.VideoBitrate{
		Port:    out,
		Control: omx.ControlRateVariable,
		Target:  uint32(p.cfg.Bitrate),
	})
	if err != nil {
		return err
	}
	return enc.SetParameter(omx.IndexParamVideoPortFormat, &omx.VideoPortFormat{
		Port:        out,
		Compression: omx.CodingAVC,
	})
}
