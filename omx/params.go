/*
DESCRIPTION
  params.go provides the parameter and configuration indices understood by
  runtimes and the payload structs that go with them.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package omx

import "fmt"

// Index selects a parameter or configuration. Backends map these onto their
// native index values.
type Index uint32

// Parameter indices.
const (
	IndexParamAudioInit Index = iota + 1
	IndexParamImageInit
	IndexParamVideoInit
	IndexParamOtherInit
	IndexParamPortDefinition     // *PortDefinition
	IndexParamVideoPortFormat    // *VideoPortFormat
	IndexParamVideoBitrate       // *VideoBitrate
	IndexParamCameraDeviceNumber // *U32Param
)

// Configuration indices. The payload of each is noted in the payload struct
// documentation.
const (
	IndexConfigRequestCallback Index = iota + 0x100
	IndexConfigPortCapturing
	IndexConfigVideoFramerate
	IndexConfigCommonSharpness
	IndexConfigCommonContrast
	IndexConfigCommonSaturation
	IndexConfigCommonBrightness
	IndexConfigCommonExposureValue
	IndexConfigCommonFrameStabilisation
	IndexConfigCommonWhiteBalance
	IndexConfigCommonImageFilter
	IndexConfigCommonMirror
)

var indexNames = map[Index]string{
	IndexParamAudioInit:                 "audio init",
	IndexParamImageInit:                 "image init",
	IndexParamVideoInit:                 "video init",
	IndexParamOtherInit:                 "other init",
	IndexParamPortDefinition:            "port definition",
	IndexParamVideoPortFormat:           "video port format",
	IndexParamVideoBitrate:              "video bitrate",
	IndexParamCameraDeviceNumber:        "camera device number",
	IndexConfigRequestCallback:          "request callback",
	IndexConfigPortCapturing:            "port capturing",
	IndexConfigVideoFramerate:           "video framerate",
	IndexConfigCommonSharpness:          "sharpness",
	IndexConfigCommonContrast:           "contrast",
	IndexConfigCommonSaturation:         "saturation",
	IndexConfigCommonBrightness:         "brightness",
	IndexConfigCommonExposureValue:      "exposure value",
	IndexConfigCommonFrameStabilisation: "frame stabilisation",
	IndexConfigCommonWhiteBalance:       "white balance",
	IndexConfigCommonImageFilter:        "image filter",
	IndexConfigCommonMirror:             "mirror",
}

func (i Index) String() string {
	if n, ok := indexNames[i]; ok {
		return n
	}
	return fmt.Sprintf("index 0x%08x", uint32(i))
}

// Domain is the kind of data carried by a port.
type Domain int

// Port domains.
const (
	DomainAudio Domain = iota
	DomainVideo
	DomainImage
	DomainOther
)

// InitIndex returns the parameter index used to discover the ports of the
// domain.
func (d Domain) InitIndex() Index {
	switch d {
	case DomainAudio:
		return IndexParamAudioInit
	case DomainVideo:
		return IndexParamVideoInit
	case DomainImage:
		return IndexParamImageInit
	default:
		return IndexParamOtherInit
	}
}

// Dir is the direction of a port.
type Dir int

// Port directions.
const (
	DirInput Dir = iota
	DirOutput
)

func (d Dir) String() string {
	if d == DirInput {
		return "input"
	}
	return "output"
}

// Coding is a video compression format.
type Coding int

// Video codings.
const (
	CodingUnused Coding = iota
	CodingAutoDetect
	CodingMPEG2
	CodingH263
	CodingMPEG4
	CodingWMV
	CodingRV
	CodingAVC
	CodingMJPEG
)

func (c Coding) String() string {
	switch c {
	case CodingUnused:
		return "not used"
	case CodingAutoDetect:
		return "autodetect"
	case CodingMPEG2:
		return "MPEG2"
	case CodingH263:
		return "H.263"
	case CodingMPEG4:
		return "MPEG4"
	case CodingWMV:
		return "Windows Media Video"
	case CodingRV:
		return "RealVideo"
	case CodingAVC:
		return "H.264/AVC"
	case CodingMJPEG:
		return "Motion JPEG"
	default:
		return fmt.Sprintf("format type 0x%08x", int(c))
	}
}

// ColorFormat is an uncompressed pixel layout.
type ColorFormat int

// Color formats.
const (
	ColorUnused ColorFormat = iota
	ColorYUV420Planar
	ColorYUV420PackedPlanar
	ColorYUV420SemiPlanar
	ColorYUV422Planar
	ColorBRCMOpaque
)

func (c ColorFormat) String() string {
	switch c {
	case ColorUnused:
		return "not used"
	case ColorYUV420Planar:
		return "YUV420 planar"
	case ColorYUV420PackedPlanar:
		return "YUV420 packed planar"
	case ColorYUV420SemiPlanar:
		return "YUV420 semi planar"
	case ColorYUV422Planar:
		return "YUV422 planar"
	case ColorBRCMOpaque:
		return "opaque"
	default:
		return fmt.Sprintf("format type 0x%08x", int(c))
	}
}

// PortDefinition describes a port. It is the payload of
// IndexParamPortDefinition.
type PortDefinition struct {
	Port              uint32
	Dir               Dir
	Enabled           bool
	Populated         bool
	BufferCountActual uint32
	BufferCountMin    uint32
	BufferSize        uint32
	BufferAlignment   uint32
	Domain            Domain
	Video             VideoDefinition
}

// VideoDefinition is the video specific part of a PortDefinition.
type VideoDefinition struct {
	Width            uint32
	Height           uint32
	Stride           int32
	SliceHeight      uint32
	Bitrate          uint32
	Framerate        uint32 // Q16 fixed point.
	ErrorConcealment bool
	Compression      Coding
	Color            ColorFormat
}

// PortInit is the payload of the domain init indices.
type PortInit struct {
	Start uint32
	Count uint32
}

// VideoPortFormat is the payload of IndexParamVideoPortFormat.
type VideoPortFormat struct {
	Port        uint32
	Index       uint32
	Compression Coding
	Color       ColorFormat
	Framerate   uint32
}

// ControlRate is a bitrate control mode.
type ControlRate int

// Bitrate control modes.
const (
	ControlRateDisable ControlRate = iota
	ControlRateVariable
	ControlRateConstant
)

// VideoBitrate is the payload of IndexParamVideoBitrate.
type VideoBitrate struct {
	Port    uint32
	Control ControlRate
	Target  uint32
}

// U32Param carries a single unsigned value. It is the payload of
// IndexParamCameraDeviceNumber.
type U32Param struct {
	Port  uint32
	Value uint32
}

// RequestCallback is the payload of IndexConfigRequestCallback. It asks a
// component to raise EventParamOrConfigChanged when the parameter Index
// changes.
type RequestCallback struct {
	Port   uint32
	Index  Index
	Enable bool
}

// PortBoolean carries a per port switch. It is the payload of
// IndexConfigPortCapturing and IndexConfigCommonFrameStabilisation.
type PortBoolean struct {
	Port    uint32
	Enabled bool
}

// Framerate is the payload of IndexConfigVideoFramerate.
type Framerate struct {
	Port uint32
	Q16  uint32
}

// IntConfig carries a signed scalar. It is the payload of the sharpness,
// contrast, saturation and brightness configs.
type IntConfig struct {
	Port  uint32
	Value int32
}

// ExposureValue is the payload of IndexConfigCommonExposureValue.
type ExposureValue struct {
	Port            uint32
	EVCompensation  int32 // Q16 fixed point.
	Sensitivity     uint32
	AutoSensitivity bool
}

// WhiteBalance is a white balance control mode.
type WhiteBalance int

// White balance modes.
const (
	WhiteBalanceOff WhiteBalance = iota
	WhiteBalanceAuto
	WhiteBalanceSunlight
	WhiteBalanceCloudy
	WhiteBalanceShade
	WhiteBalanceTungsten
	WhiteBalanceFluorescent
	WhiteBalanceIncandescent
	WhiteBalanceFlash
	WhiteBalanceHorizon
)

// WhiteBalanceConfig is the payload of IndexConfigCommonWhiteBalance.
type WhiteBalanceConfig struct {
	Port uint32
	Mode WhiteBalance
}

// ImageFilter is an image filter applied by the camera.
type ImageFilter int

// Image filters.
const (
	ImageFilterNone ImageFilter = iota
	ImageFilterNoise
	ImageFilterEmboss
	ImageFilterNegative
	ImageFilterSketch
	ImageFilterOilPaint
	ImageFilterHatch
	ImageFilterGpen
	ImageFilterAntialias
	ImageFilterDeRing
	ImageFilterSolarize
)

// ImageFilterConfig is the payload of IndexConfigCommonImageFilter.
type ImageFilterConfig struct {
	Port   uint32
	Filter ImageFilter
}

// Mirror is an image mirroring mode.
type Mirror int

// Mirror modes.
const (
	MirrorNone Mirror = iota
	MirrorVertical
	MirrorHorizontal
	MirrorBoth
)

// MirrorConfig is the payload of IndexConfigCommonMirror.
type MirrorConfig struct {
	Port uint32
	Mode Mirror
}
