/*
DESCRIPTION
  models.go describes the components known to the simulated runtime and the
  ports they expose.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package sim

import (
	"strings"

	"github.com/ausocean/omxcam/omx"
)

// Default port geometry.
const (
	defaultWidth     = 640
	defaultHeight    = 480
	defaultFramerate = 30 << 16
	videoAlignment   = 16
	encodedSize      = 64 << 10
	clockSize        = 16
)

type portModel struct {
	index  uint32
	dir    omx.Dir
	domain omx.Domain
	coding omx.Coding
	color  omx.ColorFormat
	size   uint32 // Used for ports carrying compressed or non-video data.
	align  uint32
	min    uint32
}

type model struct {
	ports []portModel

	// camera components raise a parameter changed event for the device
	// number when asked to.
	camera bool

	// encoder is the output port filled from the frame source, or zero.
	encoder uint32
}

var models = map[string]*model{
	"camera": {
		ports: []portModel{
			{index: 70, dir: omx.DirOutput, domain: omx.DomainVideo, color: omx.ColorYUV420PackedPlanar, align: videoAlignment, min: 1},
			{index: 71, dir: omx.DirOutput, domain: omx.DomainVideo, color: omx.ColorYUV420PackedPlanar, align: videoAlignment, min: 1},
			{index: 72, dir: omx.DirOutput, domain: omx.DomainImage, color: omx.ColorYUV420PackedPlanar, align: videoAlignment, min: 1},
			{index: 73, dir: omx.DirInput, domain: omx.DomainOther, size: clockSize, align: 4, min: 1},
		},
		camera: true,
	},
	"video_encode": {
		ports: []portModel{
			{index: 200, dir: omx.DirInput, domain: omx.DomainVideo, color: omx.ColorYUV420PackedPlanar, align: videoAlignment, min: 1},
			{index: 201, dir: omx.DirOutput, domain: omx.DomainVideo, coding: omx.CodingAVC, size: encodedSize, align: 16, min: 1},
		},
		encoder: 201,
	},
	"null_sink": {
		ports: []portModel{
			{index: 240, dir: omx.DirInput, domain: omx.DomainVideo, color: omx.ColorYUV420PackedPlanar, align: videoAlignment, min: 1},
			{index: 241, dir: omx.DirInput, domain: omx.DomainImage, color: omx.ColorYUV420PackedPlanar, align: videoAlignment, min: 1},
		},
	},
}

// lookup returns the model for a full component name and its short name.
func lookup(name string) (*model, string, bool) {
	if !strings.HasPrefix(name, omx.VendorPrefix) {
		return nil, "", false
	}
	short := strings.TrimPrefix(name, omx.VendorPrefix)
	m, ok := models[short]
	return m, short, ok
}

// groups returns the port ranges of m, one per run of ports sharing a domain.
func (m *model) groups() []omx.PortRange {
	var g []omx.PortRange
	for _, p := range m.ports {
		n := len(g)
		if n != 0 && g[n-1].Domain == p.domain && g[n-1].Start+g[n-1].Count == p.index {
			g[n-1].Count++
			continue
		}
		g = append(g, omx.PortRange{Domain: p.domain, Start: p.index, Count: 1})
	}
	return g
}

// definition returns the initial definition of the port described by pm.
// Ports start enabled.
func (pm portModel) definition() omx.PortDefinition {
	def := omx.PortDefinition{
		Port:              pm.index,
		Dir:               pm.dir,
		Enabled:           true,
		BufferCountActual: pm.min,
		BufferCountMin:    pm.min,
		BufferAlignment:   pm.align,
		Domain:            pm.domain,
	}
	if pm.domain == omx.DomainVideo || pm.domain == omx.DomainImage {
		def.Video = omx.VideoDefinition{
			Width:       defaultWidth,
			Height:      defaultHeight,
			Stride:      defaultWidth,
			SliceHeight: defaultHeight,
			Framerate:   defaultFramerate,
			Compression: pm.coding,
			Color:       pm.color,
		}
	}
	def.BufferSize = bufferSize(def, pm.size)
	return def
}

// bufferSize returns the size a buffer for a port with definition def must
// have. Uncompressed video needs a YUV 4:2:0 frame; everything else uses
// the fixed size of the port.
func bufferSize(def omx.PortDefinition, fixed uint32) uint32 {
	if fixed != 0 || def.Video.Compression != omx.CodingUnused {
		return fixed
	}
	stride := def.Video.Stride
	if stride < 0 {
		stride = -stride
	}
	h := def.Video.SliceHeight
	if h < def.Video.Height {
		h = def.Video.Height
	}
	h = (h + 15) &^ 15
	return uint32(stride) * h * 3 / 2
}
