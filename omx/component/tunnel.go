/*
DESCRIPTION
  tunnel.go provides tunnels between component ports.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package component

import (
	"fmt"

	"github.com/ausocean/omxcam/omx"
)

// Tunnel is a direct connection from an output port of one component to an
// input port of another. Buffers on tunneled ports belong to the runtime.
type Tunnel struct {
	Src     *Component
	SrcPort uint32
	Dst     *Component
	DstPort uint32
}

func (t *Tunnel) String() string {
	return fmt.Sprintf("%s:%d -> %s:%d", t.Src.name, t.SrcPort, t.Dst.name, t.DstPort)
}

// SetupTunnel connects the output port srcPort of src to the input port
// dstPort of dst.
func SetupTunnel(src *Component, srcPort uint32, dst *Component, dstPort uint32) (*Tunnel, error) {
	if src.released || dst.released {
		return nil, ErrReleased
	}
	sp, err := src.port(srcPort)
	if err != nil {
		return nil, err
	}
	dp, err := dst.port(dstPort)
	if err != nil {
		return nil, err
	}
	t := &Tunnel{Src: src, SrcPort: srcPort, Dst: dst, DstPort: dstPort}
	switch {
	case sp.dir != omx.DirOutput || dp.dir != omx.DirInput:
		return nil, fmt.Errorf("tunnel %v: %w", t, ErrDirection)
	case sp.tunnel != nil || dp.tunnel != nil:
		return nil, fmt.Errorf("tunnel %v: %w", t, ErrTunneled)
	case sp.buf != nil || dp.buf != nil:
		return nil, fmt.Errorf("tunnel %v: %w", t, ErrBufferAllocated)
	}

	err = src.rt.SetupTunnel(src.h, srcPort, dst.h, dstPort)
	if err != nil {
		return nil, omx.Check(err, "set up tunnel %v", t)
	}
	sp.tunnel = t
	dp.tunnel = t
	src.debug("tunnel set up", "tunnel", t.String())
	return t, nil
}
