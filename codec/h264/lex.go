/*
DESCRIPTION
  lex.go provides a lexer that splits an H.264 byte stream into the units an
  encoder would emit in separate output buffers.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package h264 provides an H.264 byte stream lexer and NAL unit helpers.
package h264

import (
	"io"
)

const (
	readSize = 4 << 10 // Standard file buffer size.
	unitSize = 8 << 10
)

// Lexer splits an H.264 byte stream into units. A unit ends after a coded
// slice (NAL types 1 and 5), supplemental enhancement information (6) or a
// picture parameter set (8), so parameter sets are grouped together and each
// picture is its own unit. Concatenating the units gives back the stream.
type Lexer struct {
	sc    *scanner
	buf   []byte
	split bool
	err   error
}

// NewLexer returns a Lexer reading from src.
func NewLexer(src io.Reader) *Lexer {
	return &Lexer{
		sc:  newScanner(src, make([]byte, readSize)),
		buf: make([]byte, 0, unitSize),
	}
}

// Next returns the next unit. It returns io.EOF once the stream has been
// consumed; a trailing unit without a following start code is returned
// before that.
func (l *Lexer) Next() ([]byte, error) {
	for l.err == nil {
		var b byte
		l.buf, b, l.err = l.sc.scanUntil(l.buf, 0x00)
		if l.err != nil {
			break
		}

		// n counts the run of zeros ending at b.
		for n := 1; b == 0x00; {
			b, l.err = l.sc.readByte()
			if l.err != nil {
				break
			}
			l.buf = append(l.buf, b)
			if b == 0x00 {
				n++
				continue
			}

			// A start code is two or more zeros followed by a one. Zeros
			// beyond the third are trailing zeros of the preceding unit.
			if b != 0x01 || n < 2 {
				break
			}

			var unit []byte
			if l.split {
				cut := len(l.buf) - min(n, 3) - 1
				unit = l.buf[:cut]
				l.buf = append(make([]byte, 0, unitSize), l.buf[cut:]...)
				l.split = false
			}

			b, l.err = l.sc.readByte()
			if l.err == nil {
				l.buf = append(l.buf, b)
				switch b & 0x1f {
				case NALTypeNonIDR, NALTypeIDR, NALTypeSEI, NALTypePPS:
					l.split = true
				}
			}
			if unit != nil {
				return unit, nil
			}
			break
		}
	}

	if l.err == io.EOF && len(l.buf) != 0 {
		unit := l.buf
		l.buf = nil
		return unit, nil
	}
	return nil, l.err
}
