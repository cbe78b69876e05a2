/*
DESCRIPTION
  scan.go provides a buffered byte scanner used by the lexer.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h264

import "io"

// scanner reads bytes from r through buf.
type scanner struct {
	buf []byte
	off int
	r   io.Reader
}

func newScanner(r io.Reader, buf []byte) *scanner {
	return &scanner{r: r, buf: buf[:0]}
}

// scanUntil appends bytes from the reader to dst up to and including the
// first delim byte. It returns the extended slice and the last byte read.
func (s *scanner) scanUntil(dst []byte, delim byte) ([]byte, byte, error) {
	for {
		rest := s.buf[s.off:]
		for i, b := range rest {
			if b == delim {
				dst = append(dst, rest[:i+1]...)
				s.off += i + 1
				return dst, b, nil
			}
		}
		dst = append(dst, rest...)
		err := s.reload()
		if err != nil {
			var last byte
			if len(dst) != 0 {
				last = dst[len(dst)-1]
			}
			return dst, last, err
		}
	}
}

func (s *scanner) readByte() (byte, error) {
	if s.off >= len(s.buf) {
		err := s.reload()
		if err != nil {
			return 0, err
		}
	}
	b := s.buf[s.off]
	s.off++
	return b, nil
}

func (s *scanner) reload() error {
	n, err := s.r.Read(s.buf[:cap(s.buf)])
	s.buf = s.buf[:n]
	s.off = 0
	if err != nil && (err != io.EOF || n == 0) {
		return err
	}
	return nil
}
