/*
DESCRIPTION
  sink.go provides the output side of the capture pipeline.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package capture

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ausocean/utils/ioext"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Stdout names standard output in an output list.
const Stdout = "-"

// IOError is a failed or short write of encoded data.
type IOError struct {
	Want  int
	Wrote int
	Err   error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to write to output: wrote %d of %d bytes: %v", e.Wrote, e.Want, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// NewSink returns a WriteCloser that writes to each of ws in turn and closes
// all of them on Close.
func NewSink(ws ...io.WriteCloser) io.WriteCloser {
	if len(ws) == 1 {
		return ws[0]
	}
	return ioext.MultiWriteCloser(ws...)
}

// OpenSink opens the outputs named in the comma separated list paths and
// combines them with NewSink. Stdout, or an empty list, selects stdout,
// which is refused if it is a terminal since the output is a raw bitstream.
// Files are created or truncated.
func OpenSink(paths string, stdout *os.File) (io.WriteCloser, error) {
	var names []string
	for _, p := range strings.Split(paths, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			names = append(names, p)
		}
	}
	if len(names) == 0 {
		names = []string{Stdout}
	}

	var ws []io.WriteCloser
	for _, name := range names {
		w, err := openOutput(name, stdout)
		if err != nil {
			for _, w := range ws {
				err = multierr.Append(err, w.Close())
			}
			return nil, err
		}
		ws = append(ws, w)
	}
	return NewSink(ws...), nil
}

func openOutput(name string, stdout *os.File) (io.WriteCloser, error) {
	if name != Stdout {
		f, err := os.Create(name)
		if err != nil {
			return nil, errors.Wrapf(err, "could not create output %s", name)
		}
		return f, nil
	}
	fd := stdout.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return nil, errors.New("refusing to write video to a terminal, redirect standard output or use -output")
	}
	return stdout, nil
}
