/*
DESCRIPTION
  errors.go provides the vendor result codes, their decoded descriptions and
  the CommandError type used to report failed runtime calls.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package omx

import (
	"errors"
	"fmt"
)

// Result is a result code returned by a Runtime. ErrorNone is never
// returned as an error; all other values are.
type Result uint32

// Result codes.
const (
	ErrorNone                               Result = 0
	ErrorInsufficientResources              Result = 0x80001000
	ErrorUndefined                          Result = 0x80001001
	ErrorInvalidComponentName               Result = 0x80001002
	ErrorComponentNotFound                  Result = 0x80001003
	ErrorInvalidComponent                   Result = 0x80001004
	ErrorBadParameter                       Result = 0x80001005
	ErrorNotImplemented                     Result = 0x80001006
	ErrorUnderflow                          Result = 0x80001007
	ErrorOverflow                           Result = 0x80001008
	ErrorHardware                           Result = 0x80001009
	ErrorInvalidState                       Result = 0x8000100a
	ErrorStreamCorrupt                      Result = 0x8000100b
	ErrorPortsNotCompatible                 Result = 0x8000100c
	ErrorResourcesLost                      Result = 0x8000100d
	ErrorNoMore                             Result = 0x8000100e
	ErrorVersionMismatch                    Result = 0x8000100f
	ErrorNotReady                           Result = 0x80001010
	ErrorTimeout                            Result = 0x80001011
	ErrorSameState                          Result = 0x80001012
	ErrorResourcesPreempted                 Result = 0x80001013
	ErrorPortUnresponsiveDuringAllocation   Result = 0x80001014
	ErrorPortUnresponsiveDuringDeallocation Result = 0x80001015
	ErrorPortUnresponsiveDuringStop         Result = 0x80001016
	ErrorIncorrectStateTransition           Result = 0x80001017
	ErrorIncorrectStateOperation            Result = 0x80001018
	ErrorUnsupportedSetting                 Result = 0x80001019
	ErrorUnsupportedIndex                   Result = 0x8000101a
	ErrorBadPortIndex                       Result = 0x8000101b
	ErrorPortUnpopulated                    Result = 0x8000101c
)

var descriptions = map[Result]string{
	ErrorNone:                     "no error",
	ErrorInsufficientResources:    "insufficient resources",
	ErrorComponentNotFound:        "component not found",
	ErrorBadParameter:             "bad parameter",
	ErrorNotImplemented:           "not implemented",
	ErrorHardware:                 "hardware error",
	ErrorInvalidState:             "invalid state",
	ErrorPortsNotCompatible:       "ports not compatible",
	ErrorSameState:                "component already in requested state",
	ErrorIncorrectStateTransition: "unallowed state transition",
	ErrorIncorrectStateOperation:  "invalid state while trying to perform command",
	ErrorUnsupportedIndex:         "unsupported index",
	ErrorBadPortIndex:             "bad port index, i.e. incorrect port",
	ErrorPortUnpopulated:          "port unpopulated",
}

// Describe returns a human readable reason for the result code.
func (r Result) Describe() string {
	if d, ok := descriptions[r]; ok {
		return d
	}
	return "(no description)"
}

func (r Result) Error() string {
	return fmt.Sprintf("0x%08x %s", uint32(r), r.Describe())
}

// CommandError reports a failed runtime call. Op names the call.
type CommandError struct {
	Op  string
	Err error
}

func (e *CommandError) Error() string { return "omx: " + e.Op + ": " + e.Err.Error() }

func (e *CommandError) Unwrap() error { return e.Err }

// Code returns the Result carried by the error, or ErrorUndefined if the
// runtime failed without one.
func (e *CommandError) Code() Result {
	var r Result
	if errors.As(e.Err, &r) {
		return r
	}
	return ErrorUndefined
}

// Check wraps a non-nil err from a runtime call in a CommandError whose Op
// is formed from format and args. A nil err gives nil.
func Check(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &CommandError{Op: fmt.Sprintf(format, args...), Err: err}
}
