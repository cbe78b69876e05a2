/*
DESCRIPTION
  parse.go provides helpers to identify the NAL units in H.264 byte stream
  data.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h264

import "errors"

// NAL unit types, see ITU-T H.264 Table 7-1.
const (
	NALTypeNonIDR = 1
	NALTypeIDR    = 5
	NALTypeSEI    = 6
	NALTypeSPS    = 7
	NALTypePPS    = 8
	NALTypeAUD    = 9
)

var errNotEnoughBytes = errors.New("not enough bytes to read")

// NALTypes returns the types of the NAL units in the byte stream data n, in
// order of appearance.
func NALTypes(n []byte) []int {
	var types []int
	for i := 0; i+3 < len(n); i++ {
		if n[i] != 0x00 || n[i+1] != 0x00 || n[i+2] != 0x01 {
			continue
		}
		types = append(types, int(n[i+3]&0x1f))
		i += 3
	}
	return types
}

// NALType returns the type of the first NAL unit in n that is not an access
// unit delimiter.
func NALType(n []byte) (int, error) {
	for _, t := range NALTypes(n) {
		if t != NALTypeAUD {
			return t, nil
		}
	}
	return 0, errNotEnoughBytes
}

// IsKeyFrame reports whether n contains a coded slice of an IDR picture.
func IsKeyFrame(n []byte) bool { return contains(n, NALTypeIDR) }

// IsConfig reports whether n contains a sequence or picture parameter set.
func IsConfig(n []byte) bool { return contains(n, NALTypeSPS, NALTypePPS) }

func contains(n []byte, want ...int) bool {
	for _, t := range NALTypes(n) {
		for _, w := range want {
			if t == w {
				return true
			}
		}
	}
	return false
}
