// Package h2fp implements the streaming HTTP/2 frame observer that derives
// an Akamai-style ordering fingerprint from a client's opening frames
// without buffering the whole request (spec.md §4.C).
package h2fp

import "encoding/binary"

// HTTP/2 frame types relevant to the Akamai signature.
const (
	frameData         = 0x0
	frameHeaders      = 0x1
	framePriority     = 0x2
	frameSettings     = 0x4
	frameWindowUpdate = 0x8
)

const flagACK = 0x1
const flagEndHeaders = 0x4
const flagPadded = 0x8
const flagPriority = 0x20

// connectionPreface is the 24-byte literal every HTTP/2 connection opens
// with (spec.md GLOSSARY "Connection preface").
var connectionPreface = []byte("PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n")

// frame is one parsed HTTP/2 frame header plus its payload slice (a view
// into the caller's buffer, not a copy).
type frame struct {
	length   uint32
	typ      uint8
	flags    uint8
	streamID uint32
	payload  []byte
}

// parseFrames parses as many complete 9-byte-header frames as are present
// in data starting at offset 0, skipping a leading connection preface if
// present. It returns the frames it was able to parse and the number of
// bytes consumed; a trailing partial frame is left unconsumed so the next
// call (with more data appended) can complete it, per spec.md §4.C's
// "(frames_seen_in_this_call, bytes_consumed)" contract.
func parseFrames(data []byte) ([]frame, int) {
	consumed := 0
	if len(data) >= len(connectionPreface) && string(data[:len(connectionPreface)]) == string(connectionPreface) {
		consumed = len(connectionPreface)
	}

	var frames []frame
	pos := consumed
	for pos+9 <= len(data) {
		length := uint32(data[pos])<<16 | uint32(data[pos+1])<<8 | uint32(data[pos+2])
		total := 9 + int(length)
		if pos+total > len(data) {
			break // partial frame; wait for more bytes
		}
		f := frame{
			length:   length,
			typ:      data[pos+3],
			flags:    data[pos+4],
			streamID: binary.BigEndian.Uint32(data[pos+5:pos+9]) & 0x7fffffff,
			payload:  data[pos+9 : pos+total],
		}
		frames = append(frames, f)
		pos += total
	}
	return frames, pos
}
