package h2fp

import (
	"fmt"
	"strings"

	"golang.org/x/net/http2/hpack"
)

// Signature computes the Akamai-style fingerprint string from every frame
// parsed across the observer's captured buffer (spec.md §4.C "Akamai
// signature format"): `<settings>|<window-update>|<priority>|<pseudo-order>`.
func signature(frames []frame) string {
	settings := settingsSegment(frames)
	windowUpdate := windowUpdateSegment(frames)
	priority := prioritySegment(frames)
	pseudoOrder := pseudoHeaderSegment(frames)

	return strings.Join([]string{settings, windowUpdate, priority, pseudoOrder}, "|")
}

func settingsSegment(frames []frame) string {
	var parts []string
	for _, f := range frames {
		if f.typ != frameSettings || f.flags&flagACK != 0 {
			continue
		}
		for i := 0; i+6 <= len(f.payload); i += 6 {
			id := uint16(f.payload[i])<<8 | uint16(f.payload[i+1])
			value := uint32(f.payload[i+2])<<24 | uint32(f.payload[i+3])<<16 | uint32(f.payload[i+4])<<8 | uint32(f.payload[i+5])
			parts = append(parts, fmt.Sprintf("%d:%d", id, value))
		}
	}
	return strings.Join(parts, ";")
}

func windowUpdateSegment(frames []frame) string {
	for _, f := range frames {
		if f.typ != frameWindowUpdate || f.streamID != 0 {
			continue
		}
		if len(f.payload) < 4 {
			continue
		}
		increment := uint32(f.payload[0])<<24 | uint32(f.payload[1])<<16 | uint32(f.payload[2])<<8 | uint32(f.payload[3])
		increment &= 0x7fffffff
		return fmt.Sprintf("%d", increment)
	}
	return ""
}

func prioritySegment(frames []frame) string {
	for _, f := range frames {
		if f.typ != framePriority || len(f.payload) < 5 {
			continue
		}
		depAndExclusive := uint32(f.payload[0])<<24 | uint32(f.payload[1])<<16 | uint32(f.payload[2])<<8 | uint32(f.payload[3])
		exclusive := (depAndExclusive >> 31) & 1
		dep := depAndExclusive & 0x7fffffff
		weight := f.payload[4]
		return fmt.Sprintf("%d:%d:%d:%d", f.streamID, exclusive, dep, weight)
	}
	return ""
}

// pseudoLetters maps HTTP/2 pseudo-header names to the single-letter codes
// spec.md §4.C uses for the ordering segment.
var pseudoLetters = map[string]string{
	":method":    "m",
	":path":      "p",
	":authority": "a",
	":scheme":    "s",
}

func pseudoHeaderSegment(frames []frame) string {
	for _, f := range frames {
		if f.typ != frameHeaders || f.streamID == 0 {
			continue
		}
		block := stripPaddingAndPriority(f)
		if block == nil {
			continue
		}
		order := decodePseudoOrder(block)
		if order != "" {
			return order
		}
	}
	return ""
}

func stripPaddingAndPriority(f frame) []byte {
	payload := f.payload
	pos := 0
	padLen := 0
	if f.flags&flagPadded != 0 {
		if len(payload) < 1 {
			return nil
		}
		padLen = int(payload[0])
		pos = 1
	}
	if f.flags&flagPriority != 0 {
		pos += 5
	}
	if pos+padLen > len(payload) || pos > len(payload)-padLen {
		return nil
	}
	return payload[pos : len(payload)-padLen]
}

// decodePseudoOrder runs a full HPACK decode over block, recording the
// order in which pseudo-headers first appear. Unlike the teacher's
// heuristic byte-pattern scan, this drives golang.org/x/net/http2/hpack's
// decoder directly so dynamic-table references and literal encodings are
// both handled correctly.
func decodePseudoOrder(block []byte) string {
	var order []string
	seen := make(map[string]bool)

	dec := hpack.NewDecoder(4096, func(f hpack.HeaderField) {
		letter, ok := pseudoLetters[f.Name]
		if !ok || seen[letter] {
			return
		}
		seen[letter] = true
		order = append(order, letter)
	})

	if _, err := dec.Write(block); err != nil {
		// Partial/invalid HPACK: return whatever order we recovered before
		// the error, which may be empty.
	}

	return strings.Join(order, ",")
}
