package h2fp

import "testing"

func buildFrame(typ, flags uint8, streamID uint32, payload []byte) []byte {
	out := make([]byte, 9+len(payload))
	l := len(payload)
	out[0] = byte(l >> 16)
	out[1] = byte(l >> 8)
	out[2] = byte(l)
	out[3] = typ
	out[4] = flags
	out[5] = byte(streamID >> 24)
	out[6] = byte(streamID >> 16)
	out[7] = byte(streamID >> 8)
	out[8] = byte(streamID)
	copy(out[9:], payload)
	return out
}

func TestParseFramesSkipsPreface(t *testing.T) {
	data := append(append([]byte{}, connectionPreface...), buildFrame(frameSettings, 0, 0, nil)...)
	frames, consumed := parseFrames(data)
	if len(frames) != 1 {
		t.Fatalf("got %d frames", len(frames))
	}
	if consumed != len(data) {
		t.Fatalf("got consumed=%d, want %d", consumed, len(data))
	}
}

func TestParseFramesLeavesPartialFrameForNextCall(t *testing.T) {
	full := buildFrame(frameSettings, 0, 0, []byte{0, 3, 0, 0, 0, 100})
	partial := full[:len(full)-2] // truncate within the payload

	frames, consumed := parseFrames(partial)
	if len(frames) != 0 {
		t.Fatalf("expected 0 complete frames, got %d", len(frames))
	}
	if consumed != 0 {
		t.Fatalf("expected 0 bytes consumed for a partial frame, got %d", consumed)
	}
}

func TestParseFramesMultipleFramesOneCall(t *testing.T) {
	data := append(
		buildFrame(frameSettings, 0, 0, []byte{0, 3, 0, 0, 0, 100}),
		buildFrame(frameWindowUpdate, 0, 0, []byte{0, 0, 0, 10})...,
	)
	frames, consumed := parseFrames(data)
	if len(frames) != 2 {
		t.Fatalf("got %d frames", len(frames))
	}
	if consumed != len(data) {
		t.Fatalf("got consumed=%d, want %d", consumed, len(data))
	}
}
