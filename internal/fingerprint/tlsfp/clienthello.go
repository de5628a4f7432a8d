// Package tlsfp reads a raw ClientHello off the wire, before any TLS
// acceptor has touched the socket, and derives the JA4 fingerprint family
// from it (spec.md §4.B).
package tlsfp

import (
	"encoding/binary"
	"errors"
)

// Extension IDs referenced directly by JA4 derivation.
const (
	extServerName        = 0
	extALPN               = 16
	extSupportedVersions  = 43
	extSignatureAlgorithms = 13
)

// ClientHello holds the fields of one parsed TLS ClientHello, in the order
// the client sent them. GREASE values are retained here; filtering happens
// at JA4-derivation time per variant.
type ClientHello struct {
	LegacyVersion       uint16
	CipherSuites        []uint16
	Extensions          []uint16
	SNI                 string
	ALPN                []string
	SupportedVersions   []uint16
	SignatureAlgorithms []uint16
}

var (
	ErrNotHandshake    = errors.New("tlsfp: not a TLS handshake record")
	ErrNotClientHello  = errors.New("tlsfp: handshake message is not a ClientHello")
	ErrTruncated       = errors.New("tlsfp: truncated ClientHello")
)

// ParseClientHello parses a single TLS record containing a ClientHello
// handshake message. data must be the full record (5-byte record header +
// record body); a record spanning multiple TCP segments should be
// reassembled by the caller (see Peek).
func ParseClientHello(data []byte) (*ClientHello, error) {
	if len(data) < 5 {
		return nil, ErrTruncated
	}
	if data[0] != 22 { // handshake content type
		return nil, ErrNotHandshake
	}
	recordLen := int(binary.BigEndian.Uint16(data[3:5]))
	if len(data) < 5+recordLen {
		return nil, ErrTruncated
	}
	hs := data[5 : 5+recordLen]
	if len(hs) < 4 {
		return nil, ErrTruncated
	}
	if hs[0] != 1 { // ClientHello handshake type
		return nil, ErrNotClientHello
	}
	hsLen := int(hs[1])<<16 | int(hs[2])<<8 | int(hs[3])
	if len(hs) < 4+hsLen {
		return nil, ErrTruncated
	}
	body := hs[4 : 4+hsLen]
	return parseBody(body)
}

func parseBody(body []byte) (*ClientHello, error) {
	ch := &ClientHello{}
	pos := 0

	if pos+2 > len(body) {
		return nil, ErrTruncated
	}
	ch.LegacyVersion = binary.BigEndian.Uint16(body[pos : pos+2])
	pos += 2

	if pos+32 > len(body) { // client random
		return nil, ErrTruncated
	}
	pos += 32

	if pos+1 > len(body) {
		return nil, ErrTruncated
	}
	sessIDLen := int(body[pos])
	pos++
	if pos+sessIDLen > len(body) {
		return nil, ErrTruncated
	}
	pos += sessIDLen

	if pos+2 > len(body) {
		return nil, ErrTruncated
	}
	cipherLen := int(binary.BigEndian.Uint16(body[pos : pos+2]))
	pos += 2
	if pos+cipherLen > len(body) || cipherLen%2 != 0 {
		return nil, ErrTruncated
	}
	for i := 0; i < cipherLen; i += 2 {
		ch.CipherSuites = append(ch.CipherSuites, binary.BigEndian.Uint16(body[pos+i:pos+i+2]))
	}
	pos += cipherLen

	if pos+1 > len(body) {
		return nil, ErrTruncated
	}
	compLen := int(body[pos])
	pos++
	if pos+compLen > len(body) {
		return nil, ErrTruncated
	}
	pos += compLen

	if pos+2 > len(body) {
		// No extensions block; a legal (if unusual) ClientHello.
		return ch, nil
	}
	extTotalLen := int(binary.BigEndian.Uint16(body[pos : pos+2]))
	pos += 2
	extEnd := pos + extTotalLen
	if extEnd > len(body) {
		return nil, ErrTruncated
	}

	for pos+4 <= extEnd {
		extType := binary.BigEndian.Uint16(body[pos : pos+2])
		extLen := int(binary.BigEndian.Uint16(body[pos+2 : pos+4]))
		pos += 4
		if pos+extLen > extEnd {
			return nil, ErrTruncated
		}
		extData := body[pos : pos+extLen]
		ch.Extensions = append(ch.Extensions, extType)

		switch extType {
		case extServerName:
			ch.SNI = parseSNI(extData)
		case extALPN:
			ch.ALPN = parseALPN(extData)
		case extSupportedVersions:
			ch.SupportedVersions = parseU16List1(extData)
		case extSignatureAlgorithms:
			ch.SignatureAlgorithms = parseU16List2(extData)
		}

		pos += extLen
	}

	return ch, nil
}

func parseSNI(data []byte) string {
	if len(data) < 5 {
		return ""
	}
	nameLen := int(binary.BigEndian.Uint16(data[3:5]))
	if 5+nameLen > len(data) {
		return ""
	}
	return string(data[5 : 5+nameLen])
}

func parseALPN(data []byte) []string {
	if len(data) < 2 {
		return nil
	}
	listLen := int(binary.BigEndian.Uint16(data[0:2]))
	var out []string
	i := 2
	for i < 2+listLen && i < len(data) {
		n := int(data[i])
		i++
		if i+n > len(data) {
			break
		}
		out = append(out, string(data[i:i+n]))
		i += n
	}
	return out
}

// parseU16List1 parses a 1-byte-length-prefixed list of uint16s
// (supported_versions).
func parseU16List1(data []byte) []uint16 {
	if len(data) < 1 {
		return nil
	}
	n := int(data[0])
	var out []uint16
	for i := 1; i+1 < len(data) && i < 1+n; i += 2 {
		out = append(out, binary.BigEndian.Uint16(data[i:i+2]))
	}
	return out
}

// parseU16List2 parses a 2-byte-length-prefixed list of uint16s
// (signature_algorithms).
func parseU16List2(data []byte) []uint16 {
	if len(data) < 2 {
		return nil
	}
	n := int(binary.BigEndian.Uint16(data[0:2]))
	var out []uint16
	for i := 2; i+1 < len(data) && i < 2+n; i += 2 {
		out = append(out, binary.BigEndian.Uint16(data[i:i+2]))
	}
	return out
}
