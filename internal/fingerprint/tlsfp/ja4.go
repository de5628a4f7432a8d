package tlsfp

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Ja4Artifact is the four JA4 variants for one ClientHello, matching
// spec.md §3's Ja4Artifact record. All four are always populated together;
// Derive never returns a partially filled artifact.
type Ja4Artifact struct {
	Ja4   string
	Ja4r  string
	Ja4o  string
	Ja4or string
}

// Derive computes all four JA4 variants from a single parsed ClientHello,
// per the table in spec.md §4.B: ja4/ja4o sort cipher suites and
// extensions before encoding, ja4r/ja4or preserve wire order; ja4/ja4r
// SHA-256-prefix the cipher/extension segments, ja4o/ja4or emit raw hex.
func Derive(ch *ClientHello) Ja4Artifact {
	front := frontSegment(ch)

	sortedCiphers := sortedCopy(filterGREASE(ch.CipherSuites))
	origCiphers := filterGREASE(ch.CipherSuites)

	sortedExts := sortedCopy(filterSNIALPNAndGREASE(ch.Extensions))
	origExts := filterSNIALPNAndGREASE(ch.Extensions)

	sigAlgs := ch.SignatureAlgorithms

	return Ja4Artifact{
		Ja4:   front + "_" + hashSegment(sortedCiphers) + "_" + hashSegment(appendSigAlgs(sortedExts, sigAlgs)),
		Ja4r:  front + "_" + hashSegment(origCiphers) + "_" + hashSegment(appendSigAlgs(origExts, sigAlgs)),
		Ja4o:  front + "_" + hexSegment(sortedCiphers) + "_" + hexSegment(appendSigAlgs(sortedExts, sigAlgs)),
		Ja4or: front + "_" + hexSegment(origCiphers) + "_" + hexSegment(appendSigAlgs(origExts, sigAlgs)),
	}
}

// frontSegment builds the shared prefix: protocol, version, SNI presence,
// cipher/extension counts, and first ALPN value — identical across all
// four variants per spec.md §4.B.
func frontSegment(ch *ClientHello) string {
	proto := "t" // TCP-carried TLS; QUIC ClientHellos are out of scope.

	ver := "00"
	if len(ch.SupportedVersions) > 0 {
		ver = versionCode(highestVersion(ch.SupportedVersions))
	} else {
		ver = versionCode(ch.LegacyVersion)
	}

	sniFlag := "i"
	if ch.SNI != "" {
		sniFlag = "d"
	}

	cipherCount := clampCount(len(filterGREASE(ch.CipherSuites)))
	extCount := clampCount(len(filterGREASE(ch.Extensions)))

	alpnFirst := "00"
	if len(ch.ALPN) > 0 {
		alpnFirst = alpnCode(ch.ALPN[0])
	}

	return fmt.Sprintf("%s%s%s%s%s%s", proto, ver, sniFlag, cipherCount, extCount, alpnFirst)
}

func highestVersion(versions []uint16) uint16 {
	var best uint16
	for _, v := range versions {
		if isGREASE(v) {
			continue
		}
		if v > best {
			best = v
		}
	}
	return best
}

func versionCode(v uint16) string {
	switch v {
	case 0x0304:
		return "13"
	case 0x0303:
		return "12"
	case 0x0302:
		return "11"
	case 0x0301:
		return "10"
	default:
		return "00"
	}
}

func clampCount(n int) string {
	if n > 99 {
		n = 99
	}
	return fmt.Sprintf("%02d", n)
}

func alpnCode(proto string) string {
	if len(proto) >= 2 {
		return proto[:2]
	}
	if len(proto) == 1 {
		return proto + "0"
	}
	return "00"
}

func filterSNIALPNAndGREASE(exts []uint16) []uint16 {
	out := make([]uint16, 0, len(exts))
	for _, e := range exts {
		if e == extServerName || e == extALPN || isGREASE(e) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func sortedCopy(vals []uint16) []uint16 {
	out := make([]uint16, len(vals))
	copy(out, vals)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func appendSigAlgs(vals []uint16, sigAlgs []uint16) []uint16 {
	if len(sigAlgs) == 0 {
		return vals
	}
	out := make([]uint16, 0, len(vals)+len(sigAlgs)+1)
	out = append(out, vals...)
	// A sentinel separates extensions from signature algorithms in the hex
	// join below (hexSegment/hashSegment special-case this marker).
	out = append(out, sigAlgSeparator)
	out = append(out, sigAlgs...)
	return out
}

// sigAlgSeparator cannot collide with a real extension or cipher-suite ID
// because those are constrained to valid uint16 wire values observed in a
// ClientHello; 0xFFFF is reserved/unassigned in the IANA TLS registries
// this proxy targets.
const sigAlgSeparator uint16 = 0xFFFF

func hexJoin(vals []uint16) string {
	parts := make([]string, 0, len(vals))
	for _, v := range vals {
		if v == sigAlgSeparator {
			parts = append(parts, "_")
			continue
		}
		parts = append(parts, fmt.Sprintf("%04x", v))
	}
	return strings.Join(parts, ",")
}

func hexSegment(vals []uint16) string {
	return hexJoin(vals)
}

func hashSegment(vals []uint16) string {
	sum := sha256.Sum256([]byte(hexJoin(vals)))
	return hex.EncodeToString(sum[:])[:12]
}
