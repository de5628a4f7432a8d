package headers

import (
	"fmt"
	"strings"

	"github.com/huginn-proxy/huginn/internal/synprobe"
)

// pclass is always 0: a SYN carries no payload, per spec.md §6.
const pclass = "0"

// FormatTCPSyn renders obs as the p0f-raw string spec.md §4.D/§6 describes:
// `4:<initial_ttl>:<ip_olen>:<mss|*>:<wsize>,<wscale|*>:<olayout>[:<quirks>:<pclass>]`.
func FormatTCPSyn(obs synprobe.SynObservation) string {
	d := decodeOptions(obs.Options())

	ittl := roundToStandardTTL(obs.IPTTL)
	olen := len(obs.Options())
	mss := mssField(d.hasMSS, d.mss)
	wsize := formatWindow(obs.TCPWindow, d.mss, d.hasMSS)
	wscale := wscaleField(d.hasWScale, d.wscale)
	olayout := strings.Join(d.layout, ",")
	quirks := encodeQuirks(obs.Quirks)

	// Every SYN observation carries a payload class (always 0, since a SYN
	// never carries data), so the optional [:quirks:pclass] tail is always
	// emitted here even when quirks is empty.
	base := fmt.Sprintf("4:%d:%d:%s:%s,%s:%s", ittl, olen, mss, wsize, wscale, olayout)
	return fmt.Sprintf("%s:%s:%s", base, quirks, pclass)
}
