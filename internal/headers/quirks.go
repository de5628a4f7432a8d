package headers

import (
	"strings"

	"github.com/huginn-proxy/huginn/internal/synprobe"
)

// quirkTokens assigns a short p0f-raw-style token to each bit spec.md §3
// defines. The exact vocabulary is our own (spec.md does not pin specific
// quirk spellings, only the bit set itself), kept stable for snapshot tests.
var quirkTokens = []struct {
	bit   synprobe.Quirk
	token string
}{
	{synprobe.QuirkDF, "df"},
	{synprobe.QuirkNonZeroID, "id+"},
	{synprobe.QuirkZeroID, "id-"},
	{synprobe.QuirkMustBeZero, "mbz"},
	{synprobe.QuirkECN, "ecn"},
	{synprobe.QuirkSeqZero, "seq0"},
	{synprobe.QuirkAckNonZero, "ack+"},
	{synprobe.QuirkNonZeroUrg, "uptr+"},
	{synprobe.QuirkUrgSet, "urg"},
	{synprobe.QuirkPushSet, "push"},
}

func encodeQuirks(q synprobe.Quirk) string {
	var toks []string
	for _, qt := range quirkTokens {
		if q&qt.bit != 0 {
			toks = append(toks, qt.token)
		}
	}
	return strings.Join(toks, ",")
}
