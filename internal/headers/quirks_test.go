package headers

import (
	"testing"

	"github.com/huginn-proxy/huginn/internal/synprobe"
)

func TestEncodeQuirksEmpty(t *testing.T) {
	if got := encodeQuirks(0); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestEncodeQuirksOrderMatchesBitDeclarationOrder(t *testing.T) {
	got := encodeQuirks(synprobe.QuirkPushSet | synprobe.QuirkDF)
	if got != "df,push" {
		t.Fatalf("got %q", got)
	}
}

func TestEncodeQuirksAllBits(t *testing.T) {
	all := synprobe.QuirkDF | synprobe.QuirkNonZeroID | synprobe.QuirkZeroID |
		synprobe.QuirkMustBeZero | synprobe.QuirkECN | synprobe.QuirkSeqZero |
		synprobe.QuirkAckNonZero | synprobe.QuirkNonZeroUrg | synprobe.QuirkUrgSet |
		synprobe.QuirkPushSet
	got := encodeQuirks(all)
	want := "df,id+,id-,mbz,ecn,seq0,ack+,uptr+,urg,push"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
