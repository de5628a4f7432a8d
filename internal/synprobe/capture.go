package synprobe

import "context"

// Capturer attaches a SYN-capture filter to a network interface and feeds
// every observed SYN into a Table. The only implementation shipped here is
// the portable libpcap backend (pcap_capture.go, grounded directly in the
// teacher's tcp.go); a kernel-resident XDP/eBPF loader per spec.md §4.A is
// named as a future backend behind this same interface but is not
// implemented (see DESIGN.md).
type Capturer interface {
	// Start attaches the filter for dstIP (zero = any) and dstPort (zero =
	// any) on iface, writing observations into table until ctx is
	// cancelled. Start returns once the filter is attached; capture
	// continues on a background goroutine.
	Start(ctx context.Context, iface string, dstIP uint32, dstPort uint16, table *Table) error
}

// quirksFromIPv4 computes the IP-layer quirk bits per spec.md §4.A step 5.
func quirksFromIPv4(df, idNonZero, reserved bool) Quirk {
	var q Quirk
	if df {
		q |= QuirkDF
		if idNonZero {
			q |= QuirkNonZeroID
		}
	} else if !idNonZero {
		q |= QuirkZeroID
	}
	if reserved {
		q |= QuirkMustBeZero
	}
	return q
}

// quirksFromTCP computes the TCP-layer quirk bits per spec.md §4.A step 5.
func quirksFromTCP(ece, cwr bool, seq uint32, ackFlag bool, ack uint32, urgFlag bool, urgPtr uint16, pushFlag bool) Quirk {
	var q Quirk
	if ece || cwr {
		q |= QuirkECN
	}
	if seq == 0 {
		q |= QuirkSeqZero
	}
	if !ackFlag && ack != 0 {
		q |= QuirkAckNonZero
	}
	if !urgFlag && urgPtr != 0 {
		q |= QuirkNonZeroUrg
	}
	if urgFlag {
		q |= QuirkUrgSet
	}
	if pushFlag {
		q |= QuirkPushSet
	}
	return q
}
