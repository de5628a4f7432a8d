// Package synprobe captures TCP SYN header fields for incoming connections
// and makes them available to the connection orchestrator keyed by
// (src_ip, src_port). The capture runs as a userspace libpcap filter
// (pcap_capture.go, grounded in the teacher's own gopacket capture), which
// populates the LRU Table.
package synprobe

import "fmt"

// Quirk is a single observed TCP/IP header anomaly bit.
type Quirk uint16

const (
	QuirkDF         Quirk = 1 << iota // IPv4 don't-fragment set
	QuirkNonZeroID                    // IPv4 identification nonzero while DF set
	QuirkZeroID                       // IPv4 identification zero while DF clear
	QuirkMustBeZero                   // IPv4 reserved/evil bit set
	QuirkECN                          // TCP ECE or CWR set
	QuirkSeqZero                      // TCP sequence number is zero
	QuirkAckNonZero                   // TCP ACK number nonzero on a SYN (ACK flag clear)
	QuirkNonZeroUrg                   // TCP urgent pointer nonzero while URG clear
	QuirkUrgSet                       // TCP URG flag set
	QuirkPushSet                      // TCP PSH flag set
)

// MaxOptionsBytes bounds the captured TCP options per spec.md §3.
const MaxOptionsBytes = 40

// TableCapacity is the LRU table's fixed capacity per spec.md §3.
const TableCapacity = 8192

// SynObservation is a snapshot of one captured SYN, matching spec.md §3's
// SynObservation record. The pcap capturer fills it field by field;
// TestSynObservationWireSize checks that its size does not fall below the
// sum of the field widths.
type SynObservation struct {
	SrcAddr       uint32          // IPv4, network byte order as captured
	SrcPort       uint16          // network byte order as captured
	TCPWindow     uint16          // host order
	IPTTL         uint8
	IPOptionsLen  uint8           // length actually captured, <= MaxOptionsBytes
	OptionsBytes  [MaxOptionsBytes]byte
	Quirks        Quirk
	Tick          uint64 // strictly monotone across writes; may wrap
}

// Key reconstructs the 64-bit LRU table key for this observation:
// (src_addr_network_order << 16) | src_port_network_order, per spec.md §6.
func (s SynObservation) Key() uint64 {
	return Key(s.SrcAddr, s.SrcPort)
}

// Key builds the 64-bit table key from a network-order IPv4 address and
// network-order TCP port, identically on the kernel and userspace sides.
func Key(srcAddrNetworkOrder uint32, srcPortNetworkOrder uint16) uint64 {
	return (uint64(srcAddrNetworkOrder) << 16) | uint64(srcPortNetworkOrder)
}

// Options returns the captured option bytes, trimmed to the recorded
// length. No zero-padding interpretation is applied beyond the length.
func (s SynObservation) Options() []byte {
	n := int(s.IPOptionsLen)
	if n > MaxOptionsBytes {
		n = MaxOptionsBytes
	}
	return s.OptionsBytes[:n]
}

func (s SynObservation) String() string {
	return fmt.Sprintf("SynObservation{addr=%08x port=%d win=%d ttl=%d olen=%d quirks=%04x tick=%d}",
		s.SrcAddr, s.SrcPort, s.TCPWindow, s.IPTTL, s.IPOptionsLen, s.Quirks, s.Tick)
}
