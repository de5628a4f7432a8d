//go:build !noLibpcap

package synprobe

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
)

// PcapCapturer is the portable SYN-capture backend built on libpcap,
// grounded directly in the teacher's tcp.go processTCPPacket pipeline. It
// filters and records SYNs in userspace and is the only Capturer in this
// package.
type PcapCapturer struct {
	tick atomic.Uint64
}

var _ Capturer = (*PcapCapturer)(nil)

// Start opens iface in promiscuous mode, installs a BPF filter selecting
// only non-fragmented IPv4 SYN-only segments to (dstIP, dstPort), and
// streams matching packets into table until ctx is cancelled.
func (c *PcapCapturer) Start(ctx context.Context, iface string, dstIP uint32, dstPort uint16, table *Table) error {
	handle, err := pcap.OpenLive(iface, 1600, true, pcap.BlockForever)
	if err != nil {
		return fmt.Errorf("synprobe: open %s: %w", iface, err)
	}

	filter := "ip and tcp and tcp[tcpflags] & tcp-syn != 0 and tcp[tcpflags] & tcp-ack == 0"
	if dstPort != 0 {
		filter = fmt.Sprintf("tcp dst port %d and %s", dstPort, filter)
	}
	if err := handle.SetBPFFilter(filter); err != nil {
		handle.Close()
		return fmt.Errorf("synprobe: set BPF filter on %s: %w", iface, err)
	}

	go func() {
		defer handle.Close()
		src := gopacket.NewPacketSource(handle, handle.LinkType())
		packets := src.Packets()
		for {
			select {
			case <-ctx.Done():
				return
			case packet, ok := <-packets:
				if !ok {
					return
				}
				c.process(packet, dstIP, dstPort, table)
			}
		}
	}()
	return nil
}

func (c *PcapCapturer) process(packet gopacket.Packet, dstIP uint32, dstPort uint16, table *Table) {
	ipLayer := packet.Layer(layers.LayerTypeIPv4)
	if ipLayer == nil {
		return // non-IPv4, including IPv6 (out of scope per spec.md §1), passed through
	}
	ip := ipLayer.(*layers.IPv4)

	if ip.Flags&layers.IPv4MoreFragments != 0 || ip.FragOffset != 0 {
		return // fragmented
	}

	tcpLayer := packet.Layer(layers.LayerTypeTCP)
	if tcpLayer == nil {
		return
	}
	tcp := tcpLayer.(*layers.TCP)

	if !tcp.SYN || tcp.ACK {
		return // not SYN-only
	}
	if dstIP != 0 && be32(ip.DstIP) != dstIP {
		return
	}
	if dstPort != 0 && uint16(tcp.DstPort) != dstPort {
		return
	}

	obs := SynObservation{
		SrcAddr:   be32(ip.SrcIP),
		SrcPort:   uint16(tcp.SrcPort),
		TCPWindow: tcp.Window,
		IPTTL:     ip.TTL,
		Quirks: quirksFromIPv4(ip.Flags&layers.IPv4DontFragment != 0, ip.Id != 0, ip.Flags&0x4 != 0) |
			quirksFromTCP(tcp.ECE, tcp.CWR, tcp.Seq, tcp.ACK, tcp.Ack, tcp.URG, tcp.UrgentPointer, tcp.PSH),
		Tick: c.tick.Add(1),
	}

	optBytes := encodeTCPOptions(tcp.Options)
	obs.IPOptionsLen = uint8(len(optBytes))
	copy(obs.OptionsBytes[:], optBytes)

	table.Insert(obs)
}

// encodeTCPOptions re-serializes parsed TCP options back into raw bytes,
// clamped to MaxOptionsBytes, matching the kernel path's "copy at most 40
// bytes of TCP options" contract (spec.md §4.A step 6).
func encodeTCPOptions(opts []layers.TCPOption) []byte {
	var buf []byte
	for _, o := range opts {
		if len(buf) >= MaxOptionsBytes {
			break
		}
		switch o.OptionType {
		case layers.TCPOptionKindEndList, layers.TCPOptionKindNop:
			buf = append(buf, byte(o.OptionType))
		default:
			buf = append(buf, byte(o.OptionType), byte(o.OptionLength))
			buf = append(buf, o.OptionData...)
		}
	}
	if len(buf) > MaxOptionsBytes {
		buf = buf[:MaxOptionsBytes]
	}
	return buf
}

func be32(ip []byte) uint32 {
	if len(ip) != 4 {
		return 0
	}
	return uint32(ip[0])<<24 | uint32(ip[1])<<16 | uint32(ip[2])<<8 | uint32(ip[3])
}
