// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux

package flow

import (
	"context"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/pcap"

	"grimm.is/warden/internal/errors"
	"grimm.is/warden/internal/logging"
	"grimm.is/warden/internal/netutil"
)

// snapLen must hold a full DHCPv4 client message (BOOTP fixed fields alone
// are 236 bytes); TCP/UDP payload beyond the headers is never inspected.
const snapLen = 512

// LiveSource captures from the AP interface with libpcap. Run blocks until
// the context deadline elapses, then returns; the aggregator keeps whatever
// arrived.
type LiveSource struct {
	Iface  string
	Enrich func(Enrichment)
	logger *logging.Logger
}

// NewLiveSource creates a live capture source on iface. enrich, if non-nil,
// receives DHCP identity gleaned along the way.
func NewLiveSource(iface string, enrich func(Enrichment)) *LiveSource {
	return &LiveSource{
		Iface:  iface,
		Enrich: enrich,
		logger: logging.WithComponent("capture"),
	}
}

// Run opens the handle and pumps decoded headers into sink until ctx is done.
func (s *LiveSource) Run(ctx context.Context, sink func(PacketInfo)) error {
	handle, err := pcap.OpenLive(s.Iface, snapLen, true, pcap.BlockForever)
	if err != nil {
		return errors.Wrapf(err, errors.KindUnavailable, "opening capture on %s", s.Iface)
	}
	defer handle.Close()

	src := gopacket.NewPacketSource(handle, handle.LinkType())
	packets := src.Packets()

	for {
		select {
		case <-ctx.Done():
			return nil
		case packet, ok := <-packets:
			if !ok {
				return nil
			}
			if info, ok := Decode(packet); ok {
				sink(info)
			}
			if s.Enrich != nil {
				if e, ok := ExtractDHCP(packet); ok {
					s.Enrich(e)
				}
			}
		}
	}
}

// Decode pulls the L2/L3/L4 header fields out of a captured packet.
func Decode(packet gopacket.Packet) (PacketInfo, bool) {
	ethLayer := packet.Layer(layers.LayerTypeEthernet)
	if ethLayer == nil {
		return PacketInfo{}, false
	}
	eth, _ := ethLayer.(*layers.Ethernet)

	info := PacketInfo{
		SrcMAC: netutil.FormatMAC(eth.SrcMAC),
		Length: len(packet.Data()),
	}
	if info.SrcMAC == "" {
		return PacketInfo{}, false
	}

	if ipLayer := packet.Layer(layers.LayerTypeIPv4); ipLayer != nil {
		ip, _ := ipLayer.(*layers.IPv4)
		info.SrcIP = ip.SrcIP.String()
		info.DstIP = ip.DstIP.String()
	}

	if tcpLayer := packet.Layer(layers.LayerTypeTCP); tcpLayer != nil {
		tcp, _ := tcpLayer.(*layers.TCP)
		info.Protocol = "TCP"
		info.DstPort = int(tcp.DstPort)
	} else if udpLayer := packet.Layer(layers.LayerTypeUDP); udpLayer != nil {
		udp, _ := udpLayer.(*layers.UDP)
		info.Protocol = "UDP"
		info.DstPort = int(udp.DstPort)
	}

	return info, true
}
