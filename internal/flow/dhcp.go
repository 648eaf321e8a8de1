// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package flow

import (
	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/insomniacslk/dhcp/dhcpv4"

	"grimm.is/warden/internal/netutil"
)

// Enrichment is identity gleaned from a sniffed DHCPv4 request: the client's
// self-reported hostname (option 12) and vendor class (option 60). It
// supplements the lease file for clients whose lease predates the daemon.
type Enrichment struct {
	MAC      string
	Hostname string
	Vendor   string
}

// ExtractDHCP analyzes a packet for a DHCPv4 client message and returns any
// identity enrichment it carries.
func ExtractDHCP(packet gopacket.Packet) (Enrichment, bool) {
	if packet.Layer(layers.LayerTypeDHCPv4) == nil {
		return Enrichment{}, false
	}
	udpLayer := packet.Layer(layers.LayerTypeUDP)
	if udpLayer == nil {
		return Enrichment{}, false
	}
	udp, _ := udpLayer.(*layers.UDP)

	msg, err := dhcpv4.FromBytes(udp.Payload)
	if err != nil {
		return Enrichment{}, false
	}
	switch msg.MessageType() {
	case dhcpv4.MessageTypeDiscover, dhcpv4.MessageTypeRequest:
	default:
		return Enrichment{}, false
	}

	mac := netutil.FormatMAC(msg.ClientHWAddr)
	if mac == "" {
		return Enrichment{}, false
	}

	e := Enrichment{
		MAC:      mac,
		Hostname: msg.HostName(),
		Vendor:   msg.ClassIdentifier(),
	}
	if e.Hostname == "" && e.Vendor == "" {
		return Enrichment{}, false
	}
	return e, true
}
