// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux

package presence

import (
	"context"

	"github.com/vishvananda/netlink"
	"grimm.is/warden/internal/errors"
	"grimm.is/warden/internal/netutil"
)

// NeighborSource reads the kernel IPv4 neighbor table over netlink. Entries
// in FAILED or INCOMPLETE state are not evidence of presence; they mean the
// kernel tried to reach the address and could not.
type NeighborSource struct{}

// NewNeighborSource creates a neighbor-table source.
func NewNeighborSource() *NeighborSource { return &NeighborSource{} }

func (s *NeighborSource) Name() string { return "neighbor" }

// Poll dumps the neighbor table for all links.
func (s *NeighborSource) Poll(ctx context.Context) ([]Observation, error) {
	neighs, err := netlink.NeighList(0, netlink.FAMILY_V4)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindUnavailable, "neighbor dump")
	}

	var obs []Observation
	for _, n := range neighs {
		if n.State&(netlink.NUD_FAILED|netlink.NUD_INCOMPLETE) != 0 {
			continue
		}
		if n.HardwareAddr == nil || n.IP == nil || n.IP.To4() == nil {
			continue
		}
		mac := netutil.FormatMAC(n.HardwareAddr)
		if mac == "" {
			continue
		}
		obs = append(obs, Observation{
			MAC:    mac,
			IP:     n.IP.String(),
			Source: s.Name(),
		})
	}
	return obs, nil
}
