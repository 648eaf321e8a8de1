// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package presence reconciles which stations are on the LAN from three
// independent evidence sources: DHCP leases, the kernel neighbor table, and
// the Wi-Fi station dump. Each source has a blind spot; the union is
// strictly more reliable than any single source.
package presence

import (
	"context"
)

// Observation is one piece of presence evidence for a MAC. IP and Hostname
// are filled only when the source knows them.
type Observation struct {
	MAC      string
	IP       string
	Hostname string
	Source   string
}

// Source is one presence evidence source, polled once per cycle.
type Source interface {
	Name() string
	Poll(ctx context.Context) ([]Observation, error)
}
