// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package flow consumes L2/L3/L4 packet headers from the AP interface and
// aggregates them into per-MAC counters for one analysis window. No payload
// inspection, no per-IP tracking: the MAC is the key, matching registry
// identity.
package flow

import "context"

// PacketInfo carries the header fields the aggregator cares about.
type PacketInfo struct {
	SrcMAC   string
	SrcIP    string
	DstIP    string
	DstPort  int
	Protocol string // "TCP", "UDP", other
	Length   int
}

// Source feeds packets into a sink until the context is cancelled or the
// window deadline elapses. Partial data is acceptable; the cycle uses
// whatever arrived.
type Source interface {
	Run(ctx context.Context, sink func(PacketInfo)) error
}
