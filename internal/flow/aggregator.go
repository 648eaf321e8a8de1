// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package flow

import (
	"sync"
	"time"
)

// Stats is the per-cycle, per-MAC counter set. Cleared at cycle boundary,
// never persisted.
type Stats struct {
	Packets     int64
	Ports       map[int]struct{}
	WindowStart time.Time
}

// UniquePorts returns the distinct TCP destination port count.
func (s *Stats) UniquePorts() int { return len(s.Ports) }

// Rate returns packets per second over the elapsed window. The divisor is
// floored at one second so a short window cannot blow the rate up.
func (s *Stats) Rate(now time.Time) float64 {
	elapsed := now.Sub(s.WindowStart).Seconds()
	if elapsed < 1 {
		elapsed = 1
	}
	return float64(s.Packets) / elapsed
}

// Aggregator accumulates per-MAC flow stats for the current window.
type Aggregator struct {
	mu          sync.Mutex
	stats       map[string]*Stats
	windowStart time.Time
}

// NewAggregator creates an empty aggregator with the window starting now.
func NewAggregator(now time.Time) *Aggregator {
	return &Aggregator{
		stats:       make(map[string]*Stats),
		windowStart: now,
	}
}

// Ingest records one packet. Packets without a link-layer source are
// dropped; only TCP destination ports enter the port set.
func (a *Aggregator) Ingest(pkt PacketInfo) {
	if pkt.SrcMAC == "" {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	st, ok := a.stats[pkt.SrcMAC]
	if !ok {
		st = &Stats{
			Ports:       make(map[int]struct{}),
			WindowStart: a.windowStart,
		}
		a.stats[pkt.SrcMAC] = st
	}

	st.Packets++
	if pkt.Protocol == "TCP" && pkt.DstPort > 0 {
		st.Ports[pkt.DstPort] = struct{}{}
	}
}

// Window returns the start of the current window.
func (a *Aggregator) Window() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.windowStart
}

// Drain returns the accumulated stats and resets the aggregator for the
// next window. The returned maps are owned by the caller.
func (a *Aggregator) Drain(now time.Time) map[string]*Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := a.stats
	a.stats = make(map[string]*Stats)
	a.windowStart = now
	return out
}
