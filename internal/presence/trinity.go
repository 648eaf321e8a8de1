// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package presence

import (
	"context"
	"time"

	"grimm.is/warden/internal/logging"
	"grimm.is/warden/internal/registry"
)

// Trinity polls the evidence sources and folds their union into the
// registry. A failing source contributes nothing that cycle; the cycle
// never aborts on source failure.
type Trinity struct {
	sources []Source
	logger  *logging.Logger
	now     func() time.Time
}

// NewTrinity builds the reconciler over the given sources.
func NewTrinity(sources ...Source) *Trinity {
	return &Trinity{
		sources: sources,
		logger:  logging.WithComponent("presence"),
		now:     time.Now,
	}
}

// ReconcileLocked polls every source and upserts observations into the
// registry. Caller must hold the registry lock; the loop driver calls this
// at the top of the analyze phase so just-arrived devices are visible to
// scoring. Returns the set of MACs observed this cycle.
//
// last_seen moves only here, never on packet observation: crafted traffic
// from a departed station must not keep it "alive".
func (t *Trinity) ReconcileLocked(ctx context.Context, reg *registry.Registry) map[string]bool {
	now := t.now()
	seen := make(map[string]bool)

	for _, src := range t.sources {
		obs, err := src.Poll(ctx)
		if err != nil {
			t.logger.Warn("Presence source failed, skipping this cycle", "source", src.Name(), "error", err)
			continue
		}
		for _, o := range obs {
			dev := reg.UpsertLocked(o.MAC, now)
			if dev.LastSeen.Before(now) {
				dev.LastSeen = now
			}
			if o.IP != "" {
				dev.IP = o.IP
			}
			if o.Hostname != "" {
				dev.Hostname = o.Hostname
			}
			seen[o.MAC] = true
		}
	}
	return seen
}
