// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package correlate joins the cycle's threat set with recent decoy
// interactions. An anomaly alone is suspicion; an anomaly plus a voluntary
// touch of a decoy service is treated as near-certain hostile intent.
package correlate

import (
	"fmt"

	"grimm.is/warden/internal/config"
	"grimm.is/warden/internal/decoylog"
	"grimm.is/warden/internal/logging"
	"grimm.is/warden/internal/registry"
	"grimm.is/warden/internal/trust"
)

// Escalation applied when a threat IP shows up in the decoy log.
const (
	scoreBoost   = 30
	trustPenalty = 40
)

// Engine escalates threats whose source also touched a decoy.
type Engine struct {
	cfg    *config.DefenseConfig
	log    *decoylog.Log
	logger *logging.Logger
}

func NewEngine(cfg *config.DefenseConfig, log *decoylog.Log) *Engine {
	return &Engine{cfg: cfg, log: log, logger: logging.WithComponent("correlate")}
}

// Run checks each threat against the recent decoy-interaction window and
// escalates matches in place, then merges the stricter trust and flags back
// into the registry so the next cycle starts from them. Missing or empty
// decoy log makes this a no-op.
func (e *Engine) Run(threats []*trust.Threat, reg *registry.Registry) {
	if len(threats) == 0 {
		return
	}
	counts := e.log.CountBySource(e.cfg.CorrelationWindowRows)
	if len(counts) == 0 {
		return
	}

	reg.Lock()
	defer reg.Unlock()

	for _, t := range threats {
		n, ok := counts[t.IP]
		if !ok || t.IP == "" {
			continue
		}

		t.Score += scoreBoost
		if t.Score > 100 {
			t.Score = 100
		}
		t.Trust -= trustPenalty
		if t.Trust < registry.TrustMin {
			t.Trust = registry.TrustMin
		}
		t.Redirected = true
		t.Correlation = fmt.Sprintf("Correlation: Anomaly + Honeypot Interaction (%d events)", n)
		if t.Reason != "" {
			t.Reason = t.Reason + "; " + t.Correlation
		} else {
			t.Reason = t.Correlation
		}

		if dev := reg.GetLocked(t.MAC); dev != nil {
			dev.TrustScore = t.Trust
			dev.ClampTrust()
			dev.Redirected = true
			t.Isolated = dev.Isolated
		}

		e.logger.Warn("Threat escalated by decoy correlation",
			"ip", t.IP, "mac", t.MAC, "events", n, "score", t.Score, "trust", t.Trust)
	}
}
