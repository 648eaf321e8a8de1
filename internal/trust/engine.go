// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package trust scores device behavior into a 0-100 trust value and derives
// the protection flags and UI status from it.
package trust

import (
	"strings"
	"time"

	"grimm.is/warden/internal/config"
	"grimm.is/warden/internal/detector"
	"grimm.is/warden/internal/logging"
	"grimm.is/warden/internal/registry"
)

// Status is the derived, UI-visible state of a device.
type Status string

const (
	StatusOffline     Status = "OFFLINE"
	StatusContained   Status = "CONTAINED"
	StatusDeceived    Status = "DECEIVED"
	StatusQuarantined Status = "QUARANTINED"
	StatusSuspicious  Status = "SUSPICIOUS"
	StatusIdle        Status = "IDLE"
	StatusOnline      Status = "ONLINE"
)

// Trust deltas applied per cycle. Anomaly dominates; sustained benign
// behavior recovers one point at a time.
const (
	deltaAnomaly = -20
	deltaScan    = -10
	deltaFlood   = -5
	deltaBenign  = 1

	benignPortsMax = 5 // strictly fewer distinct ports than this counts as benign
)

// Threat is the cycle-scoped record handed to correlation and enforcement.
// It carries a snapshot of the device state at evaluation time.
type Threat struct {
	IP          string
	MAC         string
	Score       int
	Trust       int
	Redirected  bool
	Isolated    bool
	Quarantined bool
	Reason      string
	Correlation string
}

// Behavior is what one device did during the analysis window.
type Behavior struct {
	Packets     int64
	PacketRate  float64
	UniquePorts int
}

// Result is the outcome of evaluating one device for one cycle.
type Result struct {
	Status Status
	Threat *Threat // nil when nothing warrants escalation
}

// Engine applies the per-cycle trust policy.
type Engine struct {
	cfg    *config.DefenseConfig
	logger *logging.Logger
}

func NewEngine(cfg *config.DefenseConfig) *Engine {
	return &Engine{cfg: cfg, logger: logging.WithComponent("trust")}
}

// Evaluate scores one device against its window behavior and the detector
// verdict, mutating trust and flags in place. The caller holds the registry
// lock. Offline devices are not scored; their flags persist untouched.
//
// A threat is emitted when the verdict is anomalous or the device entered
// the cycle already redirected, so deceived devices stay on the enforcement
// path every cycle.
func (e *Engine) Evaluate(dev *registry.Device, b Behavior, v detector.Verdict, now time.Time) Result {
	if !dev.Online(now, e.cfg.OfflineAfter()) {
		return Result{Status: StatusOffline}
	}

	redirectedAtEntry := dev.Redirected

	delta := 0
	if v.Anomalous {
		delta += deltaAnomaly
	}
	// Scanning subsumes flooding; a scanner does not also pay the flood
	// penalty for the same window.
	switch {
	case b.UniquePorts > e.cfg.ScanPortsThreshold:
		delta += deltaScan
	case b.PacketRate > e.cfg.FloodRateThreshold:
		delta += deltaFlood
	}
	if !v.Anomalous && b.UniquePorts < benignPortsMax {
		delta += deltaBenign
	}
	dev.AdjustTrust(delta)

	// Flag derivation is monotonic within the loop: thresholds only set
	// flags, never clear them. Both bounds are inclusive; a device driven
	// exactly to the containment threshold is contained.
	if dev.TrustScore <= e.cfg.RedirectBelowTrust {
		dev.Redirected = true
	}
	if dev.TrustScore <= e.cfg.IsolateBelowTrust {
		dev.SetIsolated()
	}

	if dev.Quarantined &&
		dev.TrustScore > e.cfg.PromoteAboveTrust &&
		dev.Age(now) >= e.cfg.PromoteMinAge() {
		dev.Quarantined = false
		e.logger.Info("Device promoted out of quarantine", "mac", dev.MAC, "trust", dev.TrustScore)
	}

	res := Result{Status: e.project(dev, v.Anomalous, b.Packets, now)}
	if v.Anomalous || redirectedAtEntry {
		res.Threat = &Threat{
			IP:          dev.IP,
			MAC:         dev.MAC,
			Score:       v.Score,
			Trust:       dev.TrustScore,
			Redirected:  dev.Redirected,
			Isolated:    dev.Isolated,
			Quarantined: dev.Quarantined,
			Reason:      reasonText(v.Reasons),
		}
	}
	return res
}

// Project derives the status for a device outside the scoring path, e.g.
// for devices with no behavior this cycle.
func (e *Engine) Project(dev *registry.Device, anomalous bool, packets int64, now time.Time) Status {
	if !dev.Online(now, e.cfg.OfflineAfter()) {
		return StatusOffline
	}
	return e.project(dev, anomalous, packets, now)
}

// project assumes the device is online.
func (e *Engine) project(dev *registry.Device, anomalous bool, packets int64, _ time.Time) Status {
	switch {
	case dev.Isolated:
		return StatusContained
	case dev.Redirected:
		return StatusDeceived
	case dev.Quarantined:
		return StatusQuarantined
	case anomalous:
		return StatusSuspicious
	case packets == 0:
		return StatusIdle
	default:
		return StatusOnline
	}
}

func reasonText(reasons []string) string {
	if len(reasons) == 0 {
		return "Behavioral Anomaly"
	}
	return strings.Join(reasons, ", ")
}
