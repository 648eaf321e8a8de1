// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package defense drives the adaptive cycle: capture a traffic window,
// reconcile presence, score behavior, apply policy, correlate with decoy
// interactions, enforce, persist, publish.
package defense

import (
	"context"
	"sync/atomic"
	"time"

	"grimm.is/warden/internal/config"
	"grimm.is/warden/internal/correlate"
	"grimm.is/warden/internal/detector"
	"grimm.is/warden/internal/enforce"
	"grimm.is/warden/internal/flow"
	"grimm.is/warden/internal/history"
	"grimm.is/warden/internal/logging"
	"grimm.is/warden/internal/metrics"
	"grimm.is/warden/internal/presence"
	"grimm.is/warden/internal/registry"
	"grimm.is/warden/internal/trust"
)

// Loop owns the pipeline. It is the only writer of trust and flags during
// automated operation; the manual-action path shares the registry lock.
type Loop struct {
	cfg       *config.Config
	reg       *registry.Registry
	trinity   *presence.Trinity
	source    flow.Source
	det       *detector.Detector
	engine    *trust.Engine
	corr      *correlate.Engine
	responder *enforce.Responder
	met       *metrics.Metrics
	logger    *logging.Logger

	alerts   *alertRing
	snapshot atomic.Pointer[Snapshot]
	cycles   atomic.Uint64

	now func() time.Time
}

// Deps bundles the loop's collaborators.
type Deps struct {
	Registry  *registry.Registry
	Trinity   *presence.Trinity
	Source    flow.Source
	Detector  *detector.Detector
	Engine    *trust.Engine
	Correlate *correlate.Engine
	Responder *enforce.Responder
	Metrics   *metrics.Metrics
}

func NewLoop(cfg *config.Config, d Deps) *Loop {
	l := &Loop{
		cfg:       cfg,
		reg:       d.Registry,
		trinity:   d.Trinity,
		source:    d.Source,
		det:       d.Detector,
		engine:    d.Engine,
		corr:      d.Correlate,
		responder: d.Responder,
		met:       d.Metrics,
		logger:    logging.WithComponent("defense"),
		alerts:    newAlertRing(cfg.Defense.AlertRingSize),
		now:       time.Now,
	}
	l.snapshot.Store(&Snapshot{})
	return l
}

// Snapshot returns the last published cycle output.
func (l *Loop) Snapshot() *Snapshot { return l.snapshot.Load() }

// Alerts returns the current alert ring, oldest first.
func (l *Loop) Alerts() []Alert { return l.alerts.list() }

// SubscribeAlerts returns a channel fed with future alerts. The caller
// must Unsubscribe it when done.
func (l *Loop) SubscribeAlerts() chan Alert { return l.alerts.subscribe() }

func (l *Loop) UnsubscribeAlerts(ch chan Alert) { l.alerts.unsubscribe(ch) }

// Run executes cycles until ctx is cancelled. Every cycle is an
// independent attempt; component failures are logged and retried next
// cycle via idempotent re-assertion.
func (l *Loop) Run(ctx context.Context) {
	l.logger.Info("Adaptive defense loop starting",
		"window", l.cfg.Defense.CaptureWindow(), "sleep", l.cfg.Defense.CycleSleep())

	for {
		if ctx.Err() != nil {
			break
		}
		l.runCycle(ctx)

		select {
		case <-ctx.Done():
		case <-time.After(l.cfg.Defense.CycleSleep()):
		}
		if ctx.Err() != nil {
			break
		}
	}

	// Best-effort persist on shutdown. Firewall rules stay in place on
	// purpose; cleanup is an operator decision.
	if err := l.reg.Save(); err != nil {
		l.logger.Warn("Final registry persist failed", "error", err)
	}
	l.logger.Info("Adaptive defense loop stopped")
}

func (l *Loop) runCycle(ctx context.Context) {
	start := l.now()

	stats := l.captureWindow(ctx)
	now := l.now()

	views, threats := l.analyze(ctx, stats, now)

	l.corr.Run(threats, l.reg)
	l.enforceThreats(ctx, threats, now)

	if err := l.reg.Save(); err != nil {
		l.logger.Warn("Registry persist failed, in-memory state remains authoritative", "error", err)
	}

	cycle := l.cycles.Add(1)
	l.snapshot.Store(&Snapshot{Devices: views, UpdatedAt: now, Cycle: cycle})

	l.met.CyclesTotal.Inc()
	l.met.CycleDuration.Observe(l.now().Sub(start).Seconds())
	l.met.ThreatsTotal.Add(float64(len(threats)))
}

// captureWindow runs the packet source for the configured window and
// returns the drained per-MAC stats. Capture failure yields an empty
// window; the loop retries next cycle.
func (l *Loop) captureWindow(ctx context.Context) map[string]*flow.Stats {
	agg := flow.NewAggregator(l.now())

	winCtx, cancel := context.WithTimeout(ctx, l.cfg.Defense.CaptureWindow())
	err := l.source.Run(winCtx, agg.Ingest)
	cancel()
	if err != nil {
		l.logger.Warn("Packet capture failed this window", "error", err)
	}

	stats := agg.Drain(l.now())
	var total int64
	for _, st := range stats {
		total += st.Packets
	}
	l.met.PacketsWindow.Set(float64(total))
	return stats
}

// analyze is the locked phase: presence first so just-arrived devices are
// visible to scoring, then per-device detection and policy. It emits the
// full device list unconditionally; silent devices still appear.
func (l *Loop) analyze(ctx context.Context, stats map[string]*flow.Stats, now time.Time) ([]DeviceView, []*trust.Threat) {
	l.reg.Lock()
	defer l.reg.Unlock()

	l.trinity.ReconcileLocked(ctx, l.reg)

	var (
		views   []DeviceView
		threats []*trust.Threat
		online  int
	)

	for _, dev := range l.reg.DevicesLocked() {
		var b trust.Behavior
		if st := stats[dev.MAC]; st != nil {
			b = trust.Behavior{
				Packets:     st.Packets,
				PacketRate:  st.Rate(now),
				UniquePorts: st.UniquePorts(),
			}
		}

		var verdict detector.Verdict
		isOnline := dev.Online(now, l.cfg.Defense.OfflineAfter())
		if isOnline {
			online++
			verdict = l.det.Score(b.PacketRate, b.UniquePorts)
		}

		res := l.engine.Evaluate(dev, b, verdict, now)
		if res.Threat != nil {
			threats = append(threats, res.Threat)
		}

		if isOnline {
			label := "normal"
			if verdict.Anomalous {
				label = "suspicious"
			}
			l.det.Observe(history.Observation{
				Timestamp:   now,
				IP:          dev.IP,
				MAC:         dev.MAC,
				PacketRate:  b.PacketRate,
				Packets:     b.Packets,
				UniquePorts: b.UniquePorts,
				Score:       verdict.Score,
				Label:       label,
			})
		}

		views = append(views, DeviceView{
			IP:         dev.IP,
			MAC:        dev.MAC,
			Hostname:   dev.Hostname,
			Packets:    b.Packets,
			Ports:      b.UniquePorts,
			Status:     string(res.Status),
			TrustScore: dev.TrustScore,
			LastSeen:   dev.LastSeen,
			Flags: Flags{
				Redirected:  dev.Redirected,
				Isolated:    dev.Isolated,
				Quarantined: dev.Quarantined,
			},
		})
	}

	l.met.DevicesKnown.Set(float64(l.reg.LenLocked()))
	l.met.DevicesOnline.Set(float64(online))
	return views, threats
}

// enforceThreats routes each threat through the responder per its flags
// and records an alert. Enforcement failures never abort the cycle.
func (l *Loop) enforceThreats(ctx context.Context, threats []*trust.Threat, now time.Time) {
	for _, t := range threats {
		action := "none"
		var err error

		switch {
		case t.IP == "":
			l.logger.Warn("Threat without IP, cannot enforce", "mac", t.MAC)
		case t.Isolated:
			// Isolated implies redirected: the decoy redirects go in
			// alongside the forward drops, each with its own audit line.
			action = "isolate"
			if rerr := l.responder.Redirect(ctx, t.IP); rerr != nil {
				l.met.EnforceErrors.Inc()
				l.logger.Warn("Enforcement failed, retrying next cycle", "action", "redirect", "ip", t.IP, "error", rerr)
			}
			err = l.responder.Isolate(ctx, t.IP)
		case t.Redirected:
			action = "redirect"
			err = l.responder.Redirect(ctx, t.IP)
		}
		if err != nil {
			l.met.EnforceErrors.Inc()
			l.logger.Warn("Enforcement failed, retrying next cycle", "action", action, "ip", t.IP, "error", err)
		}

		l.alerts.push(Alert{
			Timestamp: now,
			IP:        t.IP,
			MAC:       t.MAC,
			Type:      t.Reason,
			Action:    action,
			Score:     t.Score,
			Trust:     t.Trust,
		})
	}
}
