// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package defense

import (
	"context"

	"grimm.is/warden/internal/errors"
	"grimm.is/warden/internal/netutil"
	"grimm.is/warden/internal/registry"
)

// Action is an operator-requested enforcement action.
type Action string

const (
	ActionIsolate    Action = "isolate"
	ActionBlock      Action = "block"
	ActionKick       Action = "kick"
	ActionQuarantine Action = "quarantine"
	ActionRedirect   Action = "redirect"
	ActionRelease    Action = "release"
)

// ValidAction reports whether a is a known manual action.
func ValidAction(a Action) bool {
	switch a {
	case ActionIsolate, ActionBlock, ActionKick, ActionQuarantine, ActionRedirect, ActionRelease:
		return true
	}
	return false
}

// Apply executes one manual action against the device currently holding ip.
// Flags and trust are mutated under the registry lock, the enforcement call
// is serialized under the same lock, and the registry is persisted before
// returning.
func (l *Loop) Apply(ctx context.Context, action Action, ip string) error {
	if !ValidAction(action) {
		return errors.Errorf(errors.KindValidation, "unknown action %q", action)
	}
	if err := netutil.ValidateTargetIP(ip); err != nil {
		return err
	}

	l.reg.Lock()
	dev := l.reg.FindByIPLocked(ip)
	if dev == nil {
		l.reg.Unlock()
		return errors.Errorf(errors.KindNotFound, "no device with ip %s", ip)
	}

	err := l.applyLocked(ctx, action, dev)
	mac := dev.MAC
	trustScore := dev.TrustScore
	l.reg.Unlock()

	if err != nil {
		return err
	}

	if err := l.reg.Save(); err != nil {
		l.logger.Warn("Registry persist failed after manual action", "error", err)
	}

	l.alerts.push(Alert{
		Timestamp: l.now(),
		IP:        ip,
		MAC:       mac,
		Type:      "Manual Action",
		Action:    string(action),
		Trust:     trustScore,
	})
	l.logger.Info("Manual action applied", "action", action, "ip", ip, "mac", mac)
	return nil
}

func (l *Loop) applyLocked(ctx context.Context, action Action, dev *registry.Device) error {
	switch action {
	case ActionIsolate:
		// Isolated implies redirected; the decoy rules go in too.
		if err := l.responder.Redirect(ctx, dev.IP); err != nil {
			return err
		}
		if err := l.responder.Isolate(ctx, dev.IP); err != nil {
			return err
		}
		dev.SetIsolated()

	case ActionBlock:
		if err := l.responder.BlockMAC(ctx, dev.MAC); err != nil {
			return err
		}
		dev.SetIsolated()

	case ActionKick:
		return l.responder.Kick(ctx, dev.MAC)

	case ActionQuarantine:
		if err := l.responder.QuarantineMAC(ctx, dev.MAC, dev.IP); err != nil {
			return err
		}
		dev.Quarantined = true
		dev.Redirected = true

	case ActionRedirect:
		if err := l.responder.Redirect(ctx, dev.IP); err != nil {
			return err
		}
		dev.Redirected = true

	case ActionRelease:
		if err := l.responder.Release(ctx, dev.IP, dev.MAC); err != nil {
			return err
		}
		dev.Redirected = false
		dev.Isolated = false
		dev.Quarantined = false
		dev.TrustScore = registry.TrustInitial
	}
	return nil
}

// Lockdown sets the forwarding policy to drop. It takes no device argument
// and touches no registry state.
func (l *Loop) Lockdown(ctx context.Context) error {
	if err := l.responder.Lockdown(ctx); err != nil {
		return err
	}
	l.alerts.push(Alert{
		Timestamp: l.now(),
		Type:      "Manual Action",
		Action:    "lockdown",
	})
	l.logger.Warn("Network lockdown engaged")
	return nil
}
