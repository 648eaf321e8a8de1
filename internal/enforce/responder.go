// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package enforce

import (
	"context"
	"fmt"

	"grimm.is/warden/internal/logging"
	"grimm.is/warden/internal/netutil"
)

// Responder wraps an Enforcer with input validation, audit logging, and
// evidence archiving. Every enforcement path in the gateway goes through
// one of these; the wrapped enforcer only ever sees validated inputs.
type Responder struct {
	enf      Enforcer
	audit    *AuditLog
	archiver *Archiver
	logger   *logging.Logger
}

func NewResponder(enf Enforcer, audit *AuditLog, archiver *Archiver) *Responder {
	return &Responder{
		enf:      enf,
		audit:    audit,
		archiver: archiver,
		logger:   logging.WithComponent("responder"),
	}
}

func (r *Responder) record(action, detail string) {
	if err := r.audit.Record(action, detail); err != nil {
		r.logger.Warn("Audit write failed", "action", action, "error", err)
	}
}

func (r *Responder) Redirect(ctx context.Context, ip string) error {
	if err := netutil.ValidateTargetIP(ip); err != nil {
		return err
	}
	if err := r.enf.Redirect(ctx, ip); err != nil {
		return err
	}
	r.record("REDIRECT", fmt.Sprintf("%s -> decoy services", ip))
	return nil
}

// Isolate contains the device and snapshots the forensic state files.
func (r *Responder) Isolate(ctx context.Context, ip string) error {
	if err := netutil.ValidateTargetIP(ip); err != nil {
		return err
	}
	if err := r.enf.Isolate(ctx, ip); err != nil {
		return err
	}
	r.record("ISOLATE", fmt.Sprintf("dropping all forwarded traffic for %s", ip))
	if r.archiver != nil {
		if path, err := r.archiver.Archive(); err != nil {
			r.logger.Warn("Evidence archiving failed", "ip", ip, "error", err)
		} else {
			r.record("EVIDENCE", path)
		}
	}
	return nil
}

func (r *Responder) BlockMAC(ctx context.Context, mac string) error {
	if err := netutil.ValidateMAC(mac); err != nil {
		return err
	}
	mac, _ = netutil.CanonicalMAC(mac)
	if err := r.enf.BlockMAC(ctx, mac); err != nil {
		return err
	}
	r.record("BLOCK", fmt.Sprintf("dropping forwarded traffic from %s", mac))
	return nil
}

func (r *Responder) QuarantineMAC(ctx context.Context, mac, ip string) error {
	if err := netutil.ValidateMAC(mac); err != nil {
		return err
	}
	if err := netutil.ValidateTargetIP(ip); err != nil {
		return err
	}
	mac, _ = netutil.CanonicalMAC(mac)
	if err := r.enf.QuarantineMAC(ctx, mac, ip); err != nil {
		return err
	}
	r.record("QUARANTINE", fmt.Sprintf("%s (%s) redirected and rate-limited", mac, ip))
	return nil
}

func (r *Responder) Kick(ctx context.Context, mac string) error {
	if err := netutil.ValidateMAC(mac); err != nil {
		return err
	}
	mac, _ = netutil.CanonicalMAC(mac)
	if err := r.enf.Kick(ctx, mac); err != nil {
		return err
	}
	r.record("KICK", fmt.Sprintf("deauthenticated station %s", mac))
	return nil
}

// Release accepts whatever identifiers the device record has. An empty IP
// or MAC just narrows what gets cleaned up.
func (r *Responder) Release(ctx context.Context, ip, mac string) error {
	if ip != "" {
		if err := netutil.ValidateTargetIP(ip); err != nil {
			return err
		}
	}
	if mac != "" {
		if err := netutil.ValidateMAC(mac); err != nil {
			return err
		}
		mac, _ = netutil.CanonicalMAC(mac)
	}
	if err := r.enf.Release(ctx, ip, mac); err != nil {
		return err
	}
	r.record("RELEASE", fmt.Sprintf("cleared all rules for ip=%s mac=%s", ip, mac))
	return nil
}

func (r *Responder) Lockdown(ctx context.Context) error {
	if err := r.enf.Lockdown(ctx); err != nil {
		return err
	}
	r.record("LOCKDOWN", "forwarding policy set to drop")
	return nil
}
