// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package enforce applies protection decisions to the packet filter and the
// wireless driver. Every operation deletes any matching prior rule before
// adding, so the loop can re-assert policy each cycle without duplication.
package enforce

import (
	"context"
)

// Enforcer is the mutation surface the loop and the manual-action path
// drive. Implementations must be idempotent per operation.
type Enforcer interface {
	// Redirect sends the IP's traffic to the trapped service ports into
	// the decoy listeners.
	Redirect(ctx context.Context, ip string) error

	// Isolate drops all forwarded traffic to or from the IP and flushes
	// its live connections.
	Isolate(ctx context.Context, ip string) error

	// BlockMAC drops forwarded traffic by link-layer source, surviving IP
	// changes.
	BlockMAC(ctx context.Context, mac string) error

	// QuarantineMAC redirects the IP and rate-limits the MAC to a trickle.
	QuarantineMAC(ctx context.Context, mac, ip string) error

	// Kick deletes the station entry so the device must re-associate.
	Kick(ctx context.Context, mac string) error

	// Release removes every rule this enforcer may have added for the
	// device. Safe to call when nothing is present.
	Release(ctx context.Context, ip, mac string) error

	// Lockdown sets the forwarding policy to drop. Gateway-local decoy
	// and dashboard traffic is unaffected.
	Lockdown(ctx context.Context) error
}
