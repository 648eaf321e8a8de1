// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

package enforce

import (
	"bytes"
	"context"
	"fmt"
	"net/netip"
	"os/exec"
	"strings"
	"time"

	"github.com/ti-mo/conntrack"

	"grimm.is/warden/internal/errors"
	"grimm.is/warden/internal/logging"
)

// Named sets inside table ip warden. Static rules match over the sets, so
// enforcement actions reduce to element membership changes.
const (
	setDeceived  = "deceived"      // ipv4_addr, DNAT to decoys
	setContained = "contained"     // ipv4_addr, forward drop both directions
	setBanned    = "banned"        // ether_addr, forward drop by source MAC
	setLimited   = "limited"       // ether_addr, 5/minute trickle
	nftTable     = "warden"

	nftTimeout = 5 * time.Second
)

// NFTEnforcer drives nftables through `nft -f -` script text, the same way
// the ruleset is applied at startup. Element changes go delete-then-add so
// re-asserting policy every cycle stays duplicate-free.
type NFTEnforcer struct {
	apInterface string
	decoyMap    [][2]int
	logger      *logging.Logger

	// Injected for tests.
	runNFT    func(ctx context.Context, script string) error
	runKick   func(ctx context.Context, iface, mac string) error
	flushConn func(ip string) error
}

// NewNFTEnforcer creates the enforcer for the AP interface with the given
// trapped-port -> decoy-port pairs.
func NewNFTEnforcer(apInterface string, decoyMap [][2]int) *NFTEnforcer {
	return &NFTEnforcer{
		apInterface: apInterface,
		decoyMap:    decoyMap,
		logger:      logging.WithComponent("enforce"),
		runNFT:      runNFTScript,
		runKick:     runStationDel,
		flushConn:   flushConntrackIP,
	}
}

// Setup installs the base ruleset: the table, its sets, and the static
// rules that match over them. The declare-then-delete prelude makes the
// whole script safe to re-run.
func (e *NFTEnforcer) Setup(ctx context.Context) error {
	var b strings.Builder
	b.WriteString("table ip " + nftTable + "\n")
	b.WriteString("delete table ip " + nftTable + "\n")
	b.WriteString("table ip " + nftTable + " {\n")
	fmt.Fprintf(&b, "\tset %s { type ipv4_addr; }\n", setDeceived)
	fmt.Fprintf(&b, "\tset %s { type ipv4_addr; }\n", setContained)
	fmt.Fprintf(&b, "\tset %s { type ether_addr; }\n", setBanned)
	fmt.Fprintf(&b, "\tset %s { type ether_addr; }\n", setLimited)

	b.WriteString("\tchain prerouting {\n")
	b.WriteString("\t\ttype nat hook prerouting priority dstnat; policy accept;\n")
	for _, pair := range e.decoyMap {
		// Interface binding is mandatory: without it the DNAT misses
		// attacker traffic traversing the gateway.
		fmt.Fprintf(&b, "\t\tiifname %q ip saddr @%s tcp dport %d redirect to :%d\n",
			e.apInterface, setDeceived, pair[0], pair[1])
	}
	b.WriteString("\t}\n")

	b.WriteString("\tchain forward {\n")
	b.WriteString("\t\ttype filter hook forward priority filter; policy accept;\n")
	fmt.Fprintf(&b, "\t\tip saddr @%s drop\n", setContained)
	fmt.Fprintf(&b, "\t\tip daddr @%s drop\n", setContained)
	fmt.Fprintf(&b, "\t\tether saddr @%s drop\n", setBanned)
	fmt.Fprintf(&b, "\t\tether saddr @%s limit rate 5/minute accept\n", setLimited)
	fmt.Fprintf(&b, "\t\tether saddr @%s drop\n", setLimited)
	b.WriteString("\t}\n")
	b.WriteString("}\n")

	if err := e.runNFT(ctx, b.String()); err != nil {
		return errors.Wrap(err, errors.KindInternal, "installing base ruleset")
	}
	e.logger.Info("Base ruleset installed", "interface", e.apInterface)
	return nil
}

// addElement deletes then adds one set element. The delete runs as its own
// best-effort script because nft rejects deleting a missing element.
func (e *NFTEnforcer) addElement(ctx context.Context, set, element string) error {
	_ = e.runNFT(ctx, fmt.Sprintf("delete element ip %s %s { %s }\n", nftTable, set, element))
	if err := e.runNFT(ctx, fmt.Sprintf("add element ip %s %s { %s }\n", nftTable, set, element)); err != nil {
		return errors.Wrapf(err, errors.KindInternal, "adding %s to %s", element, set)
	}
	return nil
}

func (e *NFTEnforcer) deleteElement(ctx context.Context, set, element string) {
	_ = e.runNFT(ctx, fmt.Sprintf("delete element ip %s %s { %s }\n", nftTable, set, element))
}

func (e *NFTEnforcer) Redirect(ctx context.Context, ip string) error {
	return e.addElement(ctx, setDeceived, ip)
}

func (e *NFTEnforcer) Isolate(ctx context.Context, ip string) error {
	if err := e.addElement(ctx, setContained, ip); err != nil {
		return err
	}
	// Established flows bypass new forward rules until their conntrack
	// entries go.
	if err := e.flushConn(ip); err != nil {
		e.logger.Warn("Conntrack flush failed", "ip", ip, "error", err)
	}
	return nil
}

func (e *NFTEnforcer) BlockMAC(ctx context.Context, mac string) error {
	return e.addElement(ctx, setBanned, mac)
}

func (e *NFTEnforcer) QuarantineMAC(ctx context.Context, mac, ip string) error {
	if err := e.Redirect(ctx, ip); err != nil {
		return err
	}
	return e.addElement(ctx, setLimited, mac)
}

func (e *NFTEnforcer) Kick(ctx context.Context, mac string) error {
	if err := e.runKick(ctx, e.apInterface, mac); err != nil {
		return errors.Wrapf(err, errors.KindInternal, "kicking station %s", mac)
	}
	return nil
}

// Release drops the device from every set. Deletes are best-effort so a
// second Release is a no-op, not an error.
func (e *NFTEnforcer) Release(ctx context.Context, ip, mac string) error {
	if ip != "" {
		e.deleteElement(ctx, setDeceived, ip)
		e.deleteElement(ctx, setContained, ip)
	}
	if mac != "" {
		e.deleteElement(ctx, setBanned, mac)
		e.deleteElement(ctx, setLimited, mac)
	}
	return nil
}

// Lockdown flips the forward chain policy to drop. Re-adding an existing
// chain with a policy clause updates the policy in place.
func (e *NFTEnforcer) Lockdown(ctx context.Context) error {
	script := fmt.Sprintf("add chain ip %s forward { policy drop; }\n", nftTable)
	if err := e.runNFT(ctx, script); err != nil {
		return errors.Wrap(err, errors.KindInternal, "setting lockdown policy")
	}
	return nil
}

// runNFTScript feeds one script to `nft -f -`.
func runNFTScript(ctx context.Context, script string) error {
	ctx, cancel := context.WithTimeout(ctx, nftTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "nft", "-f", "-")
	cmd.Stdin = strings.NewReader(script)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("nft: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// runStationDel removes the station entry from the wireless driver.
func runStationDel(ctx context.Context, iface, mac string) error {
	ctx, cancel := context.WithTimeout(ctx, nftTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "iw", "dev", iface, "station", "del", mac).CombinedOutput()
	if err != nil {
		return fmt.Errorf("iw station del: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// flushConntrackIP deletes live conntrack flows touching ip so new drop
// rules take effect immediately.
func flushConntrackIP(ip string) error {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return err
	}

	c, err := conntrack.Dial(nil)
	if err != nil {
		return err
	}
	defer c.Close()

	flows, err := c.Dump(nil)
	if err != nil {
		return err
	}
	for _, f := range flows {
		if f.TupleOrig.IP.SourceAddress == addr ||
			f.TupleOrig.IP.DestinationAddress == addr ||
			f.TupleReply.IP.SourceAddress == addr ||
			f.TupleReply.IP.DestinationAddress == addr {
			if err := c.Delete(f); err != nil {
				return err
			}
		}
	}
	return nil
}
