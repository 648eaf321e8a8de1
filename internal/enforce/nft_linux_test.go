// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

package enforce

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

// scriptRecorder captures the scripts an NFTEnforcer would feed to nft.
type scriptRecorder struct {
	scripts []string
	fail    func(script string) error
}

func (r *scriptRecorder) run(_ context.Context, script string) error {
	r.scripts = append(r.scripts, script)
	if r.fail != nil {
		return r.fail(script)
	}
	return nil
}

func newTestNFT() (*NFTEnforcer, *scriptRecorder) {
	rec := &scriptRecorder{}
	e := NewNFTEnforcer("wlan0", [][2]int{{22, 2222}, {80, 8080}, {445, 4445}})
	e.runNFT = rec.run
	e.runKick = func(context.Context, string, string) error { return nil }
	e.flushConn = func(string) error { return nil }
	return e, rec
}

func TestSetupScript(t *testing.T) {
	e, rec := newTestNFT()
	if err := e.Setup(context.Background()); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if len(rec.scripts) != 1 {
		t.Fatalf("scripts = %d, want 1 atomic script", len(rec.scripts))
	}
	script := rec.scripts[0]

	for _, want := range []string{
		"table ip warden",
		"delete table ip warden",
		"set deceived { type ipv4_addr; }",
		"set contained { type ipv4_addr; }",
		"set banned { type ether_addr; }",
		"set limited { type ether_addr; }",
		"type nat hook prerouting priority dstnat",
		"type filter hook forward priority filter",
		`iifname "wlan0" ip saddr @deceived tcp dport 22 redirect to :2222`,
		`iifname "wlan0" ip saddr @deceived tcp dport 80 redirect to :8080`,
		`iifname "wlan0" ip saddr @deceived tcp dport 445 redirect to :4445`,
		"ip saddr @contained drop",
		"ip daddr @contained drop",
		"ether saddr @banned drop",
		"ether saddr @limited limit rate 5/minute accept",
		"ether saddr @limited drop",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("setup script missing %q", want)
		}
	}
}

func TestElementOpsDeleteThenAdd(t *testing.T) {
	e, rec := newTestNFT()
	if err := e.Redirect(context.Background(), "192.168.1.50"); err != nil {
		t.Fatalf("redirect: %v", err)
	}
	if len(rec.scripts) != 2 {
		t.Fatalf("scripts = %v", rec.scripts)
	}
	if !strings.Contains(rec.scripts[0], "delete element ip warden deceived { 192.168.1.50 }") {
		t.Errorf("first script = %q, want delete", rec.scripts[0])
	}
	if !strings.Contains(rec.scripts[1], "add element ip warden deceived { 192.168.1.50 }") {
		t.Errorf("second script = %q, want add", rec.scripts[1])
	}
}

func TestElementDeleteFailureIsTolerated(t *testing.T) {
	e, rec := newTestNFT()
	rec.fail = func(script string) error {
		if strings.HasPrefix(script, "delete element") {
			return fmt.Errorf("no such element")
		}
		return nil
	}
	if err := e.BlockMAC(context.Background(), "aa:bb:cc:dd:ee:ff"); err != nil {
		t.Fatalf("block with failing delete: %v", err)
	}
}

func TestIsolateFlushesConntrack(t *testing.T) {
	e, _ := newTestNFT()
	var flushed string
	e.flushConn = func(ip string) error { flushed = ip; return nil }

	if err := e.Isolate(context.Background(), "192.168.1.66"); err != nil {
		t.Fatal(err)
	}
	if flushed != "192.168.1.66" {
		t.Errorf("flushed = %q", flushed)
	}
}

func TestReleaseClearsAllSets(t *testing.T) {
	e, rec := newTestNFT()
	if err := e.Release(context.Background(), "192.168.1.66", "aa:bb:cc:dd:ee:ff"); err != nil {
		t.Fatal(err)
	}

	joined := strings.Join(rec.scripts, "")
	for _, want := range []string{
		"delete element ip warden deceived { 192.168.1.66 }",
		"delete element ip warden contained { 192.168.1.66 }",
		"delete element ip warden banned { aa:bb:cc:dd:ee:ff }",
		"delete element ip warden limited { aa:bb:cc:dd:ee:ff }",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("release scripts missing %q", want)
		}
	}
}

func TestLockdownSetsForwardPolicyDrop(t *testing.T) {
	e, rec := newTestNFT()
	if err := e.Lockdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rec.scripts[0], "add chain ip warden forward { policy drop; }") {
		t.Errorf("lockdown script = %q", rec.scripts[0])
	}
}
