// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package enforce

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"grimm.is/warden/internal/errors"
)

func newTestResponder(t *testing.T) (*Responder, *SimEnforcer, string) {
	t.Helper()
	dir := t.TempDir()
	sim := NewSimEnforcer()
	audit := NewAuditLog(filepath.Join(dir, "iptables_actions.log"))
	r := NewResponder(sim, audit, nil)
	return r, sim, dir
}

func TestRedirectIsIdempotent(t *testing.T) {
	r, sim, _ := newTestResponder(t)
	ctx := context.Background()

	if err := r.Redirect(ctx, "192.168.1.50"); err != nil {
		t.Fatalf("redirect: %v", err)
	}
	if err := r.Redirect(ctx, "192.168.1.50"); err != nil {
		t.Fatalf("second redirect: %v", err)
	}
	if len(sim.Deceived) != 1 || !sim.Deceived["192.168.1.50"] {
		t.Errorf("deceived = %v", sim.Deceived)
	}
}

func TestReleaseIsCleanAndRepeatable(t *testing.T) {
	r, sim, _ := newTestResponder(t)
	ctx := context.Background()

	if err := r.Redirect(ctx, "192.168.1.50"); err != nil {
		t.Fatal(err)
	}
	if err := r.Isolate(ctx, "192.168.1.50"); err != nil {
		t.Fatal(err)
	}
	if err := r.QuarantineMAC(ctx, "aa:bb:cc:dd:ee:ff", "192.168.1.50"); err != nil {
		t.Fatal(err)
	}

	if err := r.Release(ctx, "192.168.1.50", "aa:bb:cc:dd:ee:ff"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if len(sim.Deceived)+len(sim.Contained)+len(sim.Banned)+len(sim.Limited) != 0 {
		t.Errorf("rules remain after release: %+v", sim)
	}

	// Release on clean state is a no-op, not an error.
	if err := r.Release(ctx, "192.168.1.50", "aa:bb:cc:dd:ee:ff"); err != nil {
		t.Errorf("second release: %v", err)
	}
}

func TestValidationRejectsBadInput(t *testing.T) {
	r, sim, _ := newTestResponder(t)
	ctx := context.Background()

	cases := []func() error{
		func() error { return r.Redirect(ctx, "127.0.0.1") },
		func() error { return r.Isolate(ctx, "not-an-ip") },
		func() error { return r.BlockMAC(ctx, "aa-bb-cc-dd-ee-ff") },
		func() error { return r.Kick(ctx, "nope") },
		func() error { return r.QuarantineMAC(ctx, "aa:bb:cc:dd:ee:ff", "224.0.0.1") },
	}
	for i, call := range cases {
		err := call()
		if err == nil {
			t.Errorf("case %d: invalid input accepted", i)
			continue
		}
		if errors.GetKind(err) != errors.KindValidation {
			t.Errorf("case %d: kind = %v, want validation", i, errors.GetKind(err))
		}
	}
	if len(sim.Deceived)+len(sim.Contained)+len(sim.Banned)+len(sim.Limited)+len(sim.Kicked) != 0 {
		t.Error("rejected input reached the enforcer")
	}
}

func TestAuditLineFormat(t *testing.T) {
	r, _, dir := newTestResponder(t)

	if err := r.BlockMAC(context.Background(), "AA:BB:CC:DD:EE:FF"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "iptables_actions.log"))
	if err != nil {
		t.Fatal(err)
	}
	line := strings.TrimSpace(string(data))
	// [ts] ACTION: detail
	re := regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] BLOCK: .*aa:bb:cc:dd:ee:ff$`)
	if !re.MatchString(line) {
		t.Errorf("audit line = %q", line)
	}
}

func TestIsolateArchivesEvidence(t *testing.T) {
	dir := t.TempDir()
	behavior := filepath.Join(dir, "behavior.csv")
	honeypot := filepath.Join(dir, "honeypot.csv")
	auditPath := filepath.Join(dir, "iptables_actions.log")

	if err := os.WriteFile(behavior, []byte("timestamp,ip\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(honeypot, []byte("timestamp,source_ip\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	sim := NewSimEnforcer()
	r := NewResponder(sim, NewAuditLog(auditPath), NewArchiver(dir, []string{behavior, honeypot, auditPath}))

	if err := r.Isolate(context.Background(), "192.168.1.66"); err != nil {
		t.Fatalf("isolate: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "evidence_*.zip"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("evidence archives = %v (err %v)", matches, err)
	}

	zr, err := zip.OpenReader(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	names := make(map[string]bool)
	for _, f := range zr.File {
		names[f.Name] = true
	}
	// The audit log exists by archive time: ISOLATE was recorded first.
	for _, want := range []string{"behavior.csv", "honeypot.csv", "iptables_actions.log"} {
		if !names[want] {
			t.Errorf("archive missing %s: have %v", want, names)
		}
	}
}

func TestLockdown(t *testing.T) {
	r, sim, _ := newTestResponder(t)
	if err := r.Lockdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !sim.Locked {
		t.Error("lockdown did not reach the enforcer")
	}
}
