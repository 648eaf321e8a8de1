// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package presence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"grimm.is/warden/internal/registry"
)

func TestLeaseFileSource(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour).Unix()
	past := now.Add(-time.Hour).Unix()

	content := fmt.Sprintf(`%d aa:bb:cc:dd:ee:01 192.168.1.10 phone 01:aa:bb:cc:dd:ee:01
%d aa:bb:cc:dd:ee:02 192.168.1.11 laptop *
0 aa:bb:cc:dd:ee:03 192.168.1.12 * *
%d aa:bb:cc:dd:ee:04 192.168.1.13 expired *
garbage line
%d not-a-mac 192.168.1.14 junk *
`, future, future, past, future)

	path := filepath.Join(t.TempDir(), "dnsmasq.leases")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewLeaseFileSource([]string{"/nonexistent/leases", path})
	src.Now = func() time.Time { return now }

	obs, err := src.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(obs) != 3 {
		t.Fatalf("got %d observations, want 3: %+v", len(obs), obs)
	}
	if obs[0].Hostname != "phone" || obs[0].IP != "192.168.1.10" {
		t.Errorf("obs[0] = %+v", obs[0])
	}
	// "*" hostname is unknown, not a name.
	if obs[1].Hostname != "laptop" {
		t.Errorf("obs[1] hostname = %q", obs[1].Hostname)
	}
	// Expiry 0 is a static lease, still valid.
	if obs[2].MAC != "aa:bb:cc:dd:ee:03" || obs[2].Hostname != "" {
		t.Errorf("obs[2] = %+v", obs[2])
	}
}

func TestLeaseFileSourceAllPathsMissing(t *testing.T) {
	src := NewLeaseFileSource([]string{"/nonexistent/a", "/nonexistent/b"})
	if _, err := src.Poll(context.Background()); err == nil {
		t.Error("expected error when no lease file is readable")
	}
}

func TestParseStationDump(t *testing.T) {
	out := []byte(`Station aa:bb:cc:dd:ee:01 (on wlan0)
	inactive time:	1000 ms
	rx bytes:	12345
Station AA:BB:CC:DD:EE:02 (on wlan0)
	inactive time:	20 ms
Station garbage
`)
	obs := parseStationDump(out, "station-dump")
	if len(obs) != 2 {
		t.Fatalf("got %d stations, want 2", len(obs))
	}
	if obs[0].MAC != "aa:bb:cc:dd:ee:01" || obs[1].MAC != "aa:bb:cc:dd:ee:02" {
		t.Errorf("stations = %+v", obs)
	}
}

func TestStationSourcePollUsesRunner(t *testing.T) {
	src := NewStationSource("wlan0")
	src.runner = func(_ context.Context, iface string) ([]byte, error) {
		if iface != "wlan0" {
			t.Errorf("iface = %q", iface)
		}
		return []byte("Station aa:bb:cc:dd:ee:ff (on wlan0)\n"), nil
	}

	obs, err := src.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(obs) != 1 || obs[0].MAC != "aa:bb:cc:dd:ee:ff" {
		t.Errorf("obs = %+v", obs)
	}
}

// fakeSource is a presence source scripted per test.
type fakeSource struct {
	name string
	obs  []Observation
	err  error
}

func (f *fakeSource) Name() string { return f.name }
func (f *fakeSource) Poll(context.Context) ([]Observation, error) {
	return f.obs, f.err
}

func TestTrinityReconcile(t *testing.T) {
	reg := registry.New(filepath.Join(t.TempDir(), "devices.json"))
	now := time.Now()

	leases := &fakeSource{name: "leases", obs: []Observation{
		{MAC: "aa:bb:cc:dd:ee:01", IP: "192.168.1.10", Hostname: "phone"},
	}}
	stations := &fakeSource{name: "stations", obs: []Observation{
		{MAC: "aa:bb:cc:dd:ee:01"},                    // same device, no IP info
		{MAC: "aa:bb:cc:dd:ee:02"},                    // silent station, L2 only
	}}
	failing := &fakeSource{name: "broken", err: fmt.Errorf("boom")}

	tr := NewTrinity(leases, stations, failing)
	tr.now = func() time.Time { return now }

	reg.Lock()
	seen := tr.ReconcileLocked(context.Background(), reg)
	reg.Unlock()

	if len(seen) != 2 {
		t.Fatalf("seen = %v", seen)
	}

	dev, _ := reg.Get("aa:bb:cc:dd:ee:01")
	if dev.IP != "192.168.1.10" || dev.Hostname != "phone" {
		t.Errorf("device 01 = %+v", dev)
	}
	// The station-only observation must not blank the IP.
	if silent, ok := reg.Get("aa:bb:cc:dd:ee:02"); !ok || silent.IP != "" {
		t.Errorf("device 02 = %+v", silent)
	}
}

func TestTrinityLastSeenMonotonic(t *testing.T) {
	reg := registry.New(filepath.Join(t.TempDir(), "devices.json"))
	base := time.Now()

	src := &fakeSource{name: "s", obs: []Observation{{MAC: "aa:bb:cc:dd:ee:01"}}}
	tr := NewTrinity(src)

	tr.now = func() time.Time { return base.Add(time.Minute) }
	reg.Lock()
	tr.ReconcileLocked(context.Background(), reg)
	reg.Unlock()

	// A reconcile with an earlier clock must not move last_seen backwards.
	tr.now = func() time.Time { return base }
	reg.Lock()
	tr.ReconcileLocked(context.Background(), reg)
	reg.Unlock()

	dev, _ := reg.Get("aa:bb:cc:dd:ee:01")
	if dev.LastSeen.Before(base.Add(time.Minute)) {
		t.Errorf("last_seen went backwards: %v", dev.LastSeen)
	}
}
