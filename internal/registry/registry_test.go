// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestUpsertCreatesProbationaryDevice(t *testing.T) {
	reg := New(filepath.Join(t.TempDir(), "devices.json"))
	now := time.Now()

	reg.Lock()
	dev := reg.UpsertLocked("aa:bb:cc:dd:ee:ff", now)
	reg.Unlock()

	if dev.TrustScore != TrustInitial {
		t.Errorf("trust = %d, want %d", dev.TrustScore, TrustInitial)
	}
	if !dev.Quarantined || dev.Redirected || dev.Isolated {
		t.Errorf("flags = %+v, want quarantined only", dev)
	}
	if !dev.FirstSeen.Equal(now) || !dev.LastSeen.Equal(now) {
		t.Error("first/last seen not initialized to now")
	}

	reg.Lock()
	again := reg.UpsertLocked("aa:bb:cc:dd:ee:ff", now.Add(time.Minute))
	reg.Unlock()
	if again != dev {
		t.Error("second upsert created a new record")
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.json")
	reg := New(path)
	now := time.Now().Truncate(time.Second)

	reg.Lock()
	dev := reg.UpsertLocked("aa:bb:cc:dd:ee:ff", now)
	dev.IP = "192.168.1.50"
	dev.Hostname = "camera"
	dev.TrustScore = 25
	dev.SetIsolated()
	reg.Unlock()

	if err := reg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := New(path)
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	got, ok := loaded.Get("aa:bb:cc:dd:ee:ff")
	if !ok {
		t.Fatal("device missing after reload")
	}
	if got.IP != "192.168.1.50" || got.Hostname != "camera" || got.TrustScore != 25 {
		t.Errorf("reloaded device = %+v", got)
	}
	if !got.Isolated || !got.Redirected {
		t.Error("isolation flags lost across reload")
	}
}

func TestLoadTolerantOfMissingAndCorrupt(t *testing.T) {
	reg := New(filepath.Join(t.TempDir(), "missing.json"))
	if err := reg.Load(); err != nil {
		t.Errorf("missing file should load empty: %v", err)
	}

	path := filepath.Join(t.TempDir(), "corrupt.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	reg = New(path)
	if err := reg.Load(); err != nil {
		t.Errorf("corrupt file should load empty: %v", err)
	}
	if len(reg.Snapshot()) != 0 {
		t.Error("corrupt load should yield empty registry")
	}
}

func TestLoadReassertsInvariants(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.json")
	raw := `{
		"aa:bb:cc:dd:ee:01": {"mac": "aa:bb:cc:dd:ee:01", "trust_score": 250, "isolated": true, "redirected": false}
	}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := New(path)
	if err := reg.Load(); err != nil {
		t.Fatal(err)
	}
	dev, ok := reg.Get("aa:bb:cc:dd:ee:01")
	if !ok {
		t.Fatal("device missing")
	}
	if dev.TrustScore != TrustMax {
		t.Errorf("trust = %d, want clamped to %d", dev.TrustScore, TrustMax)
	}
	if !dev.Redirected {
		t.Error("isolated device must reload as redirected")
	}
}

func TestAdjustTrustClamps(t *testing.T) {
	d := NewDevice("aa:bb:cc:dd:ee:ff", time.Now())
	d.AdjustTrust(1000)
	if d.TrustScore != TrustMax {
		t.Errorf("trust = %d, want %d", d.TrustScore, TrustMax)
	}
	d.AdjustTrust(-1000)
	if d.TrustScore != TrustMin {
		t.Errorf("trust = %d, want %d", d.TrustScore, TrustMin)
	}
}

func TestSnapshotReturnsClones(t *testing.T) {
	reg := New(filepath.Join(t.TempDir(), "devices.json"))
	reg.Lock()
	reg.UpsertLocked("aa:bb:cc:dd:ee:ff", time.Now())
	reg.Unlock()

	snap := reg.Snapshot()
	snap[0].TrustScore = 1

	got, _ := reg.Get("aa:bb:cc:dd:ee:ff")
	if got.TrustScore != TrustInitial {
		t.Error("snapshot mutation leaked into registry")
	}
}
