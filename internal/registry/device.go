// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package registry

import (
	"time"
)

// Trust bounds. Scores are clamped into this range after every update.
const (
	TrustMin     = 0
	TrustMax     = 100
	TrustInitial = 50
)

// Device is the persistent per-device record. The MAC is the identity; the
// IP is whatever the presence evidence last reported and may change or be
// unknown.
type Device struct {
	MAC       string    `json:"mac"`
	IP        string    `json:"ip,omitempty"`
	Hostname  string    `json:"hostname,omitempty"`
	Vendor    string    `json:"vendor,omitempty"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`

	TrustScore int `json:"trust_score"`

	// Protection flags. Isolated implies Redirected; the engine maintains
	// that invariant on every transition.
	Redirected  bool `json:"redirected"`
	Isolated    bool `json:"isolated"`
	Quarantined bool `json:"quarantined"`
}

// NewDevice returns the initial record for a first-seen MAC: probationary,
// neutral trust, no enforcement.
func NewDevice(mac string, now time.Time) *Device {
	return &Device{
		MAC:         mac,
		FirstSeen:   now,
		LastSeen:    now,
		TrustScore:  TrustInitial,
		Quarantined: true,
	}
}

// AdjustTrust applies a delta and clamps the result to [TrustMin, TrustMax].
func (d *Device) AdjustTrust(delta int) {
	d.TrustScore += delta
	d.ClampTrust()
}

// ClampTrust forces the score back into bounds.
func (d *Device) ClampTrust() {
	if d.TrustScore > TrustMax {
		d.TrustScore = TrustMax
	}
	if d.TrustScore < TrustMin {
		d.TrustScore = TrustMin
	}
}

// SetIsolated contains the device. Containment subsumes deception, so the
// redirect flag comes along.
func (d *Device) SetIsolated() {
	d.Isolated = true
	d.Redirected = true
}

// Age returns the time since the device was first observed.
func (d *Device) Age(now time.Time) time.Duration {
	return now.Sub(d.FirstSeen)
}

// Online reports whether presence evidence was seen within the window.
func (d *Device) Online(now time.Time, offlineAfter time.Duration) bool {
	return now.Sub(d.LastSeen) <= offlineAfter
}

// Clone returns a copy safe to hand outside the registry lock.
func (d *Device) Clone() *Device {
	c := *d
	return &c
}
