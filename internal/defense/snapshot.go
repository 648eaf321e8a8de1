// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package defense

import (
	"time"
)

// Flags mirrors the device protection flags for the dashboard.
type Flags struct {
	Redirected  bool `json:"redirected"`
	Isolated    bool `json:"isolated"`
	Quarantined bool `json:"quarantined"`
}

// DeviceView is one row of the published device list.
type DeviceView struct {
	IP         string    `json:"ip,omitempty"`
	MAC        string    `json:"mac"`
	Hostname   string    `json:"hostname,omitempty"`
	Packets    int64     `json:"packets"`
	Ports      int       `json:"ports"`
	Status     string    `json:"status"`
	TrustScore int       `json:"trust_score"`
	LastSeen   time.Time `json:"last_seen"`
	Flags      Flags     `json:"flags"`
}

// Snapshot is the read-only cycle output the API serves. Replaced by
// reference at cycle end; never mutated after publication.
type Snapshot struct {
	Devices   []DeviceView `json:"devices"`
	UpdatedAt time.Time    `json:"updated_at"`
	Cycle     uint64       `json:"cycle"`
}
