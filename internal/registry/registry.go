// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package registry holds the canonical in-memory device table keyed by MAC
// and persists it as a JSON snapshot at the end of every cycle.
//
// Locking model: one mutex guards the table. The loop driver holds the lock
// for its entire analyze phase (Lock/Unlock plus the *Locked accessors) so
// concurrent dashboard reads observe either the prior or the next consistent
// state, never a torn mix. Short-lived callers use the self-locking methods.
package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"grimm.is/warden/internal/errors"
	"grimm.is/warden/internal/logging"
)

// Registry is the canonical device table.
type Registry struct {
	mu      sync.Mutex
	devices map[string]*Device
	path    string
	logger  *logging.Logger
}

// New creates an empty registry persisting to path.
func New(path string) *Registry {
	return &Registry{
		devices: make(map[string]*Device),
		path:    path,
		logger:  logging.WithComponent("registry"),
	}
}

// Lock takes the registry lock for a multi-step phase.
func (r *Registry) Lock() { r.mu.Lock() }

// Unlock releases the registry lock.
func (r *Registry) Unlock() { r.mu.Unlock() }

// UpsertLocked returns the device for mac, creating it with the initial
// probationary state if unknown. Caller must hold the lock.
func (r *Registry) UpsertLocked(mac string, now time.Time) *Device {
	d, ok := r.devices[mac]
	if !ok {
		d = NewDevice(mac, now)
		r.devices[mac] = d
		r.logger.Info("New device observed", "mac", mac)
	}
	return d
}

// GetLocked returns the device for mac, or nil. Caller must hold the lock.
func (r *Registry) GetLocked(mac string) *Device {
	return r.devices[mac]
}

// FindByIPLocked returns the device currently holding ip, or nil.
// Caller must hold the lock.
func (r *Registry) FindByIPLocked(ip string) *Device {
	for _, d := range r.devices {
		if d.IP == ip {
			return d
		}
	}
	return nil
}

// DevicesLocked returns the live records sorted by MAC. Caller must hold the
// lock; the pointers remain owned by the registry.
func (r *Registry) DevicesLocked() []*Device {
	out := make([]*Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MAC < out[j].MAC })
	return out
}

// LenLocked returns the device count. Caller must hold the lock.
func (r *Registry) LenLocked() int { return len(r.devices) }

// Get returns a copy of the device for mac.
func (r *Registry) Get(mac string) (*Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[mac]
	if !ok {
		return nil, false
	}
	return d.Clone(), true
}

// Snapshot returns copies of every record sorted by MAC.
func (r *Registry) Snapshot() []*Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MAC < out[j].MAC })
	return out
}

// Save writes the whole table to disk as a MAC-keyed JSON object. The write
// goes through a temp file and rename so readers never see a partial file.
func (r *Registry) Save() error {
	r.mu.Lock()
	dump := make(map[string]*Device, len(r.devices))
	for mac, d := range r.devices {
		dump[mac] = d.Clone()
	}
	r.mu.Unlock()

	data, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "marshaling registry")
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return errors.Wrap(err, errors.KindInternal, "creating data dir")
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, errors.KindInternal, "writing registry snapshot")
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return errors.Wrap(err, errors.KindInternal, "committing registry snapshot")
	}
	return nil
}

// Load replaces the table from the on-disk snapshot. A missing or corrupt
// file starts the registry empty; the gateway must come up regardless.
func (r *Registry) Load() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		r.logger.Warn("Registry snapshot unreadable, starting empty", "path", r.path, "error", err)
		return nil
	}

	var dump map[string]*Device
	if err := json.Unmarshal(data, &dump); err != nil {
		r.logger.Warn("Registry snapshot corrupt, starting empty", "path", r.path, "error", err)
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices = make(map[string]*Device, len(dump))
	for mac, d := range dump {
		if d == nil || d.MAC == "" {
			continue
		}
		d.ClampTrust()
		if d.Isolated {
			d.Redirected = true
		}
		r.devices[mac] = d
	}
	r.logger.Info("Registry restored", "devices", len(r.devices))
	return nil
}
