// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package enforce

import (
	"context"
	"sync"
)

// SimEnforcer tracks membership in memory instead of touching nftables.
// Used on non-Linux builds, in tests, and under --sim.
type SimEnforcer struct {
	mu        sync.Mutex
	Deceived  map[string]bool
	Contained map[string]bool
	Banned    map[string]bool
	Limited   map[string]bool
	Kicked    []string
	Locked    bool
}

func NewSimEnforcer() *SimEnforcer {
	return &SimEnforcer{
		Deceived:  make(map[string]bool),
		Contained: make(map[string]bool),
		Banned:    make(map[string]bool),
		Limited:   make(map[string]bool),
	}
}

func (s *SimEnforcer) Redirect(_ context.Context, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deceived[ip] = true
	return nil
}

func (s *SimEnforcer) Isolate(_ context.Context, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Contained[ip] = true
	return nil
}

func (s *SimEnforcer) BlockMAC(_ context.Context, mac string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Banned[mac] = true
	return nil
}

func (s *SimEnforcer) QuarantineMAC(_ context.Context, mac, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deceived[ip] = true
	s.Limited[mac] = true
	return nil
}

func (s *SimEnforcer) Kick(_ context.Context, mac string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Kicked = append(s.Kicked, mac)
	return nil
}

func (s *SimEnforcer) Release(_ context.Context, ip, mac string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Deceived, ip)
	delete(s.Contained, ip)
	delete(s.Banned, mac)
	delete(s.Limited, mac)
	return nil
}

func (s *SimEnforcer) Lockdown(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Locked = true
	return nil
}
