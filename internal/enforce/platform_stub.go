// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux
// +build !linux

package enforce

import "context"

// NewPlatform returns the in-memory enforcer on platforms without nftables.
func NewPlatform(_ context.Context, _ string, _ [][2]int) (Enforcer, error) {
	return NewSimEnforcer(), nil
}
