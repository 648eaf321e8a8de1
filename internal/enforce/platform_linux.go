// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

package enforce

import "context"

// NewPlatform returns the nftables enforcer with its base ruleset installed.
func NewPlatform(ctx context.Context, apInterface string, decoyMap [][2]int) (Enforcer, error) {
	e := NewNFTEnforcer(apInterface, decoyMap)
	if err := e.Setup(ctx); err != nil {
		return nil, err
	}
	return e, nil
}
