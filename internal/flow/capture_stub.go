// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux

package flow

import (
	"context"

	"grimm.is/warden/internal/errors"
)

// LiveSource is unavailable off Linux. The loop logs the error and retries
// next cycle; tests use ChanSource.
type LiveSource struct {
	Iface  string
	Enrich func(Enrichment)
}

func NewLiveSource(iface string, enrich func(Enrichment)) *LiveSource {
	return &LiveSource{Iface: iface, Enrich: enrich}
}

func (s *LiveSource) Run(ctx context.Context, sink func(PacketInfo)) error {
	return errors.New(errors.KindUnavailable, "live capture requires linux")
}
