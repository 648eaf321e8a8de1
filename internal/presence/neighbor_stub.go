// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux

package presence

import (
	"context"

	"grimm.is/warden/internal/errors"
)

// NeighborSource is unavailable off Linux; the trinity degrades to the other
// two sources.
type NeighborSource struct{}

func NewNeighborSource() *NeighborSource { return &NeighborSource{} }

func (s *NeighborSource) Name() string { return "neighbor" }

func (s *NeighborSource) Poll(ctx context.Context) ([]Observation, error) {
	return nil, errors.New(errors.KindUnavailable, "neighbor table requires linux")
}
