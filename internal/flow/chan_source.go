// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package flow

import "context"

// ChanSource feeds packets from an in-memory channel. Used by tests and by
// replay tooling in place of a live capture handle.
type ChanSource struct {
	C chan PacketInfo
}

// NewChanSource creates a buffered channel source.
func NewChanSource(buf int) *ChanSource {
	return &ChanSource{C: make(chan PacketInfo, buf)}
}

// Run drains the channel into sink until ctx is done or the channel closes.
func (s *ChanSource) Run(ctx context.Context, sink func(PacketInfo)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case pkt, ok := <-s.C:
			if !ok {
				return nil
			}
			sink(pkt)
		}
	}
}
