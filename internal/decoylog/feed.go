// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package decoylog

import (
	"context"

	"grimm.is/warden/internal/logging"
)

// Feed decouples decoy listeners from the on-disk log: interactions go
// through a bounded channel and a single writer goroutine, so a burst of
// decoy traffic cannot block a listener or interleave writes. The CSV
// stays the audit trail; the feed is how records get into it.
type Feed struct {
	log    *Log
	ch     chan Interaction
	logger *logging.Logger

	// OnRecord, if set, is called after each interaction is persisted.
	OnRecord func(Interaction)
}

// NewFeed creates a feed over the log with the given buffer size.
func NewFeed(log *Log, buf int) *Feed {
	return &Feed{
		log:    log,
		ch:     make(chan Interaction, buf),
		logger: logging.WithComponent("decoylog"),
	}
}

// Submit queues one interaction without blocking. When the buffer is full
// the interaction is dropped and counted against the log, not the caller.
func (f *Feed) Submit(in Interaction) bool {
	select {
	case f.ch <- in:
		return true
	default:
		f.logger.Warn("Decoy feed full, dropping interaction", "source_ip", in.SourceIP)
		return false
	}
}

// Start launches the writer goroutine. It drains remaining queued
// interactions after ctx is cancelled, then exits.
func (f *Feed) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				for {
					select {
					case in := <-f.ch:
						f.write(in)
					default:
						return
					}
				}
			case in := <-f.ch:
				f.write(in)
			}
		}
	}()
}

func (f *Feed) write(in Interaction) {
	if err := f.log.Append(in); err != nil {
		f.logger.Warn("Decoy log write failed", "error", err)
		return
	}
	if f.OnRecord != nil {
		f.OnRecord(in)
	}
}
