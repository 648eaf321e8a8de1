// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package defense

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Alert is one entry in the bounded alert ring, also streamed to dashboard
// subscribers.
type Alert struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	IP        string    `json:"ip"`
	MAC       string    `json:"mac,omitempty"`
	Type      string    `json:"type"`
	Action    string    `json:"action"`
	Score     int       `json:"score,omitempty"`
	Trust     int       `json:"trust,omitempty"`
}

// alertRing keeps the newest cap alerts and fans new ones out to
// subscribers. The slice is replaced, never mutated in place, so readers
// holding a returned slice never see it change.
type alertRing struct {
	mu     sync.Mutex
	alerts []Alert
	cap    int
	subs   []chan Alert
}

func newAlertRing(cap int) *alertRing {
	return &alertRing{cap: cap}
}

func (r *alertRing) push(a Alert) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	r.mu.Lock()
	next := make([]Alert, 0, len(r.alerts)+1)
	next = append(next, r.alerts...)
	next = append(next, a)
	if len(next) > r.cap {
		next = next[len(next)-r.cap:]
	}
	r.alerts = next
	subs := r.subs
	r.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- a:
		default: // slow subscriber loses this alert, the ring keeps it
		}
	}
}

// list returns the current ring, newest last.
func (r *alertRing) list() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.alerts
}

// subscribe returns a channel fed with every future alert.
func (r *alertRing) subscribe() chan Alert {
	ch := make(chan Alert, 16)
	r.mu.Lock()
	r.subs = append(r.subs, ch)
	r.mu.Unlock()
	return ch
}

func (r *alertRing) unsubscribe(ch chan Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.subs {
		if s == ch {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			break
		}
	}
}
