package jobs

import (
	"sync"
)

// subscriberBuffer bounds how far a subscriber may fall behind before updates
// are dropped on its channel. Snapshots are last-write-wins, so a skipped
// intermediate update is recovered by the next one.
const subscriberBuffer = 8

// Broadcaster fans job snapshots out to per-job subscriber sets. It holds the
// latest snapshot per job so late subscribers catch up immediately, and it
// closes all subscriber channels when a job reaches a terminal state.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[string]map[chan Snapshot]struct{}
	latest      map[string]Snapshot
	done        map[string]Snapshot
}

// NewBroadcaster builds an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]map[chan Snapshot]struct{}),
		latest:      make(map[string]Snapshot),
		done:        make(map[string]Snapshot),
	}
}

// Subscribe registers an observer for a job. The channel first carries the
// job's current snapshot (fallback when the broadcaster has not seen the job
// yet), then every subsequent publish. If the job already finished, the
// channel carries the terminal snapshot and is closed immediately. The cancel
// function is safe to call more than once and after the channel closed.
func (b *Broadcaster) Subscribe(jobID string, fallback Snapshot) (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, subscriberBuffer)

	b.mu.Lock()
	if terminal, ok := b.done[jobID]; ok {
		b.mu.Unlock()
		ch <- terminal
		close(ch)
		return ch, func() {}
	}

	current, ok := b.latest[jobID]
	if !ok {
		current = fallback
	}
	set, ok := b.subscribers[jobID]
	if !ok {
		set = make(map[chan Snapshot]struct{})
		b.subscribers[jobID] = set
	}
	set[ch] = struct{}{}
	// Buffered and freshly created, the send cannot block. It happens under
	// the lock so a concurrent Publish can neither close the channel first
	// nor slip a newer snapshot in ahead of the initial one.
	ch <- current
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if set, ok := b.subscribers[jobID]; ok {
				if _, member := set[ch]; member {
					delete(set, ch)
					close(ch)
					if len(set) == 0 {
						delete(b.subscribers, jobID)
					}
				}
			}
		})
	}
	return ch, cancel
}

// Publish fans a snapshot out to the job's subscribers. Slow subscribers are
// skipped rather than blocked on. A terminal snapshot closes every subscriber
// channel and is replayed to anyone subscribing afterwards.
func (b *Broadcaster) Publish(jobID string, snap Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, finished := b.done[jobID]; finished {
		return
	}

	b.latest[jobID] = snap
	set := b.subscribers[jobID]

	terminal := snap.Status.Terminal()
	for ch := range set {
		select {
		case ch <- snap:
		default:
			if terminal {
				// The terminal snapshot must land even on a lagging
				// subscriber; evict the oldest buffered update to make room.
				select {
				case <-ch:
				default:
				}
				ch <- snap
			}
		}
	}

	if terminal {
		b.done[jobID] = snap
		delete(b.latest, jobID)
		for ch := range set {
			close(ch)
		}
		delete(b.subscribers, jobID)
	}
}
