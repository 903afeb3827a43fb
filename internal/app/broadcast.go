package app

import (
	"sync"
	"time"

	"journey-quiz-service/internal/domain"
)

// LiveBroadcaster fans out standings snapshots to the observers of a
// session. Delivery is best-effort: a slow subscriber may miss intermediate
// snapshots, but the latest full snapshot always lands, so missed states
// are harmless. Subscribing always yields an immediate snapshot.
type LiveBroadcaster struct {
	mu    sync.Mutex
	feeds map[string]*sessionFeed
}

type sessionFeed struct {
	subscribers map[chan domain.Standings]struct{}
	latest      domain.Standings
	hasLatest   bool
}

func NewLiveBroadcaster() *LiveBroadcaster {
	return &LiveBroadcaster{feeds: make(map[string]*sessionFeed)}
}

func (b *LiveBroadcaster) feed(sessionID string) *sessionFeed {
	f, ok := b.feeds[sessionID]
	if !ok {
		f = &sessionFeed{subscribers: make(map[chan domain.Standings]struct{})}
		b.feeds[sessionID] = f
	}
	return f
}

// Subscribe registers an observer for a session. The first message on the
// channel is the current snapshot. The caller must invoke the returned
// cancel function to avoid leaks.
func (b *LiveBroadcaster) Subscribe(sessionID string) (<-chan domain.Standings, func()) {
	ch := make(chan domain.Standings, 8)

	b.mu.Lock()
	f := b.feed(sessionID)
	f.subscribers[ch] = struct{}{}
	initial := f.latest
	if !f.hasLatest {
		initial = domain.Standings{ScopeID: sessionID, UpdatedAt: time.Now()}
	}
	b.mu.Unlock()

	ch <- initial

	cancel := func() {
		b.mu.Lock()
		if f, ok := b.feeds[sessionID]; ok {
			if _, ok := f.subscribers[ch]; ok {
				delete(f.subscribers, ch)
				close(ch)
			}
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish records the snapshot as the session's latest and pushes it to
// every subscriber. A snapshot whose version is older than the recorded
// latest arrived out of order and is discarded; stale buffered snapshots
// are dropped so a slow reader always sees the newest state next.
func (b *LiveBroadcaster) Publish(sessionID string, standings domain.Standings) {
	b.mu.Lock()
	defer b.mu.Unlock()

	f := b.feed(sessionID)
	if f.hasLatest && standings.Version < f.latest.Version {
		return
	}
	f.latest = standings
	f.hasLatest = true

	for ch := range f.subscribers {
		select {
		case ch <- standings:
		default:
			// Drop one stale snapshot to make room for the latest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- standings:
			default:
			}
		}
	}
}

// Latest returns the most recent snapshot for a session, if one exists.
func (b *LiveBroadcaster) Latest(sessionID string) (domain.Standings, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, ok := b.feeds[sessionID]
	if !ok || !f.hasLatest {
		return domain.Standings{}, false
	}
	return f.latest, true
}
