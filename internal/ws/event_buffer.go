package ws

import (
	"sort"
	"sync"
	"time"
)

const (
	replayMaxEvents = 1000
	replayMaxAge    = 1 * time.Hour
)

// replayBuffer holds recent events per org so clients that drop and
// reconnect can catch up without a full refresh. Events age out after
// replayMaxAge; a reviewer who was offline longer than that gets a reset.
type replayBuffer struct {
	mu     sync.RWMutex
	byOrg  map[string][]Event
	maxAge time.Duration
	maxLen int
	stop   chan struct{}
}

func newReplayBuffer(maxLen int, maxAge time.Duration) *replayBuffer {
	rb := &replayBuffer{
		byOrg:  make(map[string][]Event),
		maxAge: maxAge,
		maxLen: maxLen,
		stop:   make(chan struct{}),
	}
	go rb.evictLoop()
	return rb
}

// Stop halts the background eviction goroutine.
func (rb *replayBuffer) Stop() {
	close(rb.stop)
}

func (rb *replayBuffer) evictLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rb.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-rb.maxAge)
			rb.mu.Lock()
			for org, buf := range rb.byOrg {
				if len(buf) == 0 || buf[len(buf)-1].Time.Before(cutoff) {
					delete(rb.byOrg, org)
				}
			}
			rb.mu.Unlock()
		}
	}
}

// Append records an event for replay, dropping anything past the age or
// length limits.
func (rb *replayBuffer) Append(orgID string, event *Event) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	buf := rb.byOrg[orgID]

	cutoff := time.Now().Add(-rb.maxAge)
	for len(buf) > 0 && buf[0].Time.Before(cutoff) {
		buf = buf[1:]
	}

	buf = append(buf, *event)
	if len(buf) > rb.maxLen {
		buf = buf[len(buf)-rb.maxLen:]
	}

	rb.byOrg[orgID] = buf
}

// Since returns a copy of the org's events with ID greater than
// lastEventID, or nil when nothing is buffered.
func (rb *replayBuffer) Since(orgID string, lastEventID uint64) []Event {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	buf := rb.byOrg[orgID]
	if len(buf) == 0 {
		return nil
	}

	// Events are appended in ID order, so binary search finds the resume
	// point.
	idx := sort.Search(len(buf), func(i int) bool { return buf[i].ID > lastEventID })
	if idx == len(buf) {
		return nil
	}

	out := make([]Event, len(buf)-idx)
	copy(out, buf[idx:])
	return out
}

// OldestID returns the earliest buffered event ID for the org, or 0 when
// the buffer is empty.
func (rb *replayBuffer) OldestID(orgID string) uint64 {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if buf := rb.byOrg[orgID]; len(buf) > 0 {
		return buf[0].ID
	}
	return 0
}
