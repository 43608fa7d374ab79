package ws

import (
	"encoding/json"
	"sync"
	"time"
)

// Event is the wire format pushed to connected reviewer dashboards. IDs are
// monotonic per org so a reconnecting client can resume from the last event
// it saw.
type Event struct {
	Type  string          `json:"type"`
	ID    uint64          `json:"id"`
	OrgID string          `json:"-"`
	Data  json.RawMessage `json:"data"`
	Time  time.Time       `json:"time"`
}

// subscribeMsg is the first frame a client sends to request replay.
type subscribeMsg struct {
	Type        string `json:"type"`
	LastEventID uint64 `json:"last_event_id"`
}

// resetMsg tells a client its requested events fell out of the replay
// window and a full refresh is needed.
type resetMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// sequencer hands out monotonic event IDs per org.
type sequencer struct {
	mu   sync.Mutex
	next map[string]uint64
}

func newSequencer() *sequencer {
	return &sequencer{next: make(map[string]uint64)}
}

func (s *sequencer) Next(orgID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next[orgID]++
	return s.next[orgID]
}
