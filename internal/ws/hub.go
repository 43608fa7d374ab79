// Package ws pushes approval lifecycle events to connected clients over
// WebSocket. Reviewer dashboards subscribe per org and see admissions,
// decisions, escalations, and expirations as they happen.
package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oversightlabs/oversight/internal/metrics"
)

const (
	broadcastBuffer = 256
	registerBuffer  = 64

	// Connection caps. A dashboard opens one socket; dozens per org means
	// something is reconnect-looping.
	maxConnections    = 1000
	maxOrgConnections = 50

	// maxEventPayload bounds a single broadcast frame. Events carry request
	// summaries, not full payloads.
	maxEventPayload = 4096

	// drainTimeout is how long Shutdown waits for client buffers to flush.
	drainTimeout = 3 * time.Second
)

type orgBroadcast struct {
	orgID string
	msg   []byte
}

// Hub owns all active WebSocket clients. Every mutation of the client set
// happens in the Run goroutine; the other methods only post to channels.
type Hub struct {
	clients    map[*Client]bool
	orgConns   map[string]int
	register   chan *Client
	unregister chan *Client
	broadcast  chan orgBroadcast
	shutdown   chan struct{}
	done       chan struct{}
	count      atomic.Int64
	log        *logrus.Logger
	seq        *sequencer
	buffer     *replayBuffer
}

// NewHub creates a Hub. Call Run to start the event loop.
func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		orgConns:   make(map[string]int),
		register:   make(chan *Client, registerBuffer),
		unregister: make(chan *Client, registerBuffer),
		broadcast:  make(chan orgBroadcast, broadcastBuffer),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		log:        log,
		seq:        newSequencer(),
		buffer:     newReplayBuffer(replayMaxEvents, replayMaxAge),
	}
}

// Run is the hub event loop. It exits after Shutdown is called or ctx is
// cancelled, draining connected clients on the way out.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	defer h.buffer.Stop()

	for {
		select {
		case <-ctx.Done():
			h.drainClients()
			return
		case <-h.shutdown:
			h.drainClients()
			return

		case client := <-h.register:
			h.admit(client)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.dropClient(client)
			}
			h.publishCount()
			h.log.WithField("total", len(h.clients)).Info("client unregistered")

		case b := <-h.broadcast:
			for client := range h.clients {
				if client.OrgID != b.orgID {
					continue
				}
				select {
				case client.send <- b.msg:
				default:
					// Slow consumer: drop the connection rather than
					// block every other client's delivery.
					h.dropClient(client)
				}
			}
			h.publishCount()
		}
	}
}

// admit applies connection caps and registers the client. Run goroutine only.
func (h *Hub) admit(client *Client) {
	if len(h.clients) >= maxConnections {
		h.log.Warn("global connection limit reached, dropping client")
		client.closeSend()
		return
	}
	if h.orgConns[client.OrgID] >= maxOrgConnections {
		h.log.WithField("org_id", client.OrgID).Warn("per-org connection limit reached, dropping client")
		client.closeSend()
		return
	}

	h.clients[client] = true
	h.orgConns[client.OrgID]++
	h.publishCount()
	h.log.WithField("total", len(h.clients)).Info("client registered")
}

// dropClient removes a client and fixes the org counter. Run goroutine only.
func (h *Hub) dropClient(client *Client) {
	delete(h.clients, client)
	client.closeSend()
	h.orgConns[client.OrgID]--
	if h.orgConns[client.OrgID] <= 0 {
		delete(h.orgConns, client.OrgID)
	}
}

func (h *Hub) publishCount() {
	h.count.Store(int64(len(h.clients)))
	metrics.WSConnections.Set(float64(len(h.clients)))
}

// Register hands a client to the Run goroutine.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	default:
		h.log.Warn("register channel full, dropping client")
		c.closeSend()
	}
}

// Unregister removes a client. Safe to call after Run has exited.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	default:
		// Run already drained; nothing left to clean up.
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// BroadcastToOrg delivers a raw message to every client of the org. The
// send happens on the Run goroutine; if the broadcast channel is full the
// message is dropped, since clients can recover via replay.
func (h *Hub) BroadcastToOrg(orgID string, msg []byte) {
	if len(msg) > maxEventPayload {
		h.log.WithFields(logrus.Fields{
			"org_id":       orgID,
			"payload_size": len(msg),
			"max_size":     maxEventPayload,
		}).Warn("dropping oversized broadcast payload")
		return
	}
	select {
	case h.broadcast <- orgBroadcast{orgID: orgID, msg: msg}:
	default:
		h.log.Warn("broadcast channel full, dropping message")
	}
}

// BroadcastEvent stamps data with the org's next sequence ID, buffers it
// for replay, and broadcasts it.
func (h *Hub) BroadcastEvent(eventType, orgID string, data json.RawMessage) {
	evt := Event{
		Type:  eventType,
		ID:    h.seq.Next(orgID),
		OrgID: orgID,
		Data:  data,
		Time:  time.Now(),
	}

	msg, err := json.Marshal(evt)
	if err != nil {
		h.log.WithError(err).Error("failed to marshal event")
		return
	}

	h.buffer.Append(orgID, &evt)
	h.BroadcastToOrg(orgID, msg)
}

// Shutdown drains connected clients and blocks until Run has finished.
func (h *Hub) Shutdown() {
	close(h.shutdown)
	<-h.done
}

// drainClients notifies every client the server is going away, gives their
// write pumps a moment to flush, then closes everything. Run goroutine only.
func (h *Hub) drainClients() {
	if len(h.clients) == 0 {
		return
	}

	h.log.WithField("clients", len(h.clients)).Info("draining WebSocket clients")

	shutdownMsg := []byte(`{"type":"shutdown","message":"server shutting down"}`)
	for client := range h.clients {
		select {
		case client.send <- shutdownMsg:
		default:
		}
	}

	deadline := time.After(drainTimeout)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

wait:
	for {
		pending := false
		for client := range h.clients {
			if len(client.send) > 0 {
				pending = true
				break
			}
		}
		if !pending {
			break
		}

		select {
		case <-deadline:
			h.log.Warn("WebSocket drain timeout, closing remaining clients")
			break wait
		case <-ticker.C:
		}
	}

	for client := range h.clients {
		client.closeSend()
		delete(h.clients, client)
	}

	h.orgConns = make(map[string]int)
	h.publishCount()
}

// replay sends buffered events after lastEventID to the client. It returns
// false when the requested ID has already aged out of the buffer.
func (h *Hub) replay(client *Client, lastEventID uint64) bool {
	oldest := h.buffer.OldestID(client.OrgID)
	if oldest > 0 && lastEventID > 0 && lastEventID < oldest {
		return false
	}

	for _, evt := range h.buffer.Since(client.OrgID, lastEventID) {
		msg, err := json.Marshal(evt)
		if err != nil {
			continue
		}
		select {
		case client.send <- msg:
		default:
			// Send buffer full; the client will request replay again.
			return true
		}
	}
	return true
}
