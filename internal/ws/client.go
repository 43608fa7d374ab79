package ws

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeTimeout     = 10 * time.Second
	readLimit        = 4096
	clientSendBuffer = 256

	// Sockets are re-authenticated periodically and closed outright after
	// maxConnLifetime. A revoked API key must not keep receiving approval
	// events indefinitely.
	maxConnLifetime  = 4 * time.Hour
	revalidateEvery  = 15 * time.Minute
	revalidateWithin = 10 * time.Second

	pingInterval   = 30 * time.Second
	pingTimeout    = 10 * time.Second
	maxMissedPongs = int32(2)
)

// OrgValidator re-checks that an API key still maps to a live organization.
type OrgValidator interface {
	GetOrgByAPIKey(ctx context.Context, apiKey string) (string, error)
}

// Client is one WebSocket connection managed by the Hub.
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	log         *logrus.Logger
	OrgID       string
	apiKey      string
	validator   OrgValidator
	closeOnce   sync.Once
	connectedAt time.Time
}

// NewClient wraps an accepted WebSocket connection. The caller sets OrgID
// before registering with the hub.
func NewClient(hub *Hub, conn *websocket.Conn, validator OrgValidator, apiKey string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, clientSendBuffer),
		log:         hub.log,
		apiKey:      apiKey,
		validator:   validator,
		connectedAt: time.Now(),
	}
}

// closeSend closes the send channel exactly once.
func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// ReadPump consumes frames until the connection closes. Clients send one
// meaningful frame: a subscribe request carrying the last event ID they saw.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.CloseNow() //nolint:errcheck // teardown
	}()

	c.conn.SetReadLimit(readLimit)

	for {
		_, frame, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				c.log.WithField("status", websocket.CloseStatus(err)).Debug("client disconnected")
			}
			return
		}

		c.handleFrame(frame)
	}
}

func (c *Client) handleFrame(frame []byte) {
	var msg subscribeMsg
	if err := json.Unmarshal(frame, &msg); err != nil || msg.Type != "subscribe" {
		return
	}

	if c.hub.replay(c, msg.LastEventID) {
		return
	}

	// Replay window no longer covers the requested ID; tell the client to
	// refetch state over the REST API.
	reset, err := json.Marshal(resetMsg{
		Type:   "reset",
		Reason: "requested events no longer available, perform full refresh",
	})
	if err != nil {
		return
	}
	select {
	case c.send <- reset:
	default:
	}
}

// WritePump pushes queued events to the connection. It also owns the
// keepalive pings, periodic re-authentication, and the lifetime cap.
func (c *Client) WritePump(ctx context.Context) {
	defer c.conn.CloseNow() //nolint:errcheck // teardown

	lifetime := time.NewTimer(time.Until(c.connectedAt.Add(maxConnLifetime)))
	defer lifetime.Stop()

	revalidate := time.NewTicker(revalidateEvery)
	defer revalidate.Stop()

	pings := time.NewTicker(pingInterval)
	defer pings.Stop()

	var missedPongs atomic.Int32

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()

			if err != nil {
				c.log.WithError(err).Debug("write failed")
				return
			}

		case <-pings.C:
			if !c.ping(ctx, &missedPongs) {
				return
			}

		case <-revalidate.C:
			if !c.stillAuthorized(ctx) {
				c.log.Info("closing WebSocket: api key no longer valid")
				c.conn.Close(websocket.StatusPolicyViolation, "authentication expired") //nolint:errcheck
				return
			}

		case <-lifetime.C:
			c.log.Info("closing WebSocket: max connection lifetime exceeded")
			c.conn.Close(websocket.StatusNormalClosure, "max connection lifetime exceeded") //nolint:errcheck
			return
		}
	}
}

// ping sends a keepalive and reports whether the connection is still good.
// Two consecutive missed pongs close it.
func (c *Client) ping(ctx context.Context, missedPongs *atomic.Int32) bool {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := c.conn.Ping(pingCtx)
	cancel()

	if err != nil {
		if missedPongs.Add(1) >= maxMissedPongs {
			c.log.Debug("closing: consecutive missed pongs")
			return false
		}
		return true
	}

	missedPongs.Store(0)
	return true
}

func (c *Client) stillAuthorized(ctx context.Context) bool {
	if c.validator == nil {
		return true
	}

	checkCtx, cancel := context.WithTimeout(ctx, revalidateWithin)
	defer cancel()

	_, err := c.validator.GetOrgByAPIKey(checkCtx, c.apiKey)
	return err == nil
}
