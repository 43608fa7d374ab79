package service

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oversightlabs/oversight/internal/models"
)

// invalidateChannel carries org IDs whose cached policies must be reloaded.
// A "*" payload flushes every org.
const invalidateChannel = "oversight:policy-invalidate"

const defaultPolicyTTL = 30 * time.Second

// PolicySet is the admission-time view of an organization's policies.
type PolicySet struct {
	Configs   []models.QuorumConfig
	AutoRules []models.AutoApprovalRule
}

// PolicyLister loads policy rows from storage.
type PolicyLister interface {
	ListQuorumConfigs(ctx context.Context, orgID string) ([]models.QuorumConfig, error)
	ListAutoApprovalRules(ctx context.Context, orgID string) ([]models.AutoApprovalRule, error)
}

type policyEntry struct {
	set      *PolicySet
	loadedAt time.Time
}

// PolicyCache keeps each org's policy set in memory so the admission hot
// path never waits on policy table reads. Entries expire after a short TTL;
// cross-instance edits are pushed through a Redis invalidation channel when
// a client is configured.
type PolicyCache struct {
	store PolicyLister
	rdb   *redis.Client
	log   *logrus.Logger
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[string]policyEntry
}

// NewPolicyCache creates a PolicyCache. rdb may be nil; the cache then
// relies on TTL expiry alone.
func NewPolicyCache(store PolicyLister, rdb *redis.Client, log *logrus.Logger, ttl time.Duration) *PolicyCache {
	if ttl <= 0 {
		ttl = defaultPolicyTTL
	}

	return &PolicyCache{
		store:   store,
		rdb:     rdb,
		log:     log,
		ttl:     ttl,
		entries: make(map[string]policyEntry),
	}
}

// Policies returns the org's policy set, loading it on miss or expiry.
func (c *PolicyCache) Policies(ctx context.Context, orgID string) (*PolicySet, error) {
	c.mu.RLock()
	entry, ok := c.entries[orgID]
	c.mu.RUnlock()

	if ok && time.Since(entry.loadedAt) < c.ttl {
		return entry.set, nil
	}

	configs, err := c.store.ListQuorumConfigs(ctx, orgID)
	if err != nil {
		return nil, err
	}

	rules, err := c.store.ListAutoApprovalRules(ctx, orgID)
	if err != nil {
		return nil, err
	}

	set := &PolicySet{Configs: configs, AutoRules: rules}

	c.mu.Lock()
	c.entries[orgID] = policyEntry{set: set, loadedAt: time.Now()}
	c.mu.Unlock()

	return set, nil
}

// Invalidate drops the org's cached entry and, when Redis is configured,
// tells the other instances to do the same.
func (c *PolicyCache) Invalidate(ctx context.Context, orgID string) {
	c.drop(orgID)

	if c.rdb == nil {
		return
	}

	if err := c.rdb.Publish(ctx, invalidateChannel, orgID).Err(); err != nil {
		c.log.WithError(err).Warn("policy invalidation publish failed")
	}
}

func (c *PolicyCache) drop(orgID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if orgID == "*" {
		c.entries = make(map[string]policyEntry)
		return
	}

	delete(c.entries, orgID)
}

// Listen subscribes to the invalidation channel and drops entries as
// messages arrive. It reconnects on failure and flushes the whole cache on
// every (re)connect, since invalidations may have been missed while
// disconnected. Call in a goroutine; returns when ctx is cancelled.
func (c *PolicyCache) Listen(ctx context.Context) {
	if c.rdb == nil {
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}

		pubsub := c.rdb.Subscribe(ctx, invalidateChannel)

		if _, err := pubsub.Receive(ctx); err != nil {
			pubsub.Close() //nolint:errcheck // closing a failed subscription.
			if ctx.Err() != nil {
				return
			}

			c.log.WithError(err).Warn("policy invalidation subscribe failed, retrying")

			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}

			continue
		}

		c.drop("*")

		ch := pubsub.Channel()

	recv:
		for {
			select {
			case <-ctx.Done():
				pubsub.Close() //nolint:errcheck // shutting down.
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				c.drop(msg.Payload)
			}
		}

		pubsub.Close() //nolint:errcheck // reconnecting after channel close.
	}
}
