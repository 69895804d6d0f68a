// Package pubsub implements the subscription/pub-sub layer (component C7):
// a topic store with insertion-ordered subscriber lists, full "*"/"**"
// wildcard matching, and best-effort fan-out.
package pubsub

import (
	"sync"
	"sync/atomic"

	"github.com/obinexus/polycall-core/internal/corectx"
)

// Callback receives a topic's published payload.
type Callback func(topic string, data []byte)

type subscriber struct {
	id       uint64
	callback Callback
	user     any
}

type topicEntry struct {
	pattern     string
	subscribers []subscriber
}

// Config controls the context's capacity ceilings and matching behavior
// (spec §6 knobs: max_subscriptions, max_subscribers_per_topic,
// enable_wildcards, case_sensitive).
type Config struct {
	MaxSubscriptions       int
	MaxSubscribersPerTopic int
	EnableWildcards        bool
	CaseSensitive          bool
}

// Context is one subscription context: one lock guarding its topic store
// (spec §5: "C7 uses one lock per subscription context; publish fan-out
// holds it for read").
type Context struct {
	cfg Config

	mu               sync.RWMutex
	topics           map[string]*topicEntry
	totalSubs        int
	nextID           uint64
	deliveryFailures atomic.Uint64
}

// New creates a subscription Context.
func New(cfg Config) *Context {
	return &Context{cfg: cfg, topics: make(map[string]*topicEntry), nextID: 1}
}

// Subscribe registers cb under topic, creating the topic if it does not
// exist. Id allocation is monotonic; 0 is reserved as invalid.
func (c *Context) Subscribe(topic string, cb Callback, user any) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.MaxSubscriptions > 0 && c.totalSubs >= c.cfg.MaxSubscriptions {
		return 0, corectx.New("pubsub", corectx.CodeCapacityExceeded, "max_subscriptions reached")
	}

	t, ok := c.topics[topic]
	if !ok {
		t = &topicEntry{pattern: topic}
		c.topics[topic] = t
	}
	if c.cfg.MaxSubscribersPerTopic > 0 && len(t.subscribers) >= c.cfg.MaxSubscribersPerTopic {
		return 0, corectx.New("pubsub", corectx.CodeCapacityExceeded, "max_subscribers_per_topic reached").WithContext(topic)
	}

	id := c.nextID
	c.nextID++
	t.subscribers = append(t.subscribers, subscriber{id: id, callback: cb, user: user})
	c.totalSubs++
	return id, nil
}

// Unsubscribe removes id via linear find-and-shift. When a topic reaches
// zero subscribers it is removed and its storage freed.
func (c *Context) Unsubscribe(id uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for topic, t := range c.topics {
		for i, sub := range t.subscribers {
			if sub.id != id {
				continue
			}
			t.subscribers = append(t.subscribers[:i], t.subscribers[i+1:]...)
			c.totalSubs--
			if len(t.subscribers) == 0 {
				delete(c.topics, topic)
			}
			return nil
		}
	}
	return corectx.New("pubsub", corectx.CodeNotFound, "unknown subscription id")
}

// Publish notifies direct subscribers of topic in insertion order, then —
// if wildcard matching is enabled — every other topic whose pattern
// matches the published topic string. Delivery is best-effort: a panic or
// callback failure is never surfaced to the publisher, but increments
// DeliveryFailures. Callers that want to report a handler's own error must
// do so from inside the callback (e.g. by returning via channel).
func (c *Context) Publish(topic string, data []byte) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if direct, ok := c.topics[topic]; ok {
		c.deliverTo(direct, topic, data)
	}

	if !c.cfg.EnableWildcards {
		return
	}
	for pattern, t := range c.topics {
		if pattern == topic {
			continue
		}
		if matchPattern(pattern, topic, c.cfg.CaseSensitive) {
			c.deliverTo(t, topic, data)
		}
	}
}

func (c *Context) deliverTo(t *topicEntry, topic string, data []byte) {
	for _, sub := range t.subscribers {
		c.safeDeliver(sub, topic, data)
	}
}

func (c *Context) safeDeliver(sub subscriber, topic string, data []byte) {
	defer func() {
		if recover() != nil {
			c.deliveryFailures.Add(1)
		}
	}()
	sub.callback(topic, data)
}

// DeliveryFailures returns the count of callbacks that panicked during
// fan-out.
func (c *Context) DeliveryFailures() uint64 {
	return c.deliveryFailures.Load()
}

// TopicCount returns the number of distinct topics currently tracked.
func (c *Context) TopicCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.topics)
}
