// Package transport provides an in-process publish/subscribe message bus
// that decouples the playback core from its user interfaces. Components in
// different goroutines exchange typed messages over topics without holding
// references to each other, mirroring the message-port boundary between a
// page surface and a background worker.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrBusClosed is returned when publishing or subscribing on a closed bus.
var ErrBusClosed = errors.New("transport: bus is closed")

// subscriptionBuffer bounds each subscriber's pending message queue. A
// subscriber that stops draining eventually blocks publishers rather than
// growing without bound.
const subscriptionBuffer = 64

// Topic names a message channel on the bus.
type Topic string

// Message is one bus delivery. ReplyTo is set on request messages and names
// the topic the responder should publish its answer to.
type Message struct {
	Topic   Topic
	Payload any
	ReplyTo Topic
}

// Subscription receives messages for the topics it was created with. A
// subscription must be closed when no longer needed or publishers to its
// topics will eventually block on its buffer. Closing unblocks any
// publisher currently waiting on that buffer.
type Subscription struct {
	bus     *Bus
	topics  []Topic
	ch      chan Message
	done    chan struct{}
	senders sync.WaitGroup
	once    sync.Once
}

// C returns the subscription's receive channel. The channel is closed when
// the subscription or its bus is closed.
func (s *Subscription) C() <-chan Message {
	return s.ch
}

// Close removes the subscription from the bus and closes its channel.
// Close is safe to call more than once, and from a goroutine whose
// publishers are blocked on this subscription's buffer.
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		s.bus.remove(s)
		// Publishers registered before the removal may still be mid-send;
		// done is closed, so none of them can block. Wait for them before
		// closing the channel.
		s.senders.Wait()
		close(s.ch)
	})
}

// Bus routes messages from publishers to topic subscribers. Delivery to each
// subscriber preserves publish order. The zero value is not usable; create
// buses with NewBus.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Topic][]*Subscription
	closed bool
}

// NewBus returns an empty, open bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Topic][]*Subscription)}
}

// Subscribe registers interest in one or more topics. It returns a nil
// subscription if the bus is already closed.
func (b *Bus) Subscribe(topics ...Topic) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	sub := &Subscription{
		bus:    b,
		topics: topics,
		ch:     make(chan Message, subscriptionBuffer),
		done:   make(chan struct{}),
	}
	for _, topic := range topics {
		b.subs[topic] = append(b.subs[topic], sub)
	}
	return sub
}

// Publish delivers payload to every current subscriber of topic. It blocks
// only if a subscriber's buffer is full. Publishing on a closed bus or a
// topic with no subscribers is a no-op.
func (b *Bus) Publish(topic Topic, payload any) {
	b.publish(Message{Topic: topic, Payload: payload})
}

func (b *Bus) publish(msg Message) {
	// Snapshot the subscriber list and register as an in-flight sender
	// under the lock, then deliver outside it. Holding the lock across a
	// blocking send would deadlock against Close, which needs the write
	// lock to detach the subscription that is blocking us.
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	targets := append([]*Subscription(nil), b.subs[msg.Topic]...)
	for _, sub := range targets {
		sub.senders.Add(1)
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		select {
		case sub.ch <- msg:
		case <-sub.done:
		}
		sub.senders.Done()
	}
}

// Request publishes payload on topic and waits for a single response on a
// private reply topic, or for ctx to end. The responder side uses Reply.
func (b *Bus) Request(ctx context.Context, topic Topic, payload any) (any, error) {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return nil, ErrBusClosed
	}

	replyTopic := Topic("reply." + uuid.NewString())
	sub := b.Subscribe(replyTopic)
	if sub == nil {
		return nil, ErrBusClosed
	}
	defer sub.Close()

	b.publish(Message{Topic: topic, Payload: payload, ReplyTo: replyTopic})

	select {
	case msg, ok := <-sub.C():
		if !ok {
			return nil, ErrBusClosed
		}
		return msg.Payload, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("transport: request on %q: %w", topic, ctx.Err())
	}
}

// Reply answers a request message. It is a no-op when req carries no
// ReplyTo topic.
func (b *Bus) Reply(req Message, payload any) {
	if req.ReplyTo == "" {
		return
	}
	b.Publish(req.ReplyTo, payload)
}

// Close shuts the bus down: all subscriptions are removed and their
// channels closed, and further publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true

	seen := make(map[*Subscription]struct{})
	for _, subs := range b.subs {
		for _, sub := range subs {
			seen[sub] = struct{}{}
		}
	}
	b.subs = make(map[Topic][]*Subscription)
	b.mu.Unlock()

	for sub := range seen {
		sub.once.Do(func() {
			close(sub.done)
			sub.senders.Wait()
			close(sub.ch)
		})
	}
}

// remove detaches sub from every topic it was registered on.
func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, topic := range sub.topics {
		subs := b.subs[topic]
		for i, s := range subs {
			if s == sub {
				b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
	}
}
