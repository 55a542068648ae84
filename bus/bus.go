// bus.go
package bus

import (
	"context"
	"errors"
	"sync"
)

// -----------------------------------------------------------------------------
// Tokens + Topics
// -----------------------------------------------------------------------------

// Topic levels are plain comparable values: strings for names, ints for
// device or channel indexes. The two wildcards are ordinary string tokens
// used in subscription patterns, never in published topics.
const (
	WildOne  = "+" // matches exactly one level
	WildMany = "#" // matches zero or more trailing levels
)

// Topic is a sequence of tokens.
type Topic []any

// T validates a topic token. Routing compares tokens with == on trie map
// keys, so tokens must be comparable; T panics at the construction site
// instead of deep inside Publish.
func T(v any) any {
	probe := v
	_ = probe == v // panics for non-comparable dynamic types
	return v
}

// -----------------------------------------------------------------------------
// Message
// -----------------------------------------------------------------------------

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
	From     string
}

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection // owning connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// -----------------------------------------------------------------------------
// Trie node
// -----------------------------------------------------------------------------

type node struct {
	children map[any]*node
	subs     []*Subscription
	retained *Message
}

func (n *node) child(tok any, create bool) *node {
	if n.children == nil {
		if !create {
			return nil
		}
		n.children = make(map[any]*node)
	}
	c := n.children[tok]
	if c == nil && create {
		c = &node{}
		n.children[tok] = c
	}
	return c
}

func (n *node) walkRetained(out *[]*Message) {
	if n.retained != nil {
		*out = append(*out, n.retained)
	}
	for _, c := range n.children {
		c.walkRetained(out)
	}
}

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

type Bus struct {
	mu    sync.Mutex
	root  *node
	qLen  int
	reqID int
}

// NewBus creates a bus. queueLen sizes each subscription's buffered queue;
// a full queue loses its oldest message first.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8 // safe default
	}
	return &Bus{root: &node{}, qLen: queueLen}
}

// NewMessage builds a message without publishing it.
func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	for _, tok := range topic {
		T(tok)
	}
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// Publish delivers a message to every matching subscription and stores it
// when retained. Retained messages with a nil payload clear the slot.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if msg.Retained {
		n := b.root
		for _, tok := range msg.Topic {
			n = n.child(tok, true)
		}
		if msg.Payload == nil {
			n.retained = nil
		} else {
			n.retained = msg
		}
	}

	var subs []*Subscription
	match(b.root, msg.Topic, &subs)
	for _, s := range subs {
		offer(s, msg)
	}
}

// match walks the subscription trie against a concrete topic. A '#' node
// matches the whole remainder including the empty one, so {a, #} receives
// a publish on {a}.
func match(n *node, toks []any, out *[]*Subscription) {
	if n == nil {
		return
	}
	if h := n.child(WildMany, false); h != nil {
		*out = append(*out, h.subs...)
	}
	if len(toks) == 0 {
		*out = append(*out, n.subs...)
		return
	}
	match(n.child(toks[0], false), toks[1:], out)
	match(n.child(WildOne, false), toks[1:], out)
}

// collectRetained matches stored retained messages against a pattern.
func collectRetained(n *node, pat []any, out *[]*Message) {
	if n == nil {
		return
	}
	if len(pat) == 0 {
		if n.retained != nil {
			*out = append(*out, n.retained)
		}
		return
	}
	switch pat[0] {
	case WildMany:
		n.walkRetained(out)
	case WildOne:
		for _, c := range n.children {
			collectRetained(c, pat[1:], out)
		}
	default:
		collectRetained(n.child(pat[0], false), pat[1:], out)
	}
}

// offer enqueues without ever blocking the publisher: on a full queue the
// oldest entry is dropped to make room.
func offer(s *Subscription, msg *Message) {
	select {
	case s.ch <- msg:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- msg:
	default:
	}
}

// addSubscription inserts a subscription into the trie and hands it every
// retained message its pattern matches.
func (b *Bus) addSubscription(topic Topic, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	for _, tok := range topic {
		n = n.child(tok, true)
	}
	n.subs = append(n.subs, sub)

	var retained []*Message
	collectRetained(b.root, topic, &retained)
	for _, m := range retained {
		offer(sub, m)
	}
}

// unsubscribe removes a subscription from the trie, closes its channel and
// prunes now-empty nodes. Removing twice is harmless.
func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	type hop struct {
		parent *node
		tok    any
	}
	var stack []hop
	n := b.root
	for _, tok := range sub.topic {
		next := n.child(tok, false)
		if next == nil {
			return
		}
		stack = append(stack, hop{n, tok})
		n = next
	}

	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			close(sub.ch)
			break
		}
	}

	for i := len(stack) - 1; i >= 0; i-- {
		if len(n.subs) != 0 || len(n.children) != 0 || n.retained != nil {
			break
		}
		delete(stack[i].parent.children, stack[i].tok)
		n = stack[i].parent
	}
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

type Connection struct {
	bus  *Bus
	name string
	mu   sync.Mutex
	subs []*Subscription
}

// NewConnection creates a named connection bound to this bus.
func (b *Bus) NewConnection(name string) *Connection {
	return &Connection{bus: b, name: name}
}

func (c *Connection) Name() string { return c.name }

func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(topic, payload, retained)
}

// Publish sends a message via the bus, stamping the sender name on if the
// message does not carry one yet.
func (c *Connection) Publish(msg *Message) {
	if msg.From == "" {
		msg.From = c.name
	}
	c.bus.Publish(msg)
}

// Subscribe registers a subscription owned by this connection.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
	}
	c.bus.addSubscription(topic, sub)
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscription owned by this connection.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.bus.unsubscribe(sub)
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
}

// Disconnect closes all subscriptions and clears them.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.unsubscribe(sub)
	}
}

// Reply publishes a response to the message's reply topic. Messages that
// carry no ReplyTo are ignored.
func (c *Connection) Reply(orig *Message, payload any, retained bool) {
	if len(orig.ReplyTo) == 0 {
		return
	}
	c.Publish(c.NewMessage(orig.ReplyTo, payload, retained))
}

// Request stamps a fresh reply topic on the request, subscribes to it and
// publishes the request. The caller owns the returned subscription.
func (c *Connection) Request(req *Message) *Subscription {
	c.bus.mu.Lock()
	c.bus.reqID++
	id := c.bus.reqID
	c.bus.mu.Unlock()

	req.ReplyTo = Topic{"$reply", c.name, id}
	sub := c.Subscribe(req.ReplyTo)
	c.Publish(req)
	return sub
}

var ErrClosed = errors.New("bus: subscription closed")

// RequestWait performs Request and waits for the first reply or for ctx.
func (c *Connection) RequestWait(ctx context.Context, req *Message) (*Message, error) {
	sub := c.Request(req)
	defer c.Unsubscribe(sub)

	select {
	case m, ok := <-sub.ch:
		if !ok {
			return nil, ErrClosed
		}
		return m, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
