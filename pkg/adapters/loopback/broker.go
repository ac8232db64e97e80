// Package loopback is an in-process broker implementing ports.Dialer and
// ports.Connection over a static node tree. It backs the test suites and
// the loopback:// demo target, no network involved.
package loopback

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nodesh/nodesh/pkg/domain"
	"github.com/nodesh/nodesh/pkg/ports"
)

// Node is one addressable point of the fake tree.
type Node struct {
	children map[string]*Node
	methods  map[string]domain.MethodDesc
	handlers map[string]func(param any) (any, error)
	signals  []domain.SignalDesc
	delay    time.Duration
	fail     map[string]error
}

// NewTree returns an empty root node.
func NewTree() *Node {
	return newNode()
}

func newNode() *Node {
	return &Node{
		children: make(map[string]*Node),
		methods:  make(map[string]domain.MethodDesc),
		handlers: make(map[string]func(any) (any, error)),
		fail:     make(map[string]error),
	}
}

// Ensure creates (or finds) the node at the slash separated path below n.
func (n *Node) Ensure(path string) *Node {
	cur := n
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		next, ok := cur.children[seg]
		if !ok {
			next = newNode()
			cur.children[seg] = next
		}
		cur = next
	}
	return cur
}

// SetValue installs a conventional "get" method returning v.
func (n *Node) SetValue(v any) *Node {
	n.Method(domain.MethodDesc{Name: "get", Access: domain.AccessRead, Flags: domain.FlagGetter},
		func(any) (any, error) { return v, nil })
	return n
}

// Method installs a method with a handler.
func (n *Node) Method(desc domain.MethodDesc, handler func(param any) (any, error)) *Node {
	n.methods[desc.Name] = desc
	n.handlers[desc.Name] = handler
	return n
}

// Signal declares a signal descriptor on the node.
func (n *Node) Signal(desc domain.SignalDesc) *Node {
	n.signals = append(n.signals, desc)
	return n
}

// Fail makes the named method (or "*" for all, including ls/dir) return the
// given error.
func (n *Node) Fail(method string, err error) *Node {
	n.fail[method] = err
	return n
}

// Delay makes every call on this node sleep first, for timeout tests.
func (n *Node) Delay(d time.Duration) *Node {
	n.delay = d
	return n
}

func (n *Node) lookup(path string) *Node {
	cur := n
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		next, ok := cur.children[seg]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

// Broker serves connections over one shared tree.
type Broker struct {
	mu    sync.Mutex
	root  *Node
	conns []*conn
}

// New creates a broker over the given tree.
func New(root *Node) *Broker {
	return &Broker{root: root}
}

// NewDemo creates a broker over a small demo tree resembling a typical
// deployment: application metadata, broker introspection and a test device.
func NewDemo() *Broker {
	root := NewTree()
	app := root.Ensure(".app")
	app.Method(domain.MethodDesc{Name: "name", Access: domain.AccessBrowse, Flags: domain.FlagGetter},
		func(any) (any, error) { return "nodesh-loopback", nil })
	app.Method(domain.MethodDesc{Name: "version", Access: domain.AccessBrowse, Flags: domain.FlagGetter},
		func(any) (any, error) { return "0.1.0", nil })

	temp := root.Ensure("test/device/temperature")
	temp.SetValue(22.5)
	temp.Signal(domain.SignalDesc{Name: "chng", Source: "get"})
	root.Ensure("test/device/label").SetValue("demo device")

	b := New(root)
	cc := root.Ensure(".broker/currentClient")
	cc.Method(domain.MethodDesc{Name: "subscriptions", Access: domain.AccessRead, Flags: domain.FlagGetter | domain.FlagLargeResult},
		func(any) (any, error) { return b.subscriptions(), nil })
	return b
}

// Root exposes the served tree so tests can extend it after construction.
func (b *Broker) Root() *Node {
	return b.root
}

// Dial implements ports.Dialer; the target is ignored beyond bookkeeping.
func (b *Broker) Dial(ctx context.Context, target string) (ports.Connection, error) {
	c := &conn{
		broker: b,
		events: make(chan ports.Event, 32),
		done:   make(chan struct{}),
		subs:   make(map[string]bool),
	}
	b.mu.Lock()
	b.conns = append(b.conns, c)
	b.mu.Unlock()
	return c, nil
}

// Emit delivers a signal event to every connection subscribed to it.
func (b *Broker) Emit(path, source, signal string, value any) {
	ev := ports.Event{Path: path, Source: source, Signal: signal, Value: value}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.conns {
		c.deliver(ev)
	}
}

func (b *Broker) subscriptions() map[string]any {
	out := make(map[string]any)
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.conns {
		c.mu.Lock()
		for ri := range c.subs {
			out[ri] = nil
		}
		c.mu.Unlock()
	}
	return out
}

type conn struct {
	broker *Broker
	events chan ports.Event
	done   chan struct{}

	mu     sync.Mutex
	closed bool
	subs   map[string]bool
}

func (c *conn) Call(ctx context.Context, path, method string, param any) (any, error) {
	node := c.broker.root.lookup(path)
	if node == nil {
		return nil, &domain.RPCError{Code: domain.RPCMethodNotFound, Message: "no such node: " + path}
	}
	if node.delay > 0 {
		select {
		case <-time.After(node.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := node.fail["*"]; ok {
		return nil, err
	}
	if err, ok := node.fail[method]; ok {
		return nil, err
	}

	switch method {
	case "ls":
		names := make([]string, 0, len(node.children))
		for name := range node.children {
			names = append(names, name)
		}
		sort.Strings(names)
		return names, nil
	case "dir":
		descs := []domain.MethodDesc{domain.StdDir(), domain.StdLs()}
		for _, d := range node.methods {
			descs = append(descs, d)
		}
		sort.Slice(descs, func(i, j int) bool { return descs[i].Name < descs[j].Name })
		out := make([]any, 0, len(descs)+len(node.signals))
		for _, d := range descs {
			out = append(out, d)
		}
		for _, s := range node.signals {
			out = append(out, s)
		}
		return out, nil
	}

	handler, ok := node.handlers[method]
	if !ok {
		return nil, &domain.RPCError{Code: domain.RPCMethodNotFound, Message: "no such method: " + method}
	}
	return handler(param)
}

func (c *conn) Subscribe(ctx context.Context, ri string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs[ri] = true
	return nil
}

func (c *conn) Unsubscribe(ctx context.Context, ri string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subs, ri)
	return nil
}

func (c *conn) Events() <-chan ports.Event { return c.events }

func (c *conn) Done() <-chan struct{} { return c.done }

func (c *conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
		close(c.events)
	}
	return nil
}

// deliver drops events once the subscriber's buffer is full; the loopback
// broker never blocks a caller on a slow reader.
func (c *conn) deliver(ev ports.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if !c.matches(ev) {
		return
	}
	select {
	case c.events <- ev:
	default:
	}
}

func (c *conn) matches(ev ports.Event) bool {
	for ri := range c.subs {
		if riMatch(ri, ev) {
			return true
		}
	}
	return false
}

// riMatch implements just enough pattern matching for the loopback broker:
// `**` anywhere in the path component matches any tail, `*` matches one
// segment, and the method/signal components match literally or by `*`.
func riMatch(ri string, ev ports.Event) bool {
	parts := strings.SplitN(ri, ":", 3)
	if !pathMatch(parts[0], ev.Path) {
		return false
	}
	if len(parts) > 1 && parts[1] != "*" && parts[1] != ev.Source {
		return false
	}
	if len(parts) > 2 && parts[2] != "*" && parts[2] != ev.Signal {
		return false
	}
	return true
}

func pathMatch(pattern, path string) bool {
	ps := strings.Split(pattern, "/")
	ts := strings.Split(path, "/")
	return segMatch(ps, ts)
}

func segMatch(pattern, path []string) bool {
	if len(pattern) == 0 {
		return len(path) == 0
	}
	switch pattern[0] {
	case "**":
		for i := 0; i <= len(path); i++ {
			if segMatch(pattern[1:], path[i:]) {
				return true
			}
		}
		return false
	case "*":
		return len(path) > 0 && segMatch(pattern[1:], path[1:])
	default:
		return len(path) > 0 && pattern[0] == path[0] && segMatch(pattern[1:], path[1:])
	}
}
