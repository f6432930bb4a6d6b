package agenttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/mavrell/drumbeat/pkg/agent"
)

// FakeConn is a scriptable in-memory connection
type FakeConn struct {
	mu sync.Mutex

	id       string
	opens    int
	posts    []string
	closed   bool
	openErrs []error
	postErrs []error
	notReady bool
}

var _ agent.Conn = (*FakeConn)(nil)

// NewFakeConn creates a healthy fake connection
func NewFakeConn(id string) *FakeConn {
	return &FakeConn{id: id}
}

// FailOpens queues errors returned by successive Open calls
func (c *FakeConn) FailOpens(errs ...error) *FakeConn {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openErrs = append(c.openErrs, errs...)
	return c
}

// FailPosts queues errors returned by successive Post calls. A nil
// entry makes that call succeed.
func (c *FakeConn) FailPosts(errs ...error) *FakeConn {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.postErrs = append(c.postErrs, errs...)
	return c
}

// SetNotReady makes Ready report false until cleared
func (c *FakeConn) SetNotReady(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notReady = v
}

// ID implements agent.Conn
func (c *FakeConn) ID() string { return c.id }

// Open implements agent.Conn
func (c *FakeConn) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.opens++
	if len(c.openErrs) > 0 {
		err := c.openErrs[0]
		c.openErrs = c.openErrs[1:]
		return err
	}
	return ctx.Err()
}

// Ready implements agent.Conn
func (c *FakeConn) Ready(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.notReady && !c.closed
}

// Post implements agent.Conn
func (c *FakeConn) Post(ctx context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("post on closed conn %s", c.id)
	}
	if len(c.postErrs) > 0 {
		err := c.postErrs[0]
		c.postErrs = c.postErrs[1:]
		if err != nil {
			return err
		}
	}
	c.posts = append(c.posts, text)
	return nil
}

// Close implements agent.Conn
func (c *FakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Opens returns how many times Open was called
func (c *FakeConn) Opens() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens
}

// Posts returns every successfully posted text, in order
func (c *FakeConn) Posts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.posts))
	copy(out, c.posts)
	return out
}

// Closed reports whether Close was called
func (c *FakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// FakeDialer hands out FakeConns. The OnDial hook, when set, scripts
// each call; otherwise every Dial returns a fresh healthy connection.
type FakeDialer struct {
	mu     sync.Mutex
	calls  int
	dialed []*FakeConn

	// OnDial, when non-nil, is invoked with the 1-based call number
	OnDial func(call int) (agent.Conn, error)
}

var _ agent.Dialer = (*FakeDialer)(nil)

// Dial implements agent.Dialer
func (d *FakeDialer) Dial(ctx context.Context) (agent.Conn, error) {
	d.mu.Lock()
	d.calls++
	call := d.calls
	hook := d.OnDial
	d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if hook != nil {
		conn, err := hook(call)
		if fc, ok := conn.(*FakeConn); ok && err == nil {
			d.mu.Lock()
			d.dialed = append(d.dialed, fc)
			d.mu.Unlock()
		}
		return conn, err
	}

	conn := NewFakeConn(fmt.Sprintf("conn-%d", call))
	d.mu.Lock()
	d.dialed = append(d.dialed, conn)
	d.mu.Unlock()
	return conn, nil
}

// Calls returns how many times Dial was called
func (d *FakeDialer) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// Dialed returns every FakeConn handed out, in order
func (d *FakeDialer) Dialed() []*FakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*FakeConn, len(d.dialed))
	copy(out, d.dialed)
	return out
}
