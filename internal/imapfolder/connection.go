package imapfolder

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/pkg/errors"

	"github.com/aaronromeo/imappush/internal/push"
)

// deadlineConn applies a read timeout to every Read.
type deadlineConn struct {
	net.Conn
	timeout atomic.Int64
}

func newDeadlineConn(conn net.Conn, timeout time.Duration) *deadlineConn {
	c := &deadlineConn{Conn: conn}
	c.timeout.Store(int64(timeout))
	return c
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	if d := time.Duration(c.timeout.Load()); d > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(d)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(p)
}

// setReadTimeout also moves the deadline of a Read that is already blocked,
// since the client reads from its own goroutine.
func (c *deadlineConn) setReadTimeout(d time.Duration) error {
	c.timeout.Store(int64(d))
	if d <= 0 {
		return c.Conn.SetReadDeadline(time.Time{})
	}
	return c.Conn.SetReadDeadline(time.Now().Add(d))
}

// connection is one logged-in IMAP session.
type connection struct {
	id          string
	client      *imapclient.Client
	netConn     *deadlineConn
	idleCapable bool
	esearch     bool

	mu     sync.Mutex
	idle   *imapclient.IdleCommand
	closed bool
}

var _ push.Connection = (*connection)(nil)

func (c *connection) IdleCapable() bool {
	return c.idleCapable
}

func (c *connection) SetReadTimeout(timeout time.Duration) error {
	return c.netConn.setReadTimeout(timeout)
}

// SendContinuation only understands DONE, which ends the running IDLE.
func (c *connection) SendContinuation(token string) error {
	if token != push.ContinuationDone {
		return errors.Errorf("unsupported continuation %q", token)
	}

	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()
	if idle == nil {
		return errors.New("no IDLE command running")
	}
	return idle.Close()
}

func (c *connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.client.Close()
}

func (c *connection) String() string {
	return c.id
}

func (c *connection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *connection) setIdle(idle *imapclient.IdleCommand) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.idle = idle
}
