package push

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type gateConn struct {
	mu            sync.Mutex
	sendErr       error
	timeouts      []time.Duration
	continuations []string
	closed        bool
}

func (c *gateConn) IdleCapable() bool { return true }

func (c *gateConn) SetReadTimeout(timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeouts = append(c.timeouts, timeout)
	return nil
}

func (c *gateConn) SendContinuation(token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.continuations = append(c.continuations, token)
	return nil
}

func (c *gateConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *gateConn) String() string { return "gate-conn" }

func TestIdleStopperRequestStopWhenNotAccepting(t *testing.T) {
	var stopper idleStopper

	assert.NotPanics(t, stopper.RequestStop)
	assert.False(t, stopper.Accepting())
}

func TestIdleStopperSendsDone(t *testing.T) {
	var stopper idleStopper
	conn := &gateConn{}

	stopper.BeginAccepting(conn)
	assert.True(t, stopper.Accepting())

	stopper.RequestStop()
	assert.Equal(t, []string{ContinuationDone}, conn.continuations)
	assert.Equal(t, []time.Duration{DefaultReadTimeout}, conn.timeouts)
	assert.False(t, conn.closed)
	assert.False(t, stopper.Accepting())

	stopper.RequestStop()
	assert.Len(t, conn.continuations, 1, "a second request is dropped")
}

func TestIdleStopperIsBoundNotLatched(t *testing.T) {
	var stopper idleStopper
	conn := &gateConn{}

	stopper.BeginAccepting(conn)
	stopper.StopAccepting()
	stopper.RequestStop()

	assert.Empty(t, conn.continuations)
	assert.Empty(t, conn.timeouts)

	stopper.StopAccepting()
	assert.False(t, stopper.Accepting())
}

func TestIdleStopperClosesOnSendFailure(t *testing.T) {
	var stopper idleStopper
	conn := &gateConn{sendErr: errors.New("broken pipe")}

	stopper.BeginAccepting(conn)
	stopper.RequestStop()

	assert.True(t, conn.closed)
	assert.False(t, stopper.Accepting())
}

func TestIdleStopperRequiresConnection(t *testing.T) {
	var stopper idleStopper
	assert.Panics(t, func() { stopper.BeginAccepting(nil) })
}

func TestIdleStopperConcurrentRequests(t *testing.T) {
	var stopper idleStopper
	conn := &gateConn{}
	stopper.BeginAccepting(conn)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stopper.RequestStop()
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{ContinuationDone}, conn.continuations)
}
