package push_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/aaronromeo/imappush/internal/push"
)

// testLogger only prints when the test fails.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	var (
		mu  sync.Mutex
		buf bytes.Buffer
	)
	logger := slog.New(slog.NewJSONHandler(&lockedWriter{mu: &mu, w: &buf}, &slog.HandlerOptions{Level: slog.LevelDebug}))

	t.Cleanup(func() {
		if t.Failed() {
			mu.Lock()
			defer mu.Unlock()
			os.Stdout.Write(buf.Bytes()) //nolint:errcheck
		}
	})
	return logger
}

type lockedWriter struct {
	mu *sync.Mutex
	w  *bytes.Buffer
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Write(p)
}

type fakeConn struct {
	id          int
	idleCapable bool

	mu            sync.Mutex
	sendErr       error
	timeouts      []time.Duration
	continuations []string
	closed        bool
	idleStop      chan struct{}
}

func newFakeConn(id int, idleCapable bool) *fakeConn {
	return &fakeConn{id: id, idleCapable: idleCapable}
}

func (c *fakeConn) IdleCapable() bool { return c.idleCapable }

func (c *fakeConn) SetReadTimeout(timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeouts = append(c.timeouts, timeout)
	return nil
}

func (c *fakeConn) SendContinuation(token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.continuations = append(c.continuations, token)
	c.signalLocked()
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.signalLocked()
	return nil
}

func (c *fakeConn) String() string { return fmt.Sprintf("fake-conn-%d", c.id) }

// beginIdle returns a channel closed once DONE is sent or the connection closes.
func (c *fakeConn) beginIdle() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.idleStop = make(chan struct{})
	if c.closed {
		close(c.idleStop)
	}
	return c.idleStop
}

func (c *fakeConn) signalLocked() {
	if c.idleStop == nil {
		return
	}
	select {
	case <-c.idleStop:
	default:
		close(c.idleStop)
	}
}

func (c *fakeConn) Continuations() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.continuations...)
}

func (c *fakeConn) Timeouts() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.timeouts...)
}

func (c *fakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type idleScript func(ctx context.Context, conn *fakeConn, stop <-chan struct{}, yield func(push.Response, error) bool)

// blockingIdle acknowledges IDLE, replays responses and then waits for DONE,
// a closed connection or cancellation.
func blockingIdle(responses ...push.Response) idleScript {
	return func(ctx context.Context, conn *fakeConn, stop <-chan struct{}, yield func(push.Response, error) bool) {
		if !yield(push.Response{Kind: push.KindContinuation, Text: "idling"}, nil) {
			return
		}
		for _, r := range responses {
			if !yield(r, nil) {
				return
			}
		}
		select {
		case <-stop:
			if conn.Closed() {
				yield(push.Response{}, errors.New("use of closed network connection"))
			}
		case <-ctx.Done():
			yield(push.Response{}, ctx.Err())
		}
	}
}

// shortIdle acknowledges IDLE and completes straight away.
func shortIdle() idleScript {
	return func(_ context.Context, _ *fakeConn, _ <-chan struct{}, yield func(push.Response, error) bool) {
		yield(push.Response{Kind: push.KindContinuation, Text: "idling"}, nil)
	}
}

func failingIdle(err error) idleScript {
	return func(_ context.Context, _ *fakeConn, _ <-chan struct{}, yield func(push.Response, error) bool) {
		yield(push.Response{}, err)
	}
}

type fakeFolder struct {
	name        string
	idleCapable bool

	mu         sync.Mutex
	conn       *fakeConn
	conns      []*fakeConn
	openErr    error
	openErrs   []error
	uidNext    int64
	highestUID int64
	idles      int
	scripts    []idleScript
}

func newFakeFolder(name string, uidNext int64) *fakeFolder {
	return &fakeFolder{name: name, idleCapable: true, uidNext: uidNext, highestUID: -1}
}

func (f *fakeFolder) Name() string  { return f.name }
func (f *fakeFolder) LogID() string { return "fake:" + f.name }

func (f *fakeFolder) Open(_ context.Context, _ push.OpenMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	if len(f.openErrs) > 0 {
		err := f.openErrs[0]
		f.openErrs = f.openErrs[1:]
		if err != nil {
			return err
		}
	}
	if f.conn == nil {
		f.conn = newFakeConn(len(f.conns)+1, f.idleCapable)
		f.conns = append(f.conns, f.conn)
	}
	return nil
}

func (f *fakeFolder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		_ = f.conn.Close()
		f.conn = nil
	}
	return nil
}

func (f *fakeFolder) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conn != nil
}

func (f *fakeFolder) Connection() push.Connection {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn == nil {
		return nil
	}
	return f.conn
}

func (f *fakeFolder) UIDNext() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uidNext
}

func (f *fakeFolder) HighestUID(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.highestUID, nil
}

func (f *fakeFolder) ExecuteSimpleCommand(ctx context.Context, command string) iter.Seq2[push.Response, error] {
	return func(yield func(push.Response, error) bool) {
		f.mu.Lock()
		conn := f.conn
		script := blockingIdle()
		if len(f.scripts) > 0 {
			script = f.scripts[0]
			f.scripts = f.scripts[1:]
		}
		f.idles++
		f.mu.Unlock()

		if command != push.CommandIdle {
			yield(push.Response{}, fmt.Errorf("unexpected command %q", command))
			return
		}
		if conn == nil {
			yield(push.Response{}, errors.New("not connected"))
			return
		}
		script(ctx, conn, conn.beginIdle(), yield)
	}
}

func (f *fakeFolder) Idles() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.idles
}

func (f *fakeFolder) CurrentConn() *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conn
}

func (f *fakeFolder) Conns() []*fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeConn(nil), f.conns...)
}

type recordingReceiver struct {
	mu           sync.Mutex
	state        string
	stateErr     error
	syncs        int
	pushErrors   []error
	messages     []string
	authFailures int
	active       []bool
	sleeps       []time.Duration
}

func (r *recordingReceiver) SyncFolder(context.Context, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncs++
}

func (r *recordingReceiver) MessageFlagsChanged(string, string) {}
func (r *recordingReceiver) MessagesRemoved(string, []string)   {}
func (r *recordingReceiver) HighestModSeqChanged(string, int64) {}

func (r *recordingReceiver) PushState(string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state, r.stateErr
}

func (r *recordingReceiver) PushError(message string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	r.pushErrors = append(r.pushErrors, err)
}

func (r *recordingReceiver) AuthenticationFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.authFailures++
}

func (r *recordingReceiver) SetPushActive(_ string, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = append(r.active, active)
}

func (r *recordingReceiver) Sleep(_ context.Context, _ push.WakeLock, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sleeps = append(r.sleeps, d)
}

func (r *recordingReceiver) setState(state string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
}

func (r *recordingReceiver) Syncs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.syncs
}

func (r *recordingReceiver) Sleeps() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.sleeps...)
}

func (r *recordingReceiver) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

func (r *recordingReceiver) PushErrors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.pushErrors...)
}

func (r *recordingReceiver) Active() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.active...)
}

type fakeWakeLock struct {
	mu       sync.Mutex
	held     bool
	acquires int
	releases int
	timeouts []time.Duration
}

func (l *fakeWakeLock) Acquire(timeout time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = true
	l.acquires++
	l.timeouts = append(l.timeouts, timeout)
}

func (l *fakeWakeLock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	l.releases++
}

func (l *fakeWakeLock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

func (l *fakeWakeLock) Releases() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.releases
}

func (l *fakeWakeLock) Acquires() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acquires
}

type fakeConfig struct {
	pollOnConnect      bool
	displayCount       int
	idleRefreshMinutes int
}

func (c fakeConfig) PushPollOnConnect() bool { return c.pollOnConnect }
func (c fakeConfig) DisplayCount() int       { return c.displayCount }
func (c fakeConfig) IdleRefreshMinutes() int { return c.idleRefreshMinutes }

func defaultConfig() fakeConfig {
	return fakeConfig{displayCount: 25, idleRefreshMinutes: 24}
}

// waitDone fails the test if the pusher's worker does not exit in time.
func waitDone(t *testing.T, p *push.FolderPusher) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("pusher worker did not exit")
	}
}
