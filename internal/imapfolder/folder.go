package imapfolder

import (
	"context"
	"iter"
	"log/slog"
	"sync"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/pkg/errors"

	"github.com/aaronromeo/imappush/internal/push"
)

// sinkSize bounds the responses buffered between the client's reader and an
// IDLE consumer. Every buffered response already guarantees a resync, so a
// full sink can drop new ones.
const sinkSize = 64

// Folder is a single mailbox with at most one live connection.
type Folder struct {
	store *Store
	name  string
	log   *slog.Logger

	mu      sync.Mutex
	conn    *connection
	uidNext int64

	sinkMu sync.Mutex
	sink   chan push.Response
}

var _ push.Folder = (*Folder)(nil)

func newFolder(store *Store, name string) *Folder {
	return &Folder{
		store:   store,
		name:    name,
		log:     store.logger.With("folder", name),
		uidNext: -1,
	}
}

func (f *Folder) Name() string {
	return f.name
}

func (f *Folder) LogID() string {
	return f.store.LogID()
}

// Open connects if needed and (re)selects the mailbox so UIDNext is fresh.
func (f *Folder) Open(ctx context.Context, mode push.OpenMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	if f.conn != nil && f.conn.isClosed() {
		f.conn = nil
	}
	if f.conn == nil {
		conn, err := f.store.connect(ctx, f.unilateralHandler())
		if err != nil {
			return err
		}
		f.log.Debug("Connected", "conn", conn.String(), "idle_capable", conn.idleCapable)
		f.conn = conn
	}

	data, err := f.conn.client.Select(f.name, &imap.SelectOptions{
		ReadOnly: mode == push.OpenReadOnly,
	}).Wait()
	if err != nil {
		_ = f.conn.Close()
		f.conn = nil
		f.uidNext = -1
		return errors.Wrapf(err, "select %s", f.name)
	}

	f.uidNext = -1
	if data.UIDNext != 0 {
		f.uidNext = int64(data.UIDNext)
	}
	f.log.Debug("Selected", "uid_next", f.uidNext, "messages", data.NumMessages)
	return nil
}

func (f *Folder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.conn == nil {
		return nil
	}
	err := f.conn.Close()
	f.conn = nil
	f.uidNext = -1
	return err
}

func (f *Folder) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conn != nil && !f.conn.isClosed()
}

func (f *Folder) Connection() push.Connection {
	conn := f.current()
	if conn == nil {
		return nil
	}
	return conn
}

func (f *Folder) current() *connection {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conn
}

func (f *Folder) UIDNext() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uidNext
}

// HighestUID searches the selected mailbox and returns -1 when it is empty.
// With ESEARCH the server only returns the maximum.
func (f *Folder) HighestUID(ctx context.Context) (int64, error) {
	conn := f.current()
	if conn == nil {
		return -1, push.ErrNoConnection
	}
	if err := ctx.Err(); err != nil {
		return -1, err
	}

	var options *imap.SearchOptions
	if conn.esearch {
		options = &imap.SearchOptions{ReturnMax: true}
	}
	data, err := conn.client.UIDSearch(&imap.SearchCriteria{}, options).Wait()
	if err != nil {
		return -1, errors.Wrapf(err, "uid search %s", f.name)
	}

	if conn.esearch {
		if data.Max == 0 {
			return -1, nil
		}
		return int64(data.Max), nil
	}

	highest := int64(-1)
	for _, uid := range data.AllUIDs() {
		if int64(uid) > highest {
			highest = int64(uid)
		}
	}
	return highest, nil
}

// ExecuteSimpleCommand runs IDLE. The sequence starts with the server's
// continuation, then yields unsolicited updates until the command completes.
// Breaking out of the loop ends IDLE; cancelling ctx closes the connection.
func (f *Folder) ExecuteSimpleCommand(ctx context.Context, command string) iter.Seq2[push.Response, error] {
	return func(yield func(push.Response, error) bool) {
		if command != push.CommandIdle {
			yield(push.Response{}, errors.Errorf("unsupported command %q", command))
			return
		}
		conn := f.current()
		if conn == nil {
			yield(push.Response{}, push.ErrNoConnection)
			return
		}

		sink := f.openSink()
		defer f.closeSink()

		idle, err := conn.client.Idle()
		if err != nil {
			yield(push.Response{}, errors.Wrap(err, "start IDLE"))
			return
		}
		conn.setIdle(idle)
		defer conn.setIdle(nil)

		waitErr := make(chan error, 1)
		go func() {
			waitErr <- idle.Wait()
		}()
		finish := func() {
			_ = idle.Close()
			<-waitErr
		}

		if !yield(push.Response{Kind: push.KindContinuation, Text: "idling"}, nil) {
			finish()
			return
		}

		for {
			select {
			case r := <-sink:
				if !yield(r, nil) {
					finish()
					return
				}
			case err := <-waitErr:
				if !flush(sink, yield) {
					return
				}
				if err != nil {
					yield(push.Response{}, errors.Wrap(err, "IDLE"))
				}
				return
			case <-ctx.Done():
				_ = conn.Close()
				<-waitErr
				yield(push.Response{}, ctx.Err())
				return
			}
		}
	}
}

// flush hands over whatever arrived before the command completed.
func flush(sink <-chan push.Response, yield func(push.Response, error) bool) bool {
	for {
		select {
		case r := <-sink:
			if !yield(r, nil) {
				return false
			}
		default:
			return true
		}
	}
}

func (f *Folder) openSink() <-chan push.Response {
	f.sinkMu.Lock()
	defer f.sinkMu.Unlock()
	f.sink = make(chan push.Response, sinkSize)
	return f.sink
}

func (f *Folder) closeSink() {
	f.sinkMu.Lock()
	defer f.sinkMu.Unlock()
	f.sink = nil
}

func (f *Folder) deliver(r push.Response) {
	f.sinkMu.Lock()
	defer f.sinkMu.Unlock()
	if f.sink == nil {
		return
	}
	select {
	case f.sink <- r:
	default:
		f.log.Debug("Dropping response, resync already pending", "response", r.String())
	}
}

// unilateralHandler turns unsolicited server data into responses for the
// running IDLE. Data received outside IDLE is dropped.
func (f *Folder) unilateralHandler() *imapclient.UnilateralDataHandler {
	return &imapclient.UnilateralDataHandler{
		Expunge: func(seqNum uint32) {
			f.deliver(push.Response{Kind: push.KindExpunge, Number: seqNum})
		},
		Mailbox: func(data *imapclient.UnilateralDataMailbox) {
			if data.NumMessages == nil {
				return
			}
			f.deliver(push.Response{Kind: push.KindExists, Number: *data.NumMessages})
		},
		Fetch: func(msg *imapclient.FetchMessageData) {
			seqNum := msg.SeqNum
			if _, err := msg.Collect(); err != nil {
				f.log.Debug("Reading unsolicited FETCH failed", "error", err)
			}
			f.deliver(push.Response{Kind: push.KindFetch, Number: seqNum, Text: "FLAGS"})
		},
	}
}
