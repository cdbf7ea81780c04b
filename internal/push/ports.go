package push

import (
	"context"
	"iter"
	"time"
)

type OpenMode int

const (
	OpenReadOnly OpenMode = iota
	OpenReadWrite
)

// CommandIdle is the only blocking command the session driver executes.
const CommandIdle = "IDLE"

// ContinuationDone terminates a running IDLE command.
const ContinuationDone = "DONE"

// Folder is the store-level view of a single mailbox.
type Folder interface {
	Name() string
	LogID() string

	Open(ctx context.Context, mode OpenMode) error
	Close() error
	IsOpen() bool
	Connection() Connection

	// UIDNext reports the server's UIDNEXT for the open folder, -1 if unknown.
	UIDNext() int64
	// HighestUID reports the highest UID present in the folder, -1 if empty.
	HighestUID(ctx context.Context) (int64, error)

	// ExecuteSimpleCommand runs a blocking command and yields every response
	// the server sends while it is running. A non-nil error is always the
	// last value yielded.
	ExecuteSimpleCommand(ctx context.Context, command string) iter.Seq2[Response, error]
}

// Connection is the live protocol session a Folder is bound to.
type Connection interface {
	IdleCapable() bool
	SetReadTimeout(timeout time.Duration) error
	SendContinuation(token string) error
	Close() error
	String() string
}

//go:generate mockgen -source=ports.go -destination=mocks/receiver.go -package=mocks Receiver,WakeLock

// Receiver is how a pusher reports outward. It is the only channel through
// which errors leave the session.
type Receiver interface {
	SyncFolder(ctx context.Context, folder string)
	MessageFlagsChanged(folder string, uid string)
	MessagesRemoved(folder string, uids []string)
	HighestModSeqChanged(folder string, modSeq int64)

	PushState(folder string) (string, error)
	PushError(message string, err error)
	AuthenticationFailed()
	SetPushActive(folder string, active bool)

	// Sleep blocks for d while holding lock, returning early when ctx is done.
	Sleep(ctx context.Context, lock WakeLock, d time.Duration)
}

// WakeLock keeps the host awake. It is not reference counted: a single
// Release undoes any number of Acquire calls.
type WakeLock interface {
	Acquire(timeout time.Duration)
	Release()
}

// StoreConfig holds the account level settings a pusher consumes.
type StoreConfig interface {
	PushPollOnConnect() bool
	DisplayCount() int
	IdleRefreshMinutes() int
}
