// Package receiver is the host side of push: it resyncs folders, keeps push
// state and tells people about errors.
package receiver

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aaronromeo/imappush/internal/imapfolder"
	"github.com/aaronromeo/imappush/internal/push"
)

//go:generate mockgen -source=receiver.go -destination=mocks/receiver.go -package=mocks Syncer,StateStore,Announcer

type Syncer interface {
	Status(ctx context.Context, folder string) (imapfolder.MailboxStatus, error)
}

type StateStore interface {
	Get(ctx context.Context, folder string) (string, error)
	Put(ctx context.Context, folder, state string) error
}

type Announcer interface {
	Do(ctx context.Context, message string) error
}

type noopAnnouncer struct{}

func (noopAnnouncer) Do(context.Context, string) error { return nil }

type Receiver struct {
	syncer    Syncer
	store     StateStore
	announcer Announcer
	log       *slog.Logger
	after     func(time.Duration) <-chan time.Time

	mu       sync.Mutex
	counts   map[string]uint32
	active   map[string]bool
	lastSync map[string]time.Time
}

var _ push.Receiver = (*Receiver)(nil)

type Option func(*Receiver)

func WithLogger(log *slog.Logger) Option {
	return func(r *Receiver) {
		r.log = log
	}
}

func WithAnnouncer(a Announcer) Option {
	return func(r *Receiver) {
		r.announcer = a
	}
}

func New(syncer Syncer, store StateStore, opts ...Option) *Receiver {
	r := &Receiver{
		syncer:    syncer,
		store:     store,
		announcer: noopAnnouncer{},
		log:       slog.Default(),
		after:     time.After,
		counts:    map[string]uint32{},
		active:    map[string]bool{},
		lastSync:  map[string]time.Time{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SyncFolder takes a STATUS snapshot, stores the new boundary and announces
// growth of the folder since the previous sync.
func (r *Receiver) SyncFolder(ctx context.Context, folder string) {
	log := r.log.With("folder", folder)

	status, err := r.syncer.Status(ctx, folder)
	if err != nil {
		log.Error("Resync failed", "error", err)
		return
	}
	log.Debug("Resynced", "messages", status.Messages, "uid_next", status.UIDNext)

	if status.UIDNext != -1 {
		state := push.State{UIDNext: status.UIDNext}.String()
		if err := r.store.Put(ctx, folder, state); err != nil {
			log.Error("Saving push state failed", "state", state, "error", err)
		}
	}

	r.mu.Lock()
	previous, seen := r.counts[folder]
	r.counts[folder] = status.Messages
	r.lastSync[folder] = time.Now()
	r.mu.Unlock()

	if seen && status.Messages > previous {
		added := status.Messages - previous
		log.Info("New mail", "new_messages", added)
		r.announce(ctx, fmt.Sprintf("%d new message(s) in %s", added, folder))
	}
}

func (r *Receiver) MessageFlagsChanged(folder, uid string) {
	r.log.Debug("Message flags changed", "folder", folder, "uid", uid)
}

func (r *Receiver) MessagesRemoved(folder string, uids []string) {
	r.log.Debug("Messages removed", "folder", folder, "uids", uids)
}

func (r *Receiver) HighestModSeqChanged(folder string, modSeq int64) {
	r.log.Debug("Highest mod-seq changed", "folder", folder, "mod_seq", modSeq)
}

func (r *Receiver) PushState(folder string) (string, error) {
	return r.store.Get(context.Background(), folder)
}

func (r *Receiver) PushError(message string, err error) {
	r.log.Error(message, "error", err)
	if err != nil {
		message = message + ": " + err.Error()
	}
	r.announce(context.Background(), message)
}

func (r *Receiver) AuthenticationFailed() {
	r.log.Error("Authentication failed, check IMAP credentials")
	r.announce(context.Background(), "IMAP authentication failed, push stopped")
}

func (r *Receiver) SetPushActive(folder string, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[folder] = active
}

// Sleep waits for d while holding the wake lock, or until ctx is done. The
// lock is taken again on wake up so the reconnect that follows is covered.
func (r *Receiver) Sleep(ctx context.Context, lock push.WakeLock, d time.Duration) {
	lock.Acquire(d)
	r.log.Debug("Sleeping before retry", "delay", d)
	select {
	case <-r.after(d):
	case <-ctx.Done():
	}
	lock.Acquire(push.WakeLockTimeout)
}

// Active reports whether folder is currently idling.
func (r *Receiver) Active(folder string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active[folder]
}

// ActiveFolders lists the folders that are currently idling.
func (r *Receiver) ActiveFolders() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var folders []string
	for name, active := range r.active {
		if active {
			folders = append(folders, name)
		}
	}
	sort.Strings(folders)
	return folders
}

// LastSync returns when folder was last resynced.
func (r *Receiver) LastSync(folder string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.lastSync[folder]
	return t, ok
}

func (r *Receiver) announce(ctx context.Context, message string) {
	if err := r.announcer.Do(ctx, message); err != nil {
		r.log.Warn("Announcement failed", "error", err)
	}
}
