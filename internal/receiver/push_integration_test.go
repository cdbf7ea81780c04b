package receiver_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronromeo/imappush/ftest"
	"github.com/aaronromeo/imappush/internal/imapfolder"
	"github.com/aaronromeo/imappush/internal/push"
	"github.com/aaronromeo/imappush/internal/receiver"
	"github.com/aaronromeo/imappush/internal/statestore"
	"github.com/aaronromeo/imappush/internal/wakelock"
)

type recordedAnnouncements struct {
	mu       sync.Mutex
	messages []string
}

func (a *recordedAnnouncements) Do(_ context.Context, message string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, message)
	return nil
}

func (a *recordedAnnouncements) Messages() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.messages...)
}

type pushConfig struct{}

func (pushConfig) PushPollOnConnect() bool { return true }
func (pushConfig) DisplayCount() int       { return 25 }
func (pushConfig) IdleRefreshMinutes() int { return 24 }

func TestPushAgainstInMemoryServer(t *testing.T) {
	srv := ftest.SetupIMAPServer(t, ftest.IdleCaps)
	srv.Deliver(t, "INBOX", "already there")

	imapStore, err := imapfolder.NewStore(
		imapfolder.WithAddr(srv.Addr),
		imapfolder.WithCreds(ftest.DefaultUser, ftest.DefaultPass),
		imapfolder.WithTLSConfig(srv.ClientTLSConfig()),
		imapfolder.WithLogger(discard),
	)
	require.NoError(t, err)

	states, err := statestore.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = states.Close() })

	announcements := &recordedAnnouncements{}
	recv := receiver.New(imapStore, states,
		receiver.WithAnnouncer(announcements),
		receiver.WithLogger(discard),
	)

	pusher := push.NewPusher(
		imapStore.Folder,
		func(folder string) push.WakeLock { return wakelock.New(folder, wakelock.WithLogger(discard)) },
		recv,
		pushConfig{},
		push.WithLogger(discard),
	)
	require.NoError(t, pusher.Start([]string{"INBOX"}))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, pusher.Shutdown(ctx))
	})

	ctx := context.Background()
	require.Eventually(t, func() bool {
		state, err := states.Get(ctx, "INBOX")
		return err == nil && state == "uidNext=2"
	}, 5*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool { return recv.Active("INBOX") }, 5*time.Second, 20*time.Millisecond)

	srv.Deliver(t, "INBOX", "pushed")

	require.Eventually(t, func() bool {
		state, err := states.Get(ctx, "INBOX")
		return err == nil && state == "uidNext=3"
	}, 5*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool {
		for _, m := range announcements.Messages() {
			if m == "1 new message(s) in INBOX" {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)

	statuses := pusher.Folders()
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Running)
}

func TestPushStopsOnBadCredentials(t *testing.T) {
	srv := ftest.SetupIMAPServer(t, ftest.IdleCaps)

	imapStore, err := imapfolder.NewStore(
		imapfolder.WithAddr(srv.Addr),
		imapfolder.WithCreds(ftest.DefaultUser, "wrong"),
		imapfolder.WithTLSConfig(srv.ClientTLSConfig()),
		imapfolder.WithLogger(discard),
	)
	require.NoError(t, err)

	states, err := statestore.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = states.Close() })

	announcements := &recordedAnnouncements{}
	recv := receiver.New(imapStore, states, receiver.WithAnnouncer(announcements), receiver.WithLogger(discard))

	folder, err := imapStore.Folder("INBOX")
	require.NoError(t, err)
	fp := push.NewFolderPusher(folder, recv, pushConfig{}, wakelock.New("INBOX"), push.WithLogger(discard))
	require.NoError(t, fp.Start())

	select {
	case <-fp.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("pusher kept running after authentication failure")
	}
	assert.Equal(t, []string{"IMAP authentication failed, push stopped"}, announcements.Messages())
}
