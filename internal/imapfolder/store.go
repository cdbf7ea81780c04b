// Package imapfolder implements push folders on top of go-imap v2.
package imapfolder

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/pkg/errors"

	"github.com/aaronromeo/imappush/internal/push"
)

const defaultDialTimeout = 30 * time.Second

// Store holds what is needed to open connections to one IMAP account.
type Store struct {
	addr        string
	username    string
	password    string
	tlsConfig   *tls.Config
	dialTimeout time.Duration
	logger      *slog.Logger
}

type StoreOption func(*Store) error

func NewStore(opts ...StoreOption) (*Store, error) {
	s := &Store{dialTimeout: defaultDialTimeout}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if strings.TrimSpace(s.addr) == "" {
		return nil, errors.New("requires IMAP address")
	}
	if strings.TrimSpace(s.username) == "" || s.password == "" {
		return nil, errors.New("requires IMAP credentials")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

func WithAddr(addr string) StoreOption {
	return func(s *Store) error {
		s.addr = addr
		return nil
	}
}

func WithCreds(username, password string) StoreOption {
	return func(s *Store) error {
		s.username = username
		s.password = password
		return nil
	}
}

func WithTLSConfig(config *tls.Config) StoreOption {
	return func(s *Store) error {
		s.tlsConfig = config
		return nil
	}
}

func WithDialTimeout(timeout time.Duration) StoreOption {
	return func(s *Store) error {
		if timeout <= 0 {
			return errors.Errorf("dial timeout must be positive, got %s", timeout)
		}
		s.dialTimeout = timeout
		return nil
	}
}

func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// LogID identifies the account in logs without exposing the password.
func (s *Store) LogID() string {
	return s.username + "@" + s.addr
}

// Folder returns an unopened folder. It matches push.FolderFactory.
func (s *Store) Folder(name string) (push.Folder, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("folder name is required")
	}
	return newFolder(s, name), nil
}

// connect dials, logs in and returns a ready connection. handler receives
// unilateral data for the lifetime of the connection.
func (s *Store) connect(ctx context.Context, handler *imapclient.UnilateralDataHandler) (*connection, error) {
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: s.dialTimeout},
		Config:    s.tlsConfig,
	}
	raw, err := dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", s.addr)
	}

	netConn := newDeadlineConn(raw, push.DefaultReadTimeout)
	client := imapclient.New(netConn, &imapclient.Options{
		UnilateralDataHandler: handler,
	})

	if err := client.Login(s.username, s.password).Wait(); err != nil {
		_ = client.Close()
		return nil, loginError(s.username, err)
	}

	caps := client.Caps()
	return &connection{
		id:          s.LogID(),
		client:      client,
		netConn:     netConn,
		idleCapable: idleCapable(caps),
		esearch:     caps.Has(imap.CapESearch),
	}, nil
}

// idleCapable reports whether caps allow IDLE. IMAP4rev2 includes it.
func idleCapable(caps imap.CapSet) bool {
	return caps.Has(imap.CapIdle) || caps.Has(imap.CapIMAP4rev2)
}

// loginError maps a NO response to LOGIN onto push.ErrAuthenticationFailed.
func loginError(username string, err error) error {
	var imapErr *imap.Error
	if errors.As(err, &imapErr) {
		if imapErr.Code == imap.ResponseCodeAuthenticationFailed || imapErr.Type == imap.StatusResponseTypeNo {
			return errors.Wrapf(push.ErrAuthenticationFailed, "login as %s: %s", username, imapErr.Text)
		}
	}
	return errors.Wrapf(err, "login as %s", username)
}

// MailboxStatus is what a short-lived STATUS reports about a folder.
type MailboxStatus struct {
	Messages uint32
	UIDNext  int64
}

// Status opens a separate connection, asks for STATUS and logs out. It never
// touches a connection that may be idling.
func (s *Store) Status(ctx context.Context, folder string) (MailboxStatus, error) {
	conn, err := s.connect(ctx, nil)
	if err != nil {
		return MailboxStatus{}, err
	}
	defer func() {
		if err := conn.client.Logout().Wait(); err != nil {
			s.logger.Debug("Logout after STATUS failed", "store", s.LogID(), "error", err)
		}
		_ = conn.Close()
	}()

	data, err := conn.client.Status(folder, &imap.StatusOptions{
		NumMessages: true,
		UIDNext:     true,
	}).Wait()
	if err != nil {
		return MailboxStatus{}, errors.Wrapf(err, "status %s", folder)
	}

	status := MailboxStatus{UIDNext: -1}
	if data.NumMessages != nil {
		status.Messages = *data.NumMessages
	}
	if data.UIDNext != 0 {
		status.UIDNext = int64(data.UIDNext)
	}
	return status, nil
}
