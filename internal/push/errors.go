package push

import "errors"

var (
	// ErrAuthenticationFailed is terminal: the session stops without backoff.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrNotIdleCapable is terminal: the server cannot push, so there is nothing to wait for.
	ErrNotIdleCapable = errors.New("IMAP server is not IDLE capable")
	// ErrNoConnection is returned when opening a folder produced no usable connection.
	ErrNoConnection = errors.New("could not establish connection for IDLE")
	// ErrMalformedState is returned by ParseState for unparsable push state.
	ErrMalformedState = errors.New("malformed push state")
	// ErrPushDisabled is reported once the consecutive failure limit is exceeded.
	ErrPushDisabled = errors.New("push disabled")

	ErrAlreadyStarted = errors.New("pusher already started")
	ErrNotStarted     = errors.New("pusher not started")
	ErrUnknownFolder  = errors.New("unknown folder")
)

type failureKind int

const (
	failureTransient failureKind = iota
	failureAuth
	failureNoIdle
	failureStopping
)

func (k failureKind) String() string {
	switch k {
	case failureAuth:
		return "auth"
	case failureNoIdle:
		return "no-idle"
	case failureStopping:
		return "stopping"
	default:
		return "transient"
	}
}

// classify decides what the driver does with an error raised by one loop
// iteration. Authentication failures win over a concurrent stop so that the
// receiver always learns about bad credentials.
func classify(err error, stopping bool) failureKind {
	switch {
	case errors.Is(err, ErrAuthenticationFailed):
		return failureAuth
	case errors.Is(err, ErrNotIdleCapable):
		return failureNoIdle
	case stopping:
		return failureStopping
	default:
		return failureTransient
	}
}
