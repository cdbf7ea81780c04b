package push

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// session is one run of a FolderPusher, from Start until the worker exits.
type session struct {
	pusher *FolderPusher
	log    *slog.Logger
	tracer trace.Tracer

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	stop   atomic.Bool
	idling atomic.Bool

	gate   idleStopper
	buffer responseBuffer
	retry  *retryPolicy

	needsPoll   bool
	lastUIDNext int64
}

func (s *session) stopped() bool {
	return s.stop.Load()
}

func (s *session) name() string {
	return s.pusher.folder.Name()
}

// run is the worker loop. It never returns an error: everything is surfaced
// through the receiver.
func (s *session) run() {
	defer close(s.done)
	defer s.cancel()

	p := s.pusher
	p.wakeLock.Acquire(WakeLockTimeout)
	s.log.Info("Pusher starting")

	s.lastUIDNext = -1
	for !s.stopped() {
		if err := s.iterate(); err != nil {
			s.handleFailure(err)
		}
	}

	s.shutdown()
}

func (s *session) iterate() error {
	ctx, span := s.tracer.Start(s.ctx, "push.iteration",
		trace.WithAttributes(attribute.String("folder", s.name())))
	defer span.End()

	err := s.iterateOnce(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *session) iterateOnce(ctx context.Context) error {
	p := s.pusher

	oldUIDNext := clampUIDNext(s.persistedUIDNext(), s.lastUIDNext)

	openedNewConnection, err := s.openConnectionIfNecessary(ctx)
	if err != nil {
		return err
	}
	if s.stopped() {
		return nil
	}

	if p.config.PushPollOnConnect() && (openedNewConnection || s.needsPoll) {
		s.needsPoll = false
		s.syncFolder(ctx)
	}
	if s.stopped() {
		return nil
	}

	newUIDNext, err := s.newUIDNext(ctx)
	if err != nil {
		return err
	}
	s.lastUIDNext = newUIDNext

	window := newWorkWindow(oldUIDNext, newUIDNext, p.config.DisplayCount())
	if window.NeedsSync() {
		s.log.Debug("Server is ahead of known window, syncing",
			"old_uid_next", window.OldUIDNext,
			"new_uid_next", window.NewUIDNext,
			"start_uid", window.StartUID)
		s.syncFolder(ctx)
		return nil
	}

	s.log.Debug("About to IDLE")
	s.prepareForIdle()

	conn := p.folder.Connection()
	if conn == nil {
		return ErrNoConnection
	}
	if err := conn.SetReadTimeout(idleReadTimeout(p.config.IdleRefreshMinutes())); err != nil {
		return fmt.Errorf("set IDLE read timeout: %w", err)
	}
	if err := s.sendIdle(ctx, conn); err != nil {
		return err
	}

	s.returnFromIdle(ctx)
	return nil
}

func (s *session) persistedUIDNext() int64 {
	serialized, err := s.pusher.receiver.PushState(s.name())
	if err != nil {
		s.log.Error("Unable to get oldUidNext", "error", err)
		return -1
	}
	state, err := ParseState(serialized)
	if err != nil {
		s.log.Error("Unable to parse oldUidNext", "error", err)
		return -1
	}
	s.log.Debug("Got oldUidNext", "old_uid_next", state.UIDNext)
	return state.UIDNext
}

func (s *session) openConnectionIfNecessary(ctx context.Context) (bool, error) {
	folder := s.pusher.folder

	oldConnection := folder.Connection()
	if err := folder.Open(ctx, OpenReadOnly); err != nil {
		return false, err
	}

	conn := folder.Connection()
	if conn == nil {
		return false, ErrNoConnection
	}
	if !conn.IdleCapable() {
		s.stop.Store(true)
		err := fmt.Errorf("%w: %s", ErrNotIdleCapable, conn)
		s.pusher.receiver.PushError(err.Error(), err)
		return false, err
	}

	return conn != oldConnection, nil
}

func (s *session) newUIDNext(ctx context.Context) (int64, error) {
	folder := s.pusher.folder

	uidNext := folder.UIDNext()
	if uidNext != -1 {
		return uidNext, nil
	}

	s.log.Debug("uidNext is -1, using search to find highest UID")
	highestUID, err := folder.HighestUID(ctx)
	if err != nil {
		return -1, err
	}
	if highestUID == -1 {
		return -1, nil
	}

	uidNext = highestUID + 1
	s.log.Debug("Derived uidNext from highest UID", "highest_uid", highestUID, "new_uid_next", uidNext)
	return uidNext, nil
}

func (s *session) prepareForIdle() {
	s.pusher.receiver.SetPushActive(s.name(), true)
	s.idling.Store(true)
}

func (s *session) sendIdle(ctx context.Context, conn Connection) error {
	defer s.gate.StopAccepting()

	for response, err := range s.pusher.folder.ExecuteSimpleCommand(ctx, CommandIdle) {
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("IDLE on %s: %w", s.pusher.folder.LogID(), err)
		}
		s.handleResponse(ctx, response)
	}
	return nil
}

func (s *session) returnFromIdle(ctx context.Context) {
	s.idling.Store(false)
	s.retry.Success()
	s.pusher.metrics.idle(ctx, s.name())
}

// handleResponse runs on the worker for every response received during IDLE.
func (s *session) handleResponse(ctx context.Context, response Response) {
	p := s.pusher
	s.log.Debug("Got async response", "response", response.String())

	if s.stopped() {
		s.log.Debug("Got async untagged response, but stop is set", "response", response.String())
		s.gate.RequestStop()
		return
	}
	if response.Tagged() {
		return
	}

	switch {
	case response.Kind == KindContinuation:
		s.log.Debug("Idling")
		conn := p.folder.Connection()
		if conn == nil {
			return
		}
		s.gate.BeginAccepting(conn)
		p.wakeLock.Release()
	case response.Interesting():
		p.wakeLock.Acquire(WakeLockTimeout)
		s.log.Debug("Got useful async untagged response", "response", response.String())
		s.buffer.Append(response)
		s.processStoredResponses(ctx)
	}
}

// processStoredResponses emits one resync per non-empty drain.
func (s *session) processStoredResponses(ctx context.Context) {
	for {
		responses := s.buffer.DrainAll()
		if len(responses) == 0 {
			return
		}
		s.log.Info("Processing untagged responses", "count", len(responses))
		s.syncFolder(ctx)
	}
}

func (s *session) syncFolder(ctx context.Context) {
	s.pusher.metrics.resync(ctx, s.name())
	s.pusher.receiver.SyncFolder(ctx, s.name())
}

func (s *session) handleFailure(err error) {
	p := s.pusher
	s.reacquireWakeLockAndCleanUp()

	switch classify(err, s.stopped()) {
	case failureAuth:
		s.log.Error("Authentication failed. Stopping pusher.", "error", err)
		p.receiver.AuthenticationFailed()
		s.stop.Store(true)
	case failureNoIdle:
		s.log.Error("Server cannot IDLE. Stopping pusher.", "error", err)
		s.stop.Store(true)
	case failureStopping:
		s.log.Info("Got error while idling, but stop is set", "error", err)
	default:
		p.receiver.PushError("Push error for "+s.name(), err)
		s.log.Error("Got error while idling", "error", err)
		p.metrics.failure(s.ctx, s.name())

		delay, disabled := s.retry.Failure()
		p.receiver.Sleep(s.ctx, p.wakeLock, delay)
		s.needsPoll = true

		if disabled {
			failures := s.retry.Failures()
			s.log.Error("Disabling pusher after consecutive errors", "failures", failures)
			p.receiver.PushError(
				fmt.Sprintf("Push disabled for %s after %d consecutive errors", s.name(), failures),
				fmt.Errorf("%w: %w", ErrPushDisabled, err),
			)
			p.metrics.disable(s.ctx, s.name())
			s.stop.Store(true)
		}
	}
}

func (s *session) reacquireWakeLockAndCleanUp() {
	p := s.pusher
	p.wakeLock.Acquire(WakeLockTimeout)

	s.buffer.Clear()
	s.idling.Store(false)
	p.receiver.SetPushActive(s.name(), false)

	if err := p.folder.Close(); err != nil {
		s.log.Error("Got error while closing after failure", "error", err)
	}
}

func (s *session) shutdown() {
	p := s.pusher
	defer p.wakeLock.Release()

	p.receiver.SetPushActive(s.name(), false)
	s.log.Info("Pusher is exiting")

	if err := p.folder.Close(); err != nil {
		s.log.Error("Got error while closing", "error", err)
	}
}

// refresh forces a running IDLE to return so the window is recomputed.
func (s *session) refresh() {
	if !s.idling.Load() {
		return
	}
	s.pusher.wakeLock.Acquire(WakeLockTimeout)
	s.gate.RequestStop()
}
