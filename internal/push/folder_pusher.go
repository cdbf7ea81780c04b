package push

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// FolderPusher keeps an IDLE session open on a single folder and tells the
// receiver whenever the folder needs to be synchronized.
type FolderPusher struct {
	folder   Folder
	receiver Receiver
	config   StoreConfig
	wakeLock WakeLock

	log     *slog.Logger
	opts    options
	metrics *metrics

	mu       sync.Mutex
	run      *session
	lastDone <-chan struct{}
}

func NewFolderPusher(folder Folder, receiver Receiver, config StoreConfig, wakeLock WakeLock, opts ...Option) *FolderPusher {
	o := newOptions(opts)
	return &FolderPusher{
		folder:   folder,
		receiver: receiver,
		config:   config,
		wakeLock: wakeLock,
		log:      o.log.With("folder", folder.Name(), "store", folder.LogID()),
		opts:     o,
		metrics:  newMetrics(o.meterProvider),
	}
}

func (p *FolderPusher) Name() string {
	return p.folder.Name()
}

// Start spawns the worker. A worker left over from a previous Stop is allowed
// to finish before the new one touches the folder.
func (p *FolderPusher) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.run != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	s := &session{
		pusher: p,
		log:    p.log.With("session_id", id),
		tracer: p.opts.tracerProvider.Tracer(instrumentationName),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		retry:  newRetryPolicy(),
	}

	previous := p.lastDone
	p.run = s
	p.lastDone = s.done

	go func() {
		if previous != nil {
			<-previous
		}
		s.run()
	}()
	return nil
}

// waitFor makes the next Start wait until done is closed. Pusher uses it when
// a folder moves from a replaced FolderPusher to a new one.
func (p *FolderPusher) waitFor(done <-chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastDone = done
}

// Stop asks the worker to exit and closes the folder to break a blocking read.
// It does not wait for the worker; use Done for that.
func (p *FolderPusher) Stop() error {
	p.mu.Lock()
	s := p.run
	if s == nil {
		p.mu.Unlock()
		return ErrNotStarted
	}
	s.stop.Store(true)
	s.cancel()
	p.run = nil
	p.mu.Unlock()

	if p.folder.IsOpen() {
		p.log.Debug("Closing folder to stop pushing")
		if err := p.folder.Close(); err != nil {
			p.log.Warn("Closing folder to stop pushing failed", "error", err)
		}
	} else {
		p.log.Warn("Attempt to interrupt null connection to stop pushing")
	}
	return nil
}

// Refresh interrupts a running IDLE so the worker re-evaluates the folder.
// It does nothing when the worker is not idling.
func (p *FolderPusher) Refresh() {
	p.mu.Lock()
	s := p.run
	p.mu.Unlock()

	if s != nil {
		s.refresh()
	}
}

// Idling reports whether the worker is currently inside IDLE.
func (p *FolderPusher) Idling() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.run != nil && p.run.idling.Load()
}

// Running reports whether a started worker has not exited yet.
func (p *FolderPusher) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.run == nil {
		return false
	}
	select {
	case <-p.run.done:
		return false
	default:
		return true
	}
}

// Done is closed once the most recently started worker has exited.
func (p *FolderPusher) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastDone == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return p.lastDone
}
