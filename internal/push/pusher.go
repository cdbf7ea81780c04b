package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// FolderFactory builds the folder a FolderPusher works on.
type FolderFactory func(name string) (Folder, error)

// WakeLockFactory builds the wake lock held by one folder's worker.
type WakeLockFactory func(folder string) WakeLock

// FolderStatus is a point-in-time view of one folder pusher.
type FolderStatus struct {
	Name    string `json:"name"`
	Running bool   `json:"running"`
	Idling  bool   `json:"idling"`
}

// Pusher runs one FolderPusher per folder of a store.
type Pusher struct {
	newFolder   FolderFactory
	newWakeLock WakeLockFactory
	receiver    Receiver
	config      StoreConfig
	opts        []Option
	log         *slog.Logger
	now         func() time.Time

	mu          sync.Mutex
	pushers     map[string]*FolderPusher
	order       []string
	lastRefresh time.Time
}

func NewPusher(newFolder FolderFactory, newWakeLock WakeLockFactory, receiver Receiver, config StoreConfig, opts ...Option) *Pusher {
	o := newOptions(opts)
	return &Pusher{
		newFolder:   newFolder,
		newWakeLock: newWakeLock,
		receiver:    receiver,
		config:      config,
		opts:        opts,
		log:         o.log,
		now:         time.Now,
		pushers:     map[string]*FolderPusher{},
	}
}

// Start replaces any running folder pushers with new ones for folderNames. A
// restarted folder's new worker begins once the old one has exited.
func (p *Pusher) Start(folderNames []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	previous := p.pushers
	p.stopLocked()

	var errs []error
	for _, name := range folderNames {
		if _, ok := p.pushers[name]; ok {
			continue
		}
		folder, err := p.newFolder(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("folder %q: %w", name, err))
			continue
		}
		fp := NewFolderPusher(folder, p.receiver, p.config, p.newWakeLock(name), p.opts...)
		if old, ok := previous[name]; ok {
			// The old worker still reports inactive and closes the folder on exit.
			fp.waitFor(old.Done())
		}
		if err := fp.Start(); err != nil {
			errs = append(errs, fmt.Errorf("folder %q: %w", name, err))
			continue
		}
		p.pushers[name] = fp
		p.order = append(p.order, name)
		p.log.Info("Started pushing", "folder", name)
	}
	p.lastRefresh = p.now()
	return errors.Join(errs...)
}

// Refresh interrupts IDLE on every folder.
func (p *Pusher) Refresh() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, name := range p.order {
		p.pushers[name].Refresh()
	}
	p.lastRefresh = p.now()
}

func (p *Pusher) RefreshFolder(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	fp, ok := p.pushers[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFolder, name)
	}
	fp.Refresh()
	return nil
}

func (p *Pusher) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Pusher) stopLocked() {
	for _, name := range p.order {
		if err := p.pushers[name].Stop(); err != nil && !errors.Is(err, ErrNotStarted) {
			p.log.Warn("Stopping folder pusher failed", "folder", name, "error", err)
		}
	}
	p.pushers = map[string]*FolderPusher{}
	p.order = nil
}

// Wait blocks until every running worker has exited or ctx is done.
func (p *Pusher) Wait(ctx context.Context) error {
	p.mu.Lock()
	pushers := make([]*FolderPusher, 0, len(p.order))
	for _, name := range p.order {
		pushers = append(pushers, p.pushers[name])
	}
	p.mu.Unlock()

	return waitFor(ctx, pushers)
}

func waitFor(ctx context.Context, pushers []*FolderPusher) error {
	for _, fp := range pushers {
		select {
		case <-fp.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Shutdown stops every folder and waits for the workers to exit.
func (p *Pusher) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	pushers := make([]*FolderPusher, 0, len(p.order))
	for _, name := range p.order {
		pushers = append(pushers, p.pushers[name])
	}
	p.stopLocked()
	p.mu.Unlock()

	return waitFor(ctx, pushers)
}

func (p *Pusher) Folders() []FolderStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	statuses := make([]FolderStatus, 0, len(p.order))
	for _, name := range p.order {
		fp := p.pushers[name]
		statuses = append(statuses, FolderStatus{
			Name:    name,
			Running: fp.Running(),
			Idling:  fp.Idling(),
		})
	}
	return statuses
}

func (p *Pusher) LastRefresh() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastRefresh
}
