package qbufcore

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Ticker drives the lifecycle sweep of spec.md §4.5: every interval it posts
// a tickCommand onto the manager's command channel so the sweep runs
// serialized with every other command (§5 "Ticks are never reordered with
// commands"). Structurally this adapts the teacher's
// coordinator.HealthMonitor Start/Stop shape to a single destination
// channel instead of a node-health map.
type Ticker struct {
	mgr      *Manager
	interval time.Duration
	log      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTicker constructs a Ticker for mgr with the given sweep interval
// (spec.md §4.5 "≈1 s").
func NewTicker(mgr *Manager, interval time.Duration, log *zap.Logger) *Ticker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Ticker{mgr: mgr, interval: interval, log: log, ctx: ctx, cancel: cancel}
}

// Start begins the sweep loop in a new goroutine and returns immediately.
func (t *Ticker) Start() {
	t.wg.Add(1)
	go t.run()
}

// Stop cancels the sweep loop and waits for it to exit.
func (t *Ticker) Stop() {
	t.cancel()
	t.wg.Wait()
}

func (t *Ticker) run() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	if t.log != nil {
		t.log.Info("qbuf lifecycle ticker started", zap.Duration("interval", t.interval))
	}

	for {
		select {
		case now := <-ticker.C:
			t.sweep(now)
		case <-t.ctx.Done():
			if t.log != nil {
				t.log.Info("qbuf lifecycle ticker stopped")
			}
			return
		}
	}
}

// sweep posts one tick command and waits for the actor to finish applying
// it, so callers (notably tests) can deterministically observe its effects
// before proceeding.
func (t *Ticker) sweep(now time.Time) {
	done := make(chan struct{})
	t.mgr.cmds <- tickCommand{now: now, done: done}
	<-done
}
