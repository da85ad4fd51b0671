package storage

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/ace/internal/logging"
)

// DefaultRetention is how long change rows are kept before pruning.
const DefaultRetention = 10 * time.Minute

// Watcher delivers changes written by other client processes to subscribers.
// Changes already in the log when the watcher is primed are never replayed.
type Watcher struct {
	repo      Repository
	interval  time.Duration
	retention time.Duration
	logger    logging.Logger
	now       func() time.Time

	mu        sync.Mutex
	subs      map[int]func(Change)
	nextID    int
	lastSeq   int64
	primed    bool
	lastPrune time.Time
}

func NewWatcher(repo Repository, interval time.Duration, logger logging.Logger) *Watcher {
	return &Watcher{
		repo:      repo,
		interval:  interval,
		retention: DefaultRetention,
		logger:    logger.With("component", "storage-watcher"),
		now:       time.Now,
		subs:      make(map[int]func(Change)),
	}
}

// Subscribe registers fn and returns a function that removes it.
func (w *Watcher) Subscribe(fn func(Change)) func() {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.subs[id] = fn
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.subs, id)
		w.mu.Unlock()
	}
}

// Prime records the current end of the change log. Call it once at start-up,
// before any foreign change should count.
func (w *Watcher) Prime(ctx context.Context) error {
	seq, err := w.repo.LastSeq(ctx)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.lastSeq = seq
	w.primed = true
	w.lastPrune = w.now()
	w.mu.Unlock()
	return nil
}

// Poll fetches pending foreign changes and dispatches them in log order.
func (w *Watcher) Poll(ctx context.Context) error {
	w.mu.Lock()
	primed, after := w.primed, w.lastSeq
	w.mu.Unlock()

	if !primed {
		return w.Prime(ctx)
	}

	changes, err := w.repo.Changes(ctx, after)
	if err != nil {
		return err
	}

	for _, c := range changes {
		w.mu.Lock()
		w.lastSeq = c.Seq
		subs := make([]func(Change), 0, len(w.subs))
		for _, fn := range w.subs {
			subs = append(subs, fn)
		}
		w.mu.Unlock()

		w.logger.Debug(ctx, "foreign storage change", "key", c.Key, "present", c.Present, "seq", c.Seq)
		for _, fn := range subs {
			fn(c)
		}
	}

	w.pruneIfDue(ctx)
	return nil
}

func (w *Watcher) pruneIfDue(ctx context.Context) {
	now := w.now()

	w.mu.Lock()
	due := now.Sub(w.lastPrune) >= w.retention
	if due {
		w.lastPrune = now
	}
	w.mu.Unlock()

	if !due {
		return
	}
	if err := w.repo.PruneChanges(ctx, now.Add(-w.retention)); err != nil {
		w.logger.Warn(ctx, "pruning change log failed", "error", err)
	}
}

// Run polls until ctx is done. Poll errors are logged and retried on the next
// tick.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	primed := w.primed
	w.mu.Unlock()

	if !primed {
		if err := w.Prime(ctx); err != nil {
			w.logger.Warn(ctx, "priming storage watcher failed", "error", err)
		}
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.Poll(ctx); err != nil {
				w.logger.Warn(ctx, "storage poll failed", "error", err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}
