package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/planillas/internal/logging"
)

// DefaultBatchSize bounds how many changes a single feed read returns.
const DefaultBatchSize = 100

// Event is the typed cross-tab notification: Key changed to NewValue, or was
// removed when Present is false.
type Event struct {
	Key      Key
	NewValue []byte
	Present  bool
	Seq      int64
}

type subscription struct {
	key Key
	fn  func(Event)
}

// Watcher follows a Store's change feed on behalf of one tab.
//
// Changes written by the tab itself are skipped, the same way a browser
// never fires a storage event in the tab that made the write. Subscribers
// are called synchronously from Poll, in feed order, so once Poll returns
// every change up to that point has been applied.
type Watcher struct {
	store    Store
	origin   string
	interval time.Duration
	batch    int
	logger   logging.Logger

	pollMu sync.Mutex // serialises Poll; guards cursor
	cursor int64

	mu     sync.Mutex
	nextID int
	subs   map[int]subscription
}

func NewWatcher(store Store, origin string, interval time.Duration, logger logging.Logger) *Watcher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Watcher{
		store:    store,
		origin:   origin,
		interval: interval,
		batch:    DefaultBatchSize,
		logger:   logger,
		subs:     make(map[int]subscription),
	}
}

// Init positions the watcher at the end of the feed, so only changes made
// from now on are delivered.
func (w *Watcher) Init(ctx context.Context) error {
	seq, err := w.store.LatestSeq(ctx)
	if err != nil {
		return fmt.Errorf("latest seq: %w", err)
	}

	w.pollMu.Lock()
	w.cursor = seq
	w.pollMu.Unlock()
	return nil
}

// Cursor returns the Seq of the last change consumed.
func (w *Watcher) Cursor() int64 {
	w.pollMu.Lock()
	defer w.pollMu.Unlock()
	return w.cursor
}

// Subscribe registers fn for changes of key. Notifications for other keys
// never reach fn. The returned func removes the subscription.
func (w *Watcher) Subscribe(key Key, fn func(Event)) func() {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.subs[id] = subscription{key: key, fn: fn}
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.subs, id)
		w.mu.Unlock()
	}
}

// Poll reads every change after the cursor and dispatches it. It returns the
// number of events delivered to at least one subscriber.
func (w *Watcher) Poll(ctx context.Context) (int, error) {
	w.pollMu.Lock()
	defer w.pollMu.Unlock()

	delivered := 0
	for {
		changes, err := w.store.Changes(ctx, w.cursor, w.batch)
		if err != nil {
			return delivered, fmt.Errorf("read changes after %d: %w", w.cursor, err)
		}

		for _, c := range changes {
			w.cursor = c.Seq
			if c.Origin == w.origin {
				continue
			}
			w.logger.Debug(ctx, "storage change", "key", c.Key, "seq", c.Seq, "deleted", c.Deleted)
			if w.dispatch(Event{Key: Key(c.Key), NewValue: c.Value, Present: !c.Deleted, Seq: c.Seq}) {
				delivered++
			}
		}

		if len(changes) < w.batch {
			return delivered, nil
		}
	}
}

func (w *Watcher) dispatch(e Event) bool {
	w.mu.Lock()
	var fns []func(Event)
	for _, s := range w.subs {
		if s.key == e.Key {
			fns = append(fns, s.fn)
		}
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
	return len(fns) > 0
}

// Run polls on a ticker until ctx is done. Poll errors are logged and the
// next tick retries.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.Poll(ctx); err != nil && ctx.Err() == nil {
				w.logger.Warn(ctx, "storage sync failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
