// Package events carries the "inventory changed, refetch" signal between
// otherwise unrelated parts of the dashboard.
//
// Listeners present at emit time are called synchronously. A pending flag in
// a FlagStore lets consumers that attach later notice a missed emit exactly
// once.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

// DefaultRefreshKey names the pending-refresh flag.
const DefaultRefreshKey = "omnishelf_inventory_refresh"

type Listener func()

type subscription struct {
	id int64
	fn Listener
}

type Bus struct {
	mu        sync.Mutex
	nextID    int64
	listeners []subscription

	store  FlagStore
	key    string
	logger *slog.Logger
	now    func() time.Time
}

func NewBus(store FlagStore, key string, logger *slog.Logger) *Bus {
	if store == nil {
		store = NewMemoryStore()
	}
	if key == "" {
		key = DefaultRefreshKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		store:  store,
		key:    key,
		logger: logger.With("component", "events"),
		now:    time.Now,
	}
}

// Subscribe registers fn and returns its unsubscribe func. Calling the
// returned func more than once is a no-op.
func (b *Bus) Subscribe(fn Listener) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, subscription{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.listeners {
		if s.id == id {
			b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
			return
		}
	}
}

// Listeners reports how many subscriptions are active.
func (b *Bus) Listeners() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

// Emit calls every current listener in registration order, then sets the
// pending flag. Listeners run outside the lock, so they may subscribe or
// unsubscribe. Store failures are logged, not returned.
func (b *Bus) Emit(ctx context.Context) {
	b.mu.Lock()
	snapshot := make([]subscription, len(b.listeners))
	copy(snapshot, b.listeners)
	b.mu.Unlock()

	for _, s := range snapshot {
		b.call(s)
	}

	stamp := strconv.FormatInt(b.now().UnixMilli(), 10)
	if err := b.store.Set(ctx, b.key, stamp); err != nil {
		b.logger.ErrorContext(ctx, "Failed to set refresh flag", "key", b.key, "error", err)
		return
	}
	b.logger.DebugContext(ctx, "Inventory refresh emitted", "listeners", len(snapshot))
}

func (b *Bus) call(s subscription) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Inventory listener panicked", "subscription", s.id, "panic", fmt.Sprint(r))
		}
	}()
	s.fn()
}

// CheckPendingRefresh reads and clears the pending flag. Any number of emits
// since the last check yield a single true.
func (b *Bus) CheckPendingRefresh(ctx context.Context) bool {
	pending, err := b.store.Take(ctx, b.key)
	if err != nil {
		b.logger.ErrorContext(ctx, "Failed to read refresh flag", "key", b.key, "error", err)
		return false
	}
	return pending
}

// Stream delivers emits on a channel with a buffer of one, so a burst of
// emits between reads coalesces into one signal. The subscription ends when
// ctx is done. The channel is never closed; select on ctx.Done alongside it.
func (b *Bus) Stream(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{}, 1)
	unsubscribe := b.Subscribe(func() {
		select {
		case ch <- struct{}{}:
		default:
		}
	})
	go func() {
		<-ctx.Done()
		unsubscribe()
	}()
	return ch
}

func (b *Bus) Close() error {
	b.mu.Lock()
	b.listeners = nil
	b.mu.Unlock()
	return b.store.Close()
}
