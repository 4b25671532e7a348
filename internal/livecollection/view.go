// Package livecollection keeps an in-memory copy of a remote table that
// converges with the store after every change notification.
//
// A View fetches the whole table once on Open, then re-fetches it in full
// whenever the table's change channel fires. Local mutations go to the store
// first and patch the local copy only after the store accepted them. The
// remote store stays the source of truth: the next notification-driven
// refetch replaces whatever the local patch produced.
package livecollection

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/synergyayush/lookindharamshala/internal/domain/entities"
	"github.com/synergyayush/lookindharamshala/internal/domain/providers"
)

// ErrClosed is returned by operations on a view that has been closed
var ErrClosed = errors.New("live collection closed")

// Record is an item held by a View
type Record interface {
	RecordID() string
}

// Store is the remote side of a View
type Store[T Record, P any] interface {
	FetchAll(ctx context.Context) ([]T, error)
	Insert(ctx context.Context, item T) (T, error)
	Update(ctx context.Context, id string, patch P) (T, error)
	Delete(ctx context.Context, id string) error
}

// State is the lifecycle state of a View
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	}
	return "unknown"
}

// RefreshHook observes every completed refetch
type RefreshHook func(ctx context.Context, name string, err error, took time.Duration)

type options[T Record] struct {
	less   func(a, b T) bool
	member func(T) bool
	logger zerolog.Logger
	hook   RefreshHook
}

// Option configures a View
type Option[T Record] func(*options[T])

// WithOrdering keeps locally patched items in the order the store returns them
func WithOrdering[T Record](less func(a, b T) bool) Option[T] {
	return func(o *options[T]) { o.less = less }
}

// WithMembership drops locally patched items that no longer belong to the view
func WithMembership[T Record](member func(T) bool) Option[T] {
	return func(o *options[T]) { o.member = member }
}

// WithLogger sets the view's logger
func WithLogger[T Record](logger zerolog.Logger) Option[T] {
	return func(o *options[T]) { o.logger = logger }
}

// WithRefreshHook registers a callback run after every refetch
func WithRefreshHook[T Record](hook RefreshHook) Option[T] {
	return func(o *options[T]) { o.hook = hook }
}

// View is a live, locally cached copy of one remote table (or a filtered slice of it)
type View[T Record, P any] struct {
	name  string
	table string
	store Store[T, P]
	bus   providers.EventBus
	opts  options[T]

	mu      sync.RWMutex
	items   []T
	state   State
	lastErr error
	closed  bool
	issued  uint64
	applied uint64

	cancel    context.CancelFunc
	done      chan struct{}
	openOnce  sync.Once
	closeOnce sync.Once
}

// New creates a view named name over store that listens for changes to table on bus.
// bus may be nil, in which case the view only converges through Refresh.
func New[T Record, P any](name, table string, store Store[T, P], bus providers.EventBus, opts ...Option[T]) *View[T, P] {
	o := options[T]{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.With().Str("collection", name).Logger()

	return &View[T, P]{
		name:  name,
		table: table,
		store: store,
		bus:   bus,
		opts:  o,
	}
}

// Name returns the view name
func (v *View[T, P]) Name() string { return v.name }

// Open subscribes to the table's change channel, performs the initial fetch
// and starts the reconciliation loop. A failed initial fetch still leaves the
// view Ready with an empty list; see LastError. Open fails only if the
// subscription cannot be established, in which case nothing is left running.
func (v *View[T, P]) Open(ctx context.Context) error {
	err := ErrClosed
	v.openOnce.Do(func() {
		err = v.open(ctx)
	})
	return err
}

func (v *View[T, P]) open(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	v.state = StateLoading
	v.mu.Unlock()

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	var events <-chan *entities.ChangeEvent
	if v.bus != nil {
		ch, err := v.bus.Subscribe(loopCtx, providers.TableChannel(v.table))
		if err != nil {
			cancel()
			v.mu.Lock()
			v.state = StateUninitialized
			v.mu.Unlock()
			return err
		}
		events = ch
	}

	done := make(chan struct{})
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		cancel()
		return ErrClosed
	}
	v.cancel = cancel
	v.done = done
	v.mu.Unlock()

	// Subscribing before the first fetch means a change that lands during
	// the fetch still triggers a second one.
	_ = v.Refresh(ctx)

	go v.run(loopCtx, events, done)
	return nil
}

func (v *View[T, P]) run(ctx context.Context, events <-chan *entities.ChangeEvent, done chan struct{}) {
	defer close(done)
	if events == nil {
		<-ctx.Done()
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			coalesced := 1
			open := true
		drain:
			for {
				select {
				case _, more := <-events:
					if !more {
						open = false
						break drain
					}
					coalesced++
				default:
					break drain
				}
			}

			v.opts.logger.Debug().
				Str("type", string(ev.Type)).
				Str("record_id", ev.RecordID).
				Int("coalesced", coalesced).
				Msg("change notification")

			_ = v.Refresh(ctx)
			if !open {
				return
			}
		}
	}
}

// Refresh re-fetches the full collection. On failure the current list is
// kept and the error is recorded and returned.
func (v *View[T, P]) Refresh(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	v.issued++
	seq := v.issued
	v.state = StateLoading
	v.mu.Unlock()

	start := time.Now()
	items, err := v.store.FetchAll(ctx)
	took := time.Since(start)

	if v.opts.hook != nil {
		v.opts.hook(ctx, v.name, err, took)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrClosed
	}
	if seq < v.applied {
		// A newer fetch already landed.
		return nil
	}
	v.applied = seq
	v.state = StateReady

	if err != nil {
		v.lastErr = err
		v.opts.logger.Error().Err(err).Msg("failed to fetch collection")
		return err
	}

	v.items = append(make([]T, 0, len(items)), items...)
	v.lastErr = nil
	v.opts.logger.Debug().Int("count", len(items)).Dur("took", took).Msg("collection refreshed")
	return nil
}

// Create inserts item in the store and, on success, adds the stored row locally
func (v *View[T, P]) Create(ctx context.Context, item T) (T, error) {
	var zero T
	if v.isClosed() {
		return zero, ErrClosed
	}

	created, err := v.store.Insert(ctx, item)
	if err != nil {
		return zero, err
	}

	v.upsert(created)
	v.notify(ctx, entities.ChangeTypeInsert, created.RecordID())
	return created, nil
}

// Update applies patch to the record in the store and, on success, replaces it locally
func (v *View[T, P]) Update(ctx context.Context, id string, patch P) (T, error) {
	var zero T
	if v.isClosed() {
		return zero, ErrClosed
	}

	updated, err := v.store.Update(ctx, id, patch)
	if err != nil {
		return zero, err
	}

	v.upsert(updated)
	v.notify(ctx, entities.ChangeTypeUpdate, id)
	return updated, nil
}

// Delete removes the record from the store and, on success, locally
func (v *View[T, P]) Delete(ctx context.Context, id string) error {
	if v.isClosed() {
		return ErrClosed
	}

	if err := v.store.Delete(ctx, id); err != nil {
		return err
	}

	v.mu.Lock()
	if !v.closed {
		v.removeLocked(id)
	}
	v.mu.Unlock()

	v.notify(ctx, entities.ChangeTypeDelete, id)
	return nil
}

// Observe records a write the store already accepted through another path,
// such as a transaction spanning several tables. The local copy is patched
// exactly as if the write had gone through Create, Update or Delete.
func (v *View[T, P]) Observe(ctx context.Context, changeType entities.ChangeType, item T) {
	if v.isClosed() {
		return
	}

	id := item.RecordID()
	if changeType == entities.ChangeTypeDelete {
		v.mu.Lock()
		if !v.closed {
			v.removeLocked(id)
		}
		v.mu.Unlock()
	} else {
		v.upsert(item)
	}
	v.notify(ctx, changeType, id)
}

// List returns a snapshot of the collection
func (v *View[T, P]) List() []T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append(make([]T, 0, len(v.items)), v.items...)
}

// Get returns the record with the given id from the local copy
func (v *View[T, P]) Get(id string) (T, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, item := range v.items {
		if item.RecordID() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// State returns the lifecycle state
func (v *View[T, P]) State() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// LastError returns the error of the most recent refetch, nil if it succeeded
func (v *View[T, P]) LastError() error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.lastErr
}

// Close stops the reconciliation loop and releases the subscription. Fetch
// results that arrive afterwards are discarded. Close is idempotent.
func (v *View[T, P]) Close() error {
	v.closeOnce.Do(func() {
		v.mu.Lock()
		v.closed = true
		cancel, done := v.cancel, v.done
		v.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if done != nil {
			<-done
		}
	})
	return nil
}

func (v *View[T, P]) isClosed() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.closed
}

func (v *View[T, P]) upsert(item T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}

	id := item.RecordID()
	if v.opts.member != nil && !v.opts.member(item) {
		v.removeLocked(id)
		return
	}

	// an existing item is replaced where it stands
	for i, existing := range v.items {
		if existing.RecordID() == id {
			v.items[i] = item
			return
		}
	}

	if v.opts.less == nil {
		v.items = append(v.items, item)
		return
	}
	i := sort.Search(len(v.items), func(i int) bool {
		return v.opts.less(item, v.items[i])
	})
	v.items = append(v.items, item)
	copy(v.items[i+1:], v.items[i:])
	v.items[i] = item
}

func (v *View[T, P]) removeLocked(id string) {
	for i, item := range v.items {
		if item.RecordID() == id {
			v.items = append(v.items[:i:i], v.items[i+1:]...)
			return
		}
	}
}

func (v *View[T, P]) notify(ctx context.Context, changeType entities.ChangeType, id string) {
	if v.bus == nil {
		return
	}
	ev := entities.NewChangeEvent(v.table, changeType, id)
	if err := v.bus.Publish(context.WithoutCancel(ctx), providers.TableChannel(v.table), ev); err != nil {
		v.opts.logger.Warn().Err(err).Str("record_id", id).Msg("failed to publish change event")
	}
}
