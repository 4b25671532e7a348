package events

import (
	"context"
	"errors"
	"sync"

	"github.com/synergyayush/lookindharamshala/internal/domain/entities"
	"github.com/synergyayush/lookindharamshala/internal/domain/providers"
)

// ErrBusClosed is returned when publishing to or subscribing on a closed bus
var ErrBusClosed = errors.New("event bus closed")

// LocalEventBus is an in-process EventBus used when Redis is not configured
// and in tests. Events never leave the process.
type LocalEventBus struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *entities.ChangeEvent]struct{}
	done        chan struct{}
	closeOnce   sync.Once
}

// NewLocalEventBus creates a new in-process event bus
func NewLocalEventBus() *LocalEventBus {
	return &LocalEventBus{
		subscribers: make(map[string]map[chan *entities.ChangeEvent]struct{}),
		done:        make(chan struct{}),
	}
}

var _ providers.EventBus = (*LocalEventBus)(nil)

// Publish delivers event to every current subscriber of channel without blocking
func (b *LocalEventBus) Publish(ctx context.Context, channel string, event *entities.ChangeEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	select {
	case <-b.done:
		return ErrBusClosed
	default:
	}

	for subscriber := range b.subscribers[channel] {
		ev := *event
		select {
		case subscriber <- &ev:
		default:
		}
	}
	return nil
}

// Subscribe subscribes to events on a channel until ctx is done
func (b *LocalEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.ChangeEvent, error) {
	b.mu.Lock()
	select {
	case <-b.done:
		b.mu.Unlock()
		return nil, ErrBusClosed
	default:
	}

	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[chan *entities.ChangeEvent]struct{})
	}
	eventChan := make(chan *entities.ChangeEvent, subscriberBuffer)
	b.subscribers[channel][eventChan] = struct{}{}
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-b.done:
		}
		b.remove(channel, eventChan)
	}()

	return eventChan, nil
}

// SubscriberCount returns the number of live subscribers on channel
func (b *LocalEventBus) SubscriberCount(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[channel])
}

func (b *LocalEventBus) remove(channel string, eventChan chan *entities.ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subscribers, ok := b.subscribers[channel]
	if !ok {
		return
	}
	if _, ok := subscribers[eventChan]; !ok {
		return
	}
	delete(subscribers, eventChan)
	close(eventChan)
	if len(subscribers) == 0 {
		delete(b.subscribers, channel)
	}
}

// Unsubscribe drops every subscriber of channel
func (b *LocalEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for subscriber := range b.subscribers[channel] {
		close(subscriber)
	}
	delete(b.subscribers, channel)
	return nil
}

// Close closes every subscription
func (b *LocalEventBus) Close() error {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		close(b.done)
		for channel, subscribers := range b.subscribers {
			for subscriber := range subscribers {
				close(subscriber)
			}
			delete(b.subscribers, channel)
		}
		b.mu.Unlock()
	})
	return nil
}
