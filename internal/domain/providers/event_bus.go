package providers

import (
	"context"

	"github.com/synergyayush/lookindharamshala/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to change events
type EventBus interface {
	// Publish publishes an event to all subscribers of channel
	Publish(ctx context.Context, channel string, event *entities.ChangeEvent) error

	// Subscribe subscribes to events on a channel. The returned channel is
	// closed when ctx is done or the bus shuts down.
	Subscribe(ctx context.Context, channel string) (<-chan *entities.ChangeEvent, error)

	// Unsubscribe drops every subscriber of a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannelTablePrefix is the prefix for per-table change channels
const EventChannelTablePrefix = "table:"

// TableChannel returns the channel name carrying changes to table
func TableChannel(table string) string {
	return EventChannelTablePrefix + table
}
