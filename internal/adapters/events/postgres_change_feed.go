package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/synergyayush/lookindharamshala/internal/domain/entities"
	"github.com/synergyayush/lookindharamshala/internal/domain/providers"
	"github.com/synergyayush/lookindharamshala/internal/infrastructure/observability"
)

// ChangeFeedChannel is the Postgres NOTIFY channel the table triggers write to
const ChangeFeedChannel = "directory_changes"

const changeFeedPingInterval = 90 * time.Second

// PostgresChangeFeed relays row changes made by any database client onto the
// event bus. Triggers installed by the migrations NOTIFY a small JSON payload
// on ChangeFeedChannel for every insert, update and delete.
type PostgresChangeFeed struct {
	listener *pq.Listener
	bus      providers.EventBus
	logger   zerolog.Logger
}

type changeNotification struct {
	Table    string `json:"table"`
	Type     string `json:"type"`
	RecordID string `json:"record_id"`
}

// NewPostgresChangeFeed creates a relay listening with its own connection to dsn
func NewPostgresChangeFeed(dsn string, bus providers.EventBus) *PostgresChangeFeed {
	logger := observability.ComponentLogger("postgres_change_feed")
	listener := pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn().Err(err).Int("event", int(ev)).Msg("listener connection event")
		}
	})
	return &PostgresChangeFeed{
		listener: listener,
		bus:      bus,
		logger:   logger,
	}
}

// Run listens until ctx is done
func (f *PostgresChangeFeed) Run(ctx context.Context) error {
	defer f.listener.Close()

	if err := f.listener.Listen(ChangeFeedChannel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", ChangeFeedChannel, err)
	}
	f.logger.Info().Str("channel", ChangeFeedChannel).Msg("change feed started")

	ticker := time.NewTicker(changeFeedPingInterval)
	defer ticker.Stop()

	notifications := f.listener.NotificationChannel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-notifications:
			if !ok {
				return nil
			}
			if n == nil {
				// The connection was re-established and notifications may have
				// been lost, so every table has to refetch.
				f.broadcastAll(ctx)
				continue
			}
			f.relay(ctx, n.Extra)
		case <-ticker.C:
			if err := f.listener.Ping(); err != nil {
				f.logger.Warn().Err(err).Msg("change feed ping failed")
			}
		}
	}
}

func (f *PostgresChangeFeed) relay(ctx context.Context, payload string) {
	event, err := decodeChangeNotification(payload)
	if err != nil {
		f.logger.Warn().Err(err).Str("payload", payload).Msg("ignoring malformed change notification")
		return
	}
	if err := f.bus.Publish(ctx, providers.TableChannel(event.Table), event); err != nil {
		f.logger.Warn().Err(err).Str("table", event.Table).Msg("failed to relay change")
	}
}

func (f *PostgresChangeFeed) broadcastAll(ctx context.Context) {
	for _, table := range entities.Tables() {
		event := entities.NewChangeEvent(table, entities.ChangeTypeAny, "")
		if err := f.bus.Publish(ctx, providers.TableChannel(table), event); err != nil {
			f.logger.Warn().Err(err).Str("table", table).Msg("failed to relay reconnect")
		}
	}
}

func decodeChangeNotification(payload string) (*entities.ChangeEvent, error) {
	var n changeNotification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return nil, err
	}
	if n.Table == "" {
		return nil, fmt.Errorf("missing table")
	}

	changeType := entities.ChangeType(n.Type)
	switch changeType {
	case entities.ChangeTypeInsert, entities.ChangeTypeUpdate, entities.ChangeTypeDelete:
	default:
		changeType = entities.ChangeTypeAny
	}
	return entities.NewChangeEvent(n.Table, changeType, n.RecordID), nil
}
