package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// RoomEventsChannel carries the code of every room that changed.
const RoomEventsChannel = "room_events"

const connectTimeout = 3 * time.Second

type eventPublisher struct {
	db *gorm.DB
}

func NewEventPublisher(db *gorm.DB) *eventPublisher {
	return &eventPublisher{db: db}
}

// RoomChanged issues pg_notify on the publisher's connection. Postgres holds
// notifications raised in a transaction until it commits and drops them on
// rollback.
func (p *eventPublisher) RoomChanged(ctx context.Context, code string) error {
	return p.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", RoomEventsChannel, code).Error
}

// Listener follows RoomEventsChannel on a dedicated pgx connection.
type Listener struct {
	connStr string
	backoff time.Duration
}

func NewListener(connStr string) *Listener {
	return &Listener{connStr: connStr, backoff: 2 * time.Second}
}

// Run blocks until ctx is cancelled, calling onEvent with each room code.
// Lost connections are re-established after a short pause.
func (l *Listener) Run(ctx context.Context, onEvent func(code string)) {
	for {
		err := l.listen(ctx, onEvent)
		if ctx.Err() != nil {
			return
		}
		log.Warn().Err(err).Dur("retry_in", l.backoff).Msg("room event listener disconnected")

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.backoff):
		}
	}
}

func (l *Listener) listen(ctx context.Context, onEvent func(code string)) error {
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	conn, err := pgx.Connect(connectCtx, l.connStr)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+RoomEventsChannel); err != nil {
		return err
	}
	log.Info().Str("channel", RoomEventsChannel).Msg("listening for room events")

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		if n.Payload == "" {
			continue
		}
		onEvent(n.Payload)
	}
}

