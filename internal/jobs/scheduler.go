package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const sweepTimeout = 30 * time.Second

// Refresher re-pushes state for every subscribed room.
type Refresher interface {
	RefreshAll()
}

// RoomSweeper deletes rooms nobody has been in for a while.
type RoomSweeper interface {
	SweepEmptyRooms(ctx context.Context, idle time.Duration) (int, error)
}

type Options struct {
	ReconcileInterval time.Duration
	SweepSchedule     string
	// EmptyRoomIdle is how long a room must have been untouched and empty
	// before the sweep removes it.
	EmptyRoomIdle time.Duration
}

type Scheduler struct {
	cron    *cron.Cron
	hub     Refresher
	rooms   RoomSweeper
	options Options
}

func NewScheduler(hub Refresher, rooms RoomSweeper, opts Options) (*Scheduler, error) {
	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger{}),
		cron.SkipIfStillRunning(cronLogger{}),
	))
	s := &Scheduler{cron: c, hub: hub, rooms: rooms, options: opts}

	if opts.ReconcileInterval > 0 {
		if _, err := c.AddFunc(fmt.Sprintf("@every %s", opts.ReconcileInterval), s.reconcile); err != nil {
			return nil, fmt.Errorf("schedule reconcile: %w", err)
		}
	}
	if opts.SweepSchedule != "" {
		if _, err := c.AddFunc(opts.SweepSchedule, s.sweep); err != nil {
			return nil, fmt.Errorf("schedule room sweep %q: %w", opts.SweepSchedule, err)
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) reconcile() {
	s.hub.RefreshAll()
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	removed, err := s.rooms.SweepEmptyRooms(ctx, s.options.EmptyRoomIdle)
	if err != nil {
		log.Error().Err(err).Int("removed", removed).Msg("empty room sweep failed")
		return
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("swept empty rooms")
	}
}

// cronLogger routes cron's own messages to zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logFields(log.Debug(), keysAndValues).Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logFields(log.Error().Err(err), keysAndValues).Msg(msg)
}

func logFields(e *zerolog.Event, keysAndValues []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, keysAndValues[i+1])
	}
	return e
}
