package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dom/outsider-party/internal/config"
	"github.com/dom/outsider-party/internal/domain"
	"github.com/dom/outsider-party/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrPlayerNotFound = errors.New("player not found")
	ErrRoundNotFound  = errors.New("round not found")
)

type Services struct {
	Session *SessionService
	Words   *WordService
	Room    *RoomService
	Game    *GameService
	Vote    *VoteService
}

func NewServices(repos *repository.Repositories, cfg *config.Config) *Services {
	sessions := NewSessionService(cfg)
	words := NewWordService(repos.WordPair)
	return &Services{
		Session: sessions,
		Words:   words,
		Room:    NewRoomService(repos, sessions),
		Game:    NewGameService(repos, words, cfg.DrawGrace),
		Vote:    NewVoteService(repos),
	}
}

func now() time.Time {
	return time.Now().UTC()
}

func lockRoom(ctx context.Context, repos *repository.Repositories, code string) (*domain.Room, error) {
	room, err := repos.Room.LockByCode(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock room %s: %w", code, err)
	}
	return room, nil
}

func findPlayer(ctx context.Context, repos *repository.Repositories, code, nickname string) (*domain.Player, error) {
	player, err := repos.Player.GetByRoomAndNickname(ctx, code, nickname)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load player %s: %w", nickname, err)
	}
	return player, nil
}

func latestRound(ctx context.Context, repos *repository.Repositories, code string, lock bool) (*domain.Round, error) {
	get := repos.Round.GetLatest
	if lock {
		get = repos.Round.LockLatest
	}
	round, err := get(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoundNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load round: %w", err)
	}
	return round, nil
}

// setPhase writes a guarded phase change. The room row must already be
// locked; a failed compare-and-set means the stored phase moved under us.
func setPhase(ctx context.Context, repos *repository.Repositories, room *domain.Room, to domain.Phase) error {
	if err := domain.CheckTransition(room.CurrentPhase, to); err != nil {
		return err
	}
	ok, err := repos.Room.CompareAndSetPhase(ctx, room.Code, room.CurrentPhase, to)
	if err != nil {
		return fmt.Errorf("set phase: %w", err)
	}
	if !ok {
		return &domain.TransitionError{From: room.CurrentPhase, To: to}
	}
	room.CurrentPhase = to
	return nil
}

// purgeRoundData drops drawings and votes; accusations are game scoped and
// survive until the next game.
func purgeRoundData(ctx context.Context, repos *repository.Repositories, code string) error {
	if err := repos.Drawing.DeleteByRoomCode(ctx, code); err != nil {
		return fmt.Errorf("purge drawings: %w", err)
	}
	if err := repos.Vote.DeleteByRoomCode(ctx, code); err != nil {
		return fmt.Errorf("purge votes: %w", err)
	}
	return nil
}

func purgeGameData(ctx context.Context, repos *repository.Repositories, code string) error {
	if err := purgeRoundData(ctx, repos, code); err != nil {
		return err
	}
	if err := repos.Accusation.DeleteByRoomCode(ctx, code); err != nil {
		return fmt.Errorf("purge accusations: %w", err)
	}
	return nil
}

// purgeRoom deletes the room and everything scoped to it.
func purgeRoom(ctx context.Context, repos *repository.Repositories, code string) error {
	if err := purgeGameData(ctx, repos, code); err != nil {
		return err
	}
	if err := repos.Round.DeleteByRoomCode(ctx, code); err != nil {
		return fmt.Errorf("purge rounds: %w", err)
	}
	if err := repos.Player.DeleteByRoomCode(ctx, code); err != nil {
		return fmt.Errorf("purge players: %w", err)
	}
	if err := repos.Room.Delete(ctx, code); err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	return nil
}

func notify(ctx context.Context, repos *repository.Repositories, code string) error {
	if err := repos.Events.RoomChanged(ctx, code); err != nil {
		return fmt.Errorf("notify room %s: %w", code, err)
	}
	return nil
}
