package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dom/outsider-party/internal/domain"
	"github.com/dom/outsider-party/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var errCodeTaken = errors.New("room code taken")

const createRoomAttempts = 8

// RoomService is the room/player registry.
type RoomService struct {
	repos    *repository.Repositories
	sessions *SessionService
}

func NewRoomService(repos *repository.Repositories, sessions *SessionService) *RoomService {
	return &RoomService{
		repos:    repos,
		sessions: sessions,
	}
}

type JoinResult struct {
	Room      *domain.Room
	Player    *domain.Player
	IsNewHost bool
	Token     string
}

// CreateRoom opens a room under a fresh code with nickname as host.
func (s *RoomService) CreateRoom(ctx context.Context, nickname string) (*JoinResult, error) {
	for attempt := 0; attempt < createRoomAttempts; attempt++ {
		code, err := domain.GenerateRoomCode()
		if err != nil {
			return nil, err
		}
		result, err := s.join(ctx, code, nickname, true)
		if errors.Is(err, errCodeTaken) {
			continue
		}
		return result, err
	}
	return nil, fmt.Errorf("no free room code after %d attempts", createRoomAttempts)
}

// Join ensures the room exists and upserts the player. The first nickname to
// reach an absent room becomes its host. Returning members keep their role
// and elimination state; unknown nicknames are refused once a game runs.
func (s *RoomService) Join(ctx context.Context, code, nickname string) (*JoinResult, error) {
	return s.join(ctx, code, nickname, false)
}

func (s *RoomService) join(ctx context.Context, code, nickname string, mustCreate bool) (*JoinResult, error) {
	code = domain.NormalizeRoomCode(code)
	if !domain.ValidRoomCode(code) {
		return nil, domain.ErrInvalidRoomCode
	}
	nickname, err := domain.NormalizeNickname(nickname)
	if err != nil {
		return nil, err
	}

	result := &JoinResult{}
	err = s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		created, err := repos.Room.CreateIfAbsent(ctx, domain.NewRoom(code, nickname))
		if err != nil {
			return fmt.Errorf("ensure room: %w", err)
		}
		if mustCreate && !created {
			return errCodeTaken
		}

		room, err := lockRoom(ctx, repos, code)
		if err != nil {
			return err
		}

		player, err := findPlayer(ctx, repos, code, nickname)
		switch {
		case err == nil:
			if room.CurrentPhase == domain.PhaseLobby && !player.IsInLobby {
				player.IsInLobby = true
				if err := repos.Player.Update(ctx, player); err != nil {
					return err
				}
			}
		case errors.Is(err, ErrPlayerNotFound):
			if room.CurrentPhase != domain.PhaseLobby {
				return domain.ErrGameInProgress
			}
			count, err := repos.Player.CountByRoomCode(ctx, code)
			if err != nil {
				return err
			}
			// An empty room left behind by a failed cascade is adopted.
			if count == 0 && room.HostNickname != nickname {
				if err := repos.Room.SetHost(ctx, code, nickname); err != nil {
					return err
				}
				room.HostNickname = nickname
			}
			player = &domain.Player{
				RoomCode:  code,
				Nickname:  nickname,
				Role:      domain.RoleCivilian,
				IsHost:    room.HostNickname == nickname,
				IsInLobby: true,
				JoinedAt:  now(),
			}
			if err := repos.Player.Create(ctx, player); err != nil {
				return fmt.Errorf("create player: %w", err)
			}
		default:
			return err
		}

		result.Room = room
		result.Player = player
		result.IsNewHost = created
		return notify(ctx, repos, code)
	})
	if err != nil {
		return nil, err
	}

	token, err := s.sessions.Issue(result.Player)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	result.Token = token

	log.Info().Str("room", code).Str("nickname", nickname).Bool("new_host", result.IsNewHost).Msg("player joined")
	return result, nil
}

type LeaveResult struct {
	RoomDeleted bool
	Remaining   int64
	NewHost     string
	// VoteClosed is set when the departure left every remaining ballot in.
	VoteClosed bool
}

// Leave removes the player. Emptying the room deletes every record scoped
// to it in the same transaction; the room row lock keeps a concurrent join
// from slipping in between the count and the deletes.
func (s *RoomService) Leave(ctx context.Context, code, nickname string) (*LeaveResult, error) {
	code = domain.NormalizeRoomCode(code)
	result := &LeaveResult{}

	err := s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		room, err := lockRoom(ctx, repos, code)
		if errors.Is(err, ErrRoomNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		leaver, err := findPlayer(ctx, repos, code, nickname)
		if err != nil && !errors.Is(err, ErrPlayerNotFound) {
			return err
		}
		if err := repos.Player.Delete(ctx, code, nickname); err != nil {
			return fmt.Errorf("delete player: %w", err)
		}

		remaining, err := repos.Player.CountByRoomCode(ctx, code)
		if err != nil {
			return err
		}
		result.Remaining = remaining

		if remaining == 0 {
			if err := purgeRoom(ctx, repos, code); err != nil {
				return err
			}
			result.RoomDeleted = true
			return notify(ctx, repos, code)
		}

		if room.HostNickname == nickname {
			players, err := repos.Player.GetByRoomCode(ctx, code)
			if err != nil {
				return err
			}
			next := players[0]
			next.IsHost = true
			if err := repos.Player.Update(ctx, next); err != nil {
				return err
			}
			if err := repos.Room.SetHost(ctx, code, next.Nickname); err != nil {
				return err
			}
			result.NewHost = next.Nickname
		}

		if leaver != nil && !leaver.IsEliminated && room.CurrentPhase == domain.PhaseVote {
			if err := recountAfterLeave(ctx, repos, room); err != nil {
				return err
			}
			result.VoteClosed = room.CurrentPhase == domain.PhaseResults
		}
		return notify(ctx, repos, code)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("room", code).Str("nickname", nickname).Bool("deleted", result.RoomDeleted).Msg("player left")
	return result, nil
}

// recountAfterLeave closes the vote if the departure left every remaining
// living player with a ballot. Votes naming the departed player stop
// counting, so their voters have to vote again.
func recountAfterLeave(ctx context.Context, repos *repository.Repositories, room *domain.Room) error {
	round, err := latestRound(ctx, repos, room.Code, true)
	if err != nil {
		return err
	}
	return closeVoteIfComplete(ctx, repos, room, round, &BallotResult{})
}

// CleanupRoom deletes an empty room. Already-gone rooms succeed.
func (s *RoomService) CleanupRoom(ctx context.Context, code string) error {
	code = domain.NormalizeRoomCode(code)
	return s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		if _, err := lockRoom(ctx, repos, code); err != nil {
			if errors.Is(err, ErrRoomNotFound) {
				return nil
			}
			return err
		}
		count, err := repos.Player.CountByRoomCode(ctx, code)
		if err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrPlayersStillPresent
		}
		if err := purgeRoom(ctx, repos, code); err != nil {
			return err
		}
		return notify(ctx, repos, code)
	})
}

// SweepEmptyRooms removes rooms that have had no players for at least idle.
func (s *RoomService) SweepEmptyRooms(ctx context.Context, idle time.Duration) (int, error) {
	codes, err := s.repos.Room.ListEmpty(ctx, now().Add(-idle))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, code := range codes {
		err := s.CleanupRoom(ctx, code)
		if errors.Is(err, domain.ErrPlayersStillPresent) {
			continue
		}
		if err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// UpdateSettings stores a host's settings change. Only the timer and theme
// are normalized here; outsider count is fitted to the table at start.
func (s *RoomService) UpdateSettings(ctx context.Context, code, nickname string, override *domain.SettingsOverride) (*domain.Room, error) {
	code = domain.NormalizeRoomCode(code)
	var room *domain.Room

	err := s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		var err error
		room, err = lockRoom(ctx, repos, code)
		if err != nil {
			return err
		}
		if room.HostNickname != nickname {
			return domain.ErrNotHost
		}
		if room.CurrentPhase != domain.PhaseLobby {
			return domain.ErrSettingsLocked
		}

		settings := room.Settings().Merge(override)
		settings.DrawingTimerSeconds = domain.NormalizeTimer(settings.DrawingTimerSeconds)
		settings.WordTheme = domain.NormalizeTheme(settings.WordTheme)
		if settings.OutsiderCount < 1 {
			settings.OutsiderCount = 1
		}
		if settings.OutsiderCount > 3 {
			settings.OutsiderCount = 3
		}
		room.ApplySettings(settings)

		if err := repos.Room.Update(ctx, room); err != nil {
			return fmt.Errorf("update room: %w", err)
		}
		return notify(ctx, repos, code)
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

type ReturnResult struct {
	Reset   bool
	Waiting int
}

// ReturnToLobby flags the player as back in the lobby. Only the host's call
// resets the room, and only once nobody is left waiting; the host's client
// repeats the call when the last straggler returns. The room lock plus the
// RESULTS -> LOBBY compare-and-set make it fire once.
func (s *RoomService) ReturnToLobby(ctx context.Context, code, nickname string) (*ReturnResult, error) {
	code = domain.NormalizeRoomCode(code)
	result := &ReturnResult{}

	err := s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		room, err := lockRoom(ctx, repos, code)
		if err != nil {
			return err
		}
		player, err := findPlayer(ctx, repos, code, nickname)
		if err != nil {
			return err
		}
		if !player.IsInLobby {
			player.IsInLobby = true
			if err := repos.Player.Update(ctx, player); err != nil {
				return err
			}
		}

		players, err := repos.Player.GetByRoomCode(ctx, code)
		if err != nil {
			return err
		}
		for _, p := range players {
			if !p.IsInLobby {
				result.Waiting++
			}
		}

		if result.Waiting == 0 && player.Nickname == room.HostNickname && room.CurrentPhase == domain.PhaseResults {
			if err := resetRoom(ctx, repos, room); err != nil {
				return err
			}
			result.Reset = true
		}
		return notify(ctx, repos, code)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Snapshot reads everything needed to render a room. It has no side effects
// and is safe to call at any rate.
func (s *RoomService) Snapshot(ctx context.Context, code string) (*domain.RoomSnapshot, error) {
	code = domain.NormalizeRoomCode(code)

	room, err := s.repos.Room.GetByCode(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}

	players, err := s.repos.Player.GetByRoomCode(ctx, code)
	if err != nil {
		return nil, err
	}
	snap := &domain.RoomSnapshot{Room: room, Players: players, TakenAt: now()}

	round, err := latestRound(ctx, s.repos, code, false)
	if err != nil && !errors.Is(err, ErrRoundNotFound) {
		return nil, err
	}
	if round == nil {
		return snap, nil
	}
	snap.Round = round

	if snap.Votes, err = s.repos.Vote.GetByRound(ctx, round.ID); err != nil {
		return nil, err
	}
	if snap.Accusations, err = s.repos.Accusation.GetByRoomCode(ctx, code); err != nil {
		return nil, err
	}
	if snap.DrawingNicknames, err = s.repos.Drawing.ListNicknames(ctx, code); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *RoomService) GetRoom(ctx context.Context, code string) (*domain.Room, error) {
	room, err := s.repos.Room.GetByCode(ctx, domain.NormalizeRoomCode(code))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return room, nil
}

// Drawings returns the current round's drawings once they are revealed.
func (s *RoomService) Drawings(ctx context.Context, code string) ([]*domain.Drawing, error) {
	code = domain.NormalizeRoomCode(code)
	room, err := s.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}

	switch room.CurrentPhase {
	case domain.PhaseReveal, domain.PhaseVote, domain.PhaseResults:
	default:
		return nil, domain.ErrDrawingsHidden
	}
	return s.repos.Drawing.GetByRoomCode(ctx, code)
}
