package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/dom/outsider-party/internal/domain"
	"github.com/dom/outsider-party/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// GameService drives the round lifecycle: start, word reading, drawing,
// reveal, opening votes, next round and reset.
type GameService struct {
	repos *repository.Repositories
	words *WordService
	grace time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

func NewGameService(repos *repository.Repositories, words *WordService, grace time.Duration) *GameService {
	return &GameService{
		repos: repos,
		words: words,
		grace: grace,
		rng:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// SeedRand replaces the role shuffler's source.
func (s *GameService) SeedRand(seed1, seed2 uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng = rand.New(rand.NewPCG(seed1, seed2))
}

// requireHost passes for internal callers that leave requestedBy empty.
func requireHost(room *domain.Room, requestedBy string) error {
	if requestedBy != "" && requestedBy != room.HostNickname {
		return domain.ErrNotHost
	}
	return nil
}

type StartGameInput struct {
	Code        string
	RequestedBy string
	Settings    *domain.SettingsOverride
}

type StartResult struct {
	Round      *domain.Round
	Settings   domain.RoomSettings
	Assignment domain.RoleAssignment
}

// StartGame deals roles to the living players and opens round one in WORD.
func (s *GameService) StartGame(ctx context.Context, input StartGameInput) (*StartResult, error) {
	code := domain.NormalizeRoomCode(input.Code)
	result := &StartResult{}

	err := s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		room, err := lockRoom(ctx, repos, code)
		if err != nil {
			return err
		}
		if err := requireHost(room, input.RequestedBy); err != nil {
			return err
		}
		if err := domain.CheckTransition(room.CurrentPhase, domain.PhaseWord); err != nil {
			return err
		}

		players, err := repos.Player.GetByRoomCode(ctx, code)
		if err != nil {
			return err
		}
		alive := domain.AlivePlayers(players)
		if len(alive) < domain.MinPlayersToStart {
			return domain.ErrNotEnoughPlayers
		}

		settings := domain.NormalizeSettings(len(alive), room.Settings().Merge(input.Settings))

		if err := purgeGameData(ctx, repos, code); err != nil {
			return err
		}
		err = repos.Player.UpdateAll(ctx, code, false, map[string]interface{}{
			"role":                        domain.RoleCivilian,
			"is_eliminated":               false,
			"is_ready":                    false,
			"is_in_lobby":                 false,
			"has_used_accusation":         false,
			"dictator_immunity_used":      false,
			"dictator_double_vote_active": false,
		})
		if err != nil {
			return fmt.Errorf("reset players: %w", err)
		}

		ids := make([]uuid.UUID, len(alive))
		for i, p := range alive {
			ids[i] = p.ID
		}
		s.mu.Lock()
		assignment := domain.AssignRoles(s.rng, ids, settings)
		s.mu.Unlock()
		for id, role := range assignment.Specials() {
			if err := repos.Player.SetRole(ctx, id, role); err != nil {
				return fmt.Errorf("assign role: %w", err)
			}
		}

		pair, err := s.words.Pick(ctx, repos.WordPair, settings.WordTheme)
		if err != nil {
			return fmt.Errorf("pick words: %w", err)
		}

		number, err := nextRoundNumber(ctx, repos, code)
		if err != nil {
			return err
		}
		round := &domain.Round{
			RoomCode:     code,
			Number:       number,
			WordCivilian: pair.CivilianWord,
			WordOutsider: pair.OutsiderWord,
			TimerSeconds: settings.DrawingTimerSeconds,
		}
		if err := repos.Round.Create(ctx, round); err != nil {
			return fmt.Errorf("create round: %w", err)
		}

		room.ApplySettings(settings)
		if err := repos.Room.Update(ctx, room); err != nil {
			return err
		}
		if err := setPhase(ctx, repos, room, domain.PhaseWord); err != nil {
			return err
		}

		result.Round = round
		result.Settings = settings
		result.Assignment = assignment
		return notify(ctx, repos, code)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("room", code).Int("round", result.Round.Number).
		Int("outsiders", len(result.Assignment.Outsiders)).Msg("game started")
	return result, nil
}

func nextRoundNumber(ctx context.Context, repos *repository.Repositories, code string) (int, error) {
	prev, err := latestRound(ctx, repos, code, false)
	if errors.Is(err, ErrRoundNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return prev.Number + 1, nil
}

// AdvanceRound continues the game with the same words and roles. The new
// round opens straight in DRAW with a shared start a grace window ahead.
// A tie or an empty vote has to be settled by a revote first.
func (s *GameService) AdvanceRound(ctx context.Context, code, requestedBy string) (*domain.Round, error) {
	code = domain.NormalizeRoomCode(code)
	var round *domain.Round

	err := s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		room, err := lockRoom(ctx, repos, code)
		if err != nil {
			return err
		}
		if err := requireHost(room, requestedBy); err != nil {
			return err
		}
		if err := domain.CheckPath(room.CurrentPhase, domain.PhaseWord, domain.PhaseDraw); err != nil {
			return err
		}

		players, err := repos.Player.GetByRoomCode(ctx, code)
		if err != nil {
			return err
		}
		alive := domain.AlivePlayers(players)
		if len(alive) < domain.MinPlayersToContinue {
			return domain.ErrGameCannotContinue
		}

		prev, err := latestRound(ctx, repos, code, true)
		if err != nil {
			return err
		}
		if domain.EvaluateGame(players, prev).GameOver {
			return domain.ErrGameOver
		}
		if prev.Resolution == domain.ResolutionTie || prev.Resolution == domain.ResolutionNoVotes {
			return domain.ErrRevotePending
		}

		if err := purgeRoundData(ctx, repos, code); err != nil {
			return err
		}
		if err := repos.Player.UpdateAll(ctx, code, true, map[string]interface{}{"is_ready": false}); err != nil {
			return err
		}

		settings := domain.NormalizeSettings(len(alive), room.Settings())
		starts := now().Add(s.grace)
		round = &domain.Round{
			RoomCode:     code,
			Number:       prev.Number + 1,
			WordCivilian: prev.WordCivilian,
			WordOutsider: prev.WordOutsider,
			TimerSeconds: settings.DrawingTimerSeconds,
			DrawStartsAt: &starts,
		}
		if err := repos.Round.Create(ctx, round); err != nil {
			return fmt.Errorf("create round: %w", err)
		}

		room.ApplySettings(settings)
		if err := repos.Room.Update(ctx, room); err != nil {
			return err
		}
		ok, err := repos.Room.CompareAndSetPhase(ctx, code, domain.PhaseResults, domain.PhaseDraw)
		if err != nil {
			return err
		}
		if !ok {
			return &domain.TransitionError{From: room.CurrentPhase, To: domain.PhaseDraw}
		}
		room.CurrentPhase = domain.PhaseDraw
		return notify(ctx, repos, code)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("room", code).Int("round", round.Number).Msg("next round")
	return round, nil
}

type ReadyResult struct {
	AllReady     bool
	DrawStartsAt *time.Time
}

// MarkReady records that a player has read their word. When every living
// player is ready the drawing start is fixed and the room moves to DRAW.
func (s *GameService) MarkReady(ctx context.Context, code, nickname string) (*ReadyResult, error) {
	code = domain.NormalizeRoomCode(code)
	result := &ReadyResult{}

	err := s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		room, err := lockRoom(ctx, repos, code)
		if err != nil {
			return err
		}
		player, err := findPlayer(ctx, repos, code, nickname)
		if err != nil {
			return err
		}

		if room.CurrentPhase == domain.PhaseDraw {
			round, err := latestRound(ctx, repos, code, false)
			if err != nil {
				return err
			}
			result.AllReady = true
			result.DrawStartsAt = round.DrawStartsAt
			return nil
		}
		if room.CurrentPhase != domain.PhaseWord {
			return &domain.TransitionError{From: room.CurrentPhase, To: domain.PhaseDraw}
		}

		if !player.IsReady {
			player.IsReady = true
			if err := repos.Player.Update(ctx, player); err != nil {
				return err
			}
		}

		players, err := repos.Player.GetByRoomCode(ctx, code)
		if err != nil {
			return err
		}
		result.AllReady = true
		for _, p := range domain.AlivePlayers(players) {
			if !p.IsReady {
				result.AllReady = false
				break
			}
		}

		if result.AllReady {
			starts, err := s.beginDraw(ctx, repos, room, nil)
			if err != nil {
				return err
			}
			result.DrawStartsAt = &starts
		}
		return notify(ctx, repos, code)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetDrawStart fixes the shared drawing start. Only the first call writes;
// later calls get the stored value back. A nil ts means now plus the grace
// window.
func (s *GameService) SetDrawStart(ctx context.Context, code string, ts *time.Time) (time.Time, error) {
	code = domain.NormalizeRoomCode(code)
	var starts time.Time

	err := s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		room, err := lockRoom(ctx, repos, code)
		if err != nil {
			return err
		}
		if room.CurrentPhase != domain.PhaseWord && room.CurrentPhase != domain.PhaseDraw {
			return &domain.TransitionError{From: room.CurrentPhase, To: domain.PhaseDraw}
		}
		starts, err = s.beginDraw(ctx, repos, room, ts)
		if err != nil {
			return err
		}
		return notify(ctx, repos, code)
	})
	return starts, err
}

func (s *GameService) beginDraw(ctx context.Context, repos *repository.Repositories, room *domain.Room, ts *time.Time) (time.Time, error) {
	round, err := latestRound(ctx, repos, room.Code, true)
	if err != nil {
		return time.Time{}, err
	}

	starts := now().Add(s.grace)
	if ts != nil {
		starts = ts.UTC()
	}
	if round.DrawStartsAt != nil {
		starts = *round.DrawStartsAt
	} else {
		set, err := repos.Round.SetDrawStartIfUnset(ctx, round.ID, starts)
		if err != nil {
			return time.Time{}, err
		}
		if !set {
			fresh, err := latestRound(ctx, repos, room.Code, false)
			if err != nil {
				return time.Time{}, err
			}
			starts = *fresh.DrawStartsAt
		}
	}

	if room.CurrentPhase == domain.PhaseWord {
		if err := setPhase(ctx, repos, room, domain.PhaseDraw); err != nil {
			return time.Time{}, err
		}
	}
	return starts, nil
}

type DrawingResult struct {
	AllSubmitted bool
}

// SubmitDrawing stores or overwrites the player's drawing for the current
// round. The last living player's submission moves DRAW to REVEAL.
func (s *GameService) SubmitDrawing(ctx context.Context, code, nickname, contentType string, data []byte) (*DrawingResult, error) {
	if len(data) == 0 {
		return nil, domain.ErrEmptyDrawing
	}
	if len(data) > domain.MaxDrawingBytes {
		return nil, domain.ErrDrawingTooLarge
	}
	if contentType == "" {
		contentType = "image/png"
	}
	code = domain.NormalizeRoomCode(code)
	result := &DrawingResult{}

	err := s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		room, err := lockRoom(ctx, repos, code)
		if err != nil {
			return err
		}
		player, err := findPlayer(ctx, repos, code, nickname)
		if err != nil {
			return err
		}
		round, err := latestRound(ctx, repos, code, false)
		if err != nil {
			return err
		}

		err = repos.Drawing.Upsert(ctx, &domain.Drawing{
			RoomCode:    code,
			Nickname:    player.Nickname,
			RoundID:     round.ID,
			ContentType: contentType,
			ImageData:   data,
		})
		if err != nil {
			return fmt.Errorf("store drawing: %w", err)
		}

		if room.CurrentPhase == domain.PhaseDraw {
			players, err := repos.Player.GetByRoomCode(ctx, code)
			if err != nil {
				return err
			}
			names, err := repos.Drawing.ListNicknames(ctx, code)
			if err != nil {
				return err
			}
			drawn := make(map[string]bool, len(names))
			for _, n := range names {
				drawn[n] = true
			}
			result.AllSubmitted = true
			for _, p := range domain.AlivePlayers(players) {
				if !drawn[p.Nickname] {
					result.AllSubmitted = false
					break
				}
			}
			if result.AllSubmitted {
				if err := setPhase(ctx, repos, room, domain.PhaseReveal); err != nil {
					return err
				}
			}
		}
		return notify(ctx, repos, code)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// EnterReveal moves DRAW to REVEAL, typically when the timer runs out.
// Repeated calls after the move are no-ops.
func (s *GameService) EnterReveal(ctx context.Context, code string) error {
	code = domain.NormalizeRoomCode(code)
	return s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		room, err := lockRoom(ctx, repos, code)
		if err != nil {
			return err
		}
		if room.CurrentPhase == domain.PhaseReveal {
			return nil
		}
		if err := setPhase(ctx, repos, room, domain.PhaseReveal); err != nil {
			return err
		}
		return notify(ctx, repos, code)
	})
}

// OpenVote opens voting from REVEAL, or a revote from RESULTS after a tie or
// an empty vote. The round's votes are cleared either way; a revote keeps the
// tie list as the set of allowed targets.
func (s *GameService) OpenVote(ctx context.Context, code, requestedBy string) error {
	code = domain.NormalizeRoomCode(code)
	return s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		room, err := lockRoom(ctx, repos, code)
		if err != nil {
			return err
		}
		if room.CurrentPhase == domain.PhaseVote {
			return nil
		}
		if err := requireHost(room, requestedBy); err != nil {
			return err
		}
		if err := domain.CheckTransition(room.CurrentPhase, domain.PhaseVote); err != nil {
			return err
		}

		round, err := latestRound(ctx, repos, code, true)
		if err != nil {
			return err
		}
		if room.CurrentPhase == domain.PhaseResults {
			if round.Resolution != domain.ResolutionTie && round.Resolution != domain.ResolutionNoVotes {
				return domain.ErrNoTieToRevote
			}
			round.ReopenForRevote()
			if err := repos.Round.Update(ctx, round); err != nil {
				return err
			}
		}
		if err := repos.Vote.DeleteByRound(ctx, round.ID); err != nil {
			return err
		}

		if err := setPhase(ctx, repos, room, domain.PhaseVote); err != nil {
			return err
		}
		return notify(ctx, repos, code)
	})
}

// ResetToLobby ends the game. Calling it in the lobby is a no-op; the
// returned flag reports whether this call did the reset.
func (s *GameService) ResetToLobby(ctx context.Context, code, requestedBy string) (bool, error) {
	code = domain.NormalizeRoomCode(code)
	reset := false

	err := s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		room, err := lockRoom(ctx, repos, code)
		if err != nil {
			return err
		}
		if room.CurrentPhase == domain.PhaseLobby {
			return nil
		}
		if err := requireHost(room, requestedBy); err != nil {
			return err
		}
		if err := resetRoom(ctx, repos, room); err != nil {
			return err
		}
		reset = true
		return notify(ctx, repos, code)
	})
	return reset, err
}

// resetRoom moves RESULTS to LOBBY and wipes every game-scoped record and
// player flag. The room row must be locked.
func resetRoom(ctx context.Context, repos *repository.Repositories, room *domain.Room) error {
	if err := setPhase(ctx, repos, room, domain.PhaseLobby); err != nil {
		return err
	}
	if err := purgeGameData(ctx, repos, room.Code); err != nil {
		return err
	}
	if err := repos.Round.DeleteByRoomCode(ctx, room.Code); err != nil {
		return fmt.Errorf("purge rounds: %w", err)
	}
	err := repos.Player.UpdateAll(ctx, room.Code, false, map[string]interface{}{
		"role":                        domain.RoleCivilian,
		"is_eliminated":               false,
		"is_ready":                    false,
		"is_in_lobby":                 true,
		"has_used_accusation":         false,
		"dictator_immunity_used":      false,
		"dictator_double_vote_active": false,
	})
	if err != nil {
		return fmt.Errorf("reset players: %w", err)
	}
	log.Info().Str("room", room.Code).Msg("room reset to lobby")
	return nil
}
