package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dom/outsider-party/internal/domain"
	"github.com/dom/outsider-party/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// VoteService collects ballots and resolves rounds.
type VoteService struct {
	repos *repository.Repositories
}

func NewVoteService(repos *repository.Repositories) *VoteService {
	return &VoteService{repos: repos}
}

type BallotResult struct {
	Weight        int
	BallotsCast   int
	BallotsNeeded int
	// Outcome is set when this ballot completed the vote.
	Outcome *domain.VoteOutcome
}

// CastVote records or replaces the voter's ballot. A retried vote keeps the
// weight of the first submission so a Dictator's double vote is spent once.
func (s *VoteService) CastVote(ctx context.Context, code, voterNickname string, targetID uuid.UUID) (*BallotResult, error) {
	code = domain.NormalizeRoomCode(code)
	result := &BallotResult{}

	err := s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		room, err := lockRoom(ctx, repos, code)
		if err != nil {
			return err
		}
		voter, err := findPlayer(ctx, repos, code, voterNickname)
		if err != nil {
			return err
		}
		if voter.ID == targetID {
			return domain.ErrSelfVote
		}
		if room.CurrentPhase != domain.PhaseVote {
			return domain.ErrVotingClosed
		}
		if voter.IsEliminated {
			return domain.ErrVoterEliminated
		}

		round, err := latestRound(ctx, repos, code, true)
		if err != nil {
			return err
		}
		players, err := repos.Player.GetByRoomCode(ctx, code)
		if err != nil {
			return err
		}
		target := domain.FindPlayerByID(players, targetID)
		if target == nil || target.IsEliminated || !round.InTieList(targetID) {
			return domain.ErrTargetNotEligible
		}

		accusations, err := repos.Accusation.GetByRoomCode(ctx, code)
		if err != nil {
			return err
		}
		for _, a := range accusations {
			if a.AccuserNickname == voter.Nickname && a.InBallot(round) {
				return domain.ErrBallotAlreadyCast
			}
		}

		weight := voter.VoteWeight()
		existing, err := repos.Vote.GetByRoundAndVoter(ctx, round.ID, voter.Nickname)
		switch {
		case err == nil:
			weight = existing.Weight
		case errors.Is(err, gorm.ErrRecordNotFound):
			if weight > 1 {
				voter.DictatorDoubleVoteActive = false
				if err := repos.Player.Update(ctx, voter); err != nil {
					return err
				}
			}
		default:
			return err
		}

		err = repos.Vote.Upsert(ctx, &domain.Vote{
			RoomCode:       code,
			RoundID:        round.ID,
			VoterNickname:  voter.Nickname,
			TargetPlayerID: targetID,
			Weight:         weight,
		})
		if err != nil {
			return fmt.Errorf("store vote: %w", err)
		}
		result.Weight = weight

		if err := closeVoteIfComplete(ctx, repos, room, round, result); err != nil {
			return err
		}
		return notify(ctx, repos, code)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CastAccusation spends the accuser's one accusation of the game. It stands
// in for the accuser's vote this round.
func (s *VoteService) CastAccusation(ctx context.Context, code, accuserNickname string, targetID uuid.UUID) (*BallotResult, error) {
	code = domain.NormalizeRoomCode(code)
	result := &BallotResult{}

	err := s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		room, err := lockRoom(ctx, repos, code)
		if err != nil {
			return err
		}
		accuser, err := findPlayer(ctx, repos, code, accuserNickname)
		if err != nil {
			return err
		}
		switch {
		case accuser.Role == domain.RoleChameleon:
			return domain.ErrChameleonCannotAccuse
		case accuser.HasUsedAccusation:
			return domain.ErrAccusationUsed
		case !room.ChameleonEnabled:
			return domain.ErrChameleonDisabled
		case accuser.ID == targetID:
			return domain.ErrSelfAccusation
		case room.CurrentPhase != domain.PhaseVote:
			return domain.ErrVotingClosed
		case accuser.IsEliminated:
			return domain.ErrVoterEliminated
		}

		round, err := latestRound(ctx, repos, code, true)
		if err != nil {
			return err
		}
		players, err := repos.Player.GetByRoomCode(ctx, code)
		if err != nil {
			return err
		}
		target := domain.FindPlayerByID(players, targetID)
		if target == nil || target.IsEliminated {
			return domain.ErrTargetNotEligible
		}

		_, err = repos.Vote.GetByRoundAndVoter(ctx, round.ID, accuser.Nickname)
		if err == nil {
			return domain.ErrBallotAlreadyCast
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		err = repos.Accusation.Create(ctx, &domain.Accusation{
			RoomCode:        code,
			AccuserNickname: accuser.Nickname,
			TargetPlayerID:  targetID,
			RoundID:         round.ID,
			RevoteIndex:     round.RevoteCount,
		})
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrAccusationUsed
		}
		if err != nil {
			return fmt.Errorf("store accusation: %w", err)
		}

		accuser.HasUsedAccusation = true
		if err := repos.Player.Update(ctx, accuser); err != nil {
			return err
		}

		if err := closeVoteIfComplete(ctx, repos, room, round, result); err != nil {
			return err
		}
		return notify(ctx, repos, code)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// closeVoteIfComplete counts ballots and, once every living player has one,
// moves the room to RESULTS and resolves in the same transaction. The room
// row must be locked.
func closeVoteIfComplete(ctx context.Context, repos *repository.Repositories, room *domain.Room, round *domain.Round, result *BallotResult) error {
	players, err := repos.Player.GetByRoomCode(ctx, round.RoomCode)
	if err != nil {
		return err
	}
	votes, err := repos.Vote.GetByRound(ctx, round.ID)
	if err != nil {
		return err
	}
	accusations, err := repos.Accusation.GetByRoomCode(ctx, round.RoomCode)
	if err != nil {
		return err
	}
	alive := domain.AlivePlayers(players)
	result.BallotsCast = len(domain.Ballots(round, votes, accusations, alive))
	result.BallotsNeeded = len(alive)
	if result.BallotsCast < result.BallotsNeeded {
		return nil
	}

	if err := setPhase(ctx, repos, room, domain.PhaseResults); err != nil {
		return err
	}
	outcome, err := resolveRound(ctx, repos, round)
	if err != nil {
		return err
	}
	result.Outcome = outcome
	return nil
}

// Resolve tallies the latest round. From VOTE it only closes voting once
// every living player has a ballot; in RESULTS it returns the recorded
// outcome.
func (s *VoteService) Resolve(ctx context.Context, code string) (*domain.VoteOutcome, error) {
	code = domain.NormalizeRoomCode(code)
	var outcome *domain.VoteOutcome

	err := s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		room, err := lockRoom(ctx, repos, code)
		if err != nil {
			return err
		}
		round, err := latestRound(ctx, repos, code, true)
		if err != nil {
			return err
		}

		switch room.CurrentPhase {
		case domain.PhaseResults:
			outcome, err = resolveRound(ctx, repos, round)
			if err != nil {
				return err
			}
			if outcome.AlreadyResolved {
				return nil
			}
		case domain.PhaseVote:
			count := &BallotResult{}
			if err := closeVoteIfComplete(ctx, repos, room, round, count); err != nil {
				return err
			}
			if count.Outcome == nil {
				return fmt.Errorf("%w: %d of %d ballots cast", domain.ErrBallotsPending, count.BallotsCast, count.BallotsNeeded)
			}
			outcome = count.Outcome
		default:
			return domain.CheckTransition(room.CurrentPhase, domain.PhaseResults)
		}
		return notify(ctx, repos, code)
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// resolveRound applies the tally to a locked round exactly once. A round
// that already carries a resolution returns it unchanged.
func resolveRound(ctx context.Context, repos *repository.Repositories, round *domain.Round) (*domain.VoteOutcome, error) {
	players, err := repos.Player.GetByRoomCode(ctx, round.RoomCode)
	if err != nil {
		return nil, err
	}

	if round.IsResolved() {
		o := round.StoredOutcome()
		o.AlreadyResolved = true
		fillOutcomeNames(&o, players)
		return &o, nil
	}

	votes, err := repos.Vote.GetByRound(ctx, round.ID)
	if err != nil {
		return nil, err
	}
	accusations, err := repos.Accusation.GetByRoomCode(ctx, round.RoomCode)
	if err != nil {
		return nil, err
	}

	counted := domain.CountedVotes(votes, domain.AlivePlayers(players))
	o, err := domain.DecideOutcome(domain.TallyVotes(counted), players, domain.AccusedTargets(accusations))
	if err != nil {
		return nil, err
	}

	switch o.Kind {
	case domain.ResolutionDictatorSurvived:
		dictator := domain.FindPlayerByID(players, *o.DictatorID)
		dictator.DictatorImmunityUsed = true
		dictator.DictatorDoubleVoteActive = true
		if err := repos.Player.Update(ctx, dictator); err != nil {
			return nil, err
		}
		if err := repos.Vote.DeleteByRound(ctx, round.ID); err != nil {
			return nil, err
		}
	case domain.ResolutionEliminated:
		target := domain.FindPlayerByID(players, *o.EliminatedPlayerID)
		target.IsEliminated = true
		if err := repos.Player.Update(ctx, target); err != nil {
			return nil, err
		}
	}

	round.ApplyOutcome(o, now())
	if err := repos.Round.Update(ctx, round); err != nil {
		return nil, fmt.Errorf("record outcome: %w", err)
	}

	log.Info().Str("room", round.RoomCode).Int("round", round.Number).
		Str("resolution", string(o.Kind)).Str("eliminated", o.EliminatedNickname).Msg("round resolved")
	return &o, nil
}

func fillOutcomeNames(o *domain.VoteOutcome, players []*domain.Player) {
	if o.EliminatedPlayerID != nil {
		if p := domain.FindPlayerByID(players, *o.EliminatedPlayerID); p != nil {
			o.EliminatedNickname = p.Nickname
		}
	}
	if o.DictatorSurvived && o.DictatorID == nil {
		for _, p := range players {
			if p.Role == domain.RoleDictator && p.DictatorImmunityUsed {
				id := p.ID
				o.DictatorID = &id
				break
			}
		}
	}
}
