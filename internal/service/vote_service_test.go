package service_test

import (
	"context"
	"testing"

	"github.com/dom/outsider-party/internal/domain"
	"github.com/dom/outsider-party/internal/service"
	"github.com/dom/outsider-party/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoteService_SelfVoteRejected(t *testing.T) {
	f := newGame(t, "ana", "bo", "cy")
	ctx := context.Background()
	f.start(t, nil)

	// Rejected in any phase, before anything else is checked
	_, err := f.services.Vote.CastVote(ctx, f.code(), "ana", f.table.ID("ana"))
	assert.ErrorIs(t, err, domain.ErrSelfVote)

	f.toVote(t)
	_, err = f.services.Vote.CastVote(ctx, f.code(), "ana", f.table.ID("ana"))
	assert.ErrorIs(t, err, domain.ErrSelfVote)

	var votes int64
	require.NoError(t, f.db.DB.Model(&domain.Vote{}).Where("room_code = ?", f.code()).Count(&votes).Error)
	assert.Zero(t, votes)
	assertPhase(t, f, domain.PhaseVote)
}

func TestVoteService_CastVoteRejections(t *testing.T) {
	f := newGame(t, "ana", "bo", "cy", "dee")
	ctx := context.Background()
	f.start(t, nil)

	_, err := f.services.Vote.CastVote(ctx, f.code(), "ana", f.table.ID("bo"))
	assert.ErrorIs(t, err, domain.ErrVotingClosed)

	f.toVote(t)

	_, err = f.services.Vote.CastVote(ctx, f.code(), "ana", uuid.New())
	assert.ErrorIs(t, err, domain.ErrTargetNotEligible)

	_, err = f.services.Vote.CastVote(ctx, f.code(), "ghost", f.table.ID("bo"))
	assert.ErrorIs(t, err, service.ErrPlayerNotFound)

	// Changing a vote replaces it
	first := f.vote(t, "ana", "bo")
	second := f.vote(t, "ana", "cy")
	assert.Equal(t, 1, first.BallotsCast)
	assert.Equal(t, 1, second.BallotsCast)
	assert.Equal(t, 4, second.BallotsNeeded)
}

func TestVoteService_EliminatedCannotVote(t *testing.T) {
	f := newGame(t, "ana", "bo", "cy", "dee", "eve")
	ctx := context.Background()
	f.start(t, nil)
	f.forceRoles(t, map[string]domain.Role{"eve": domain.RoleOutsider})
	f.toVote(t)

	f.vote(t, "ana", "bo")
	f.vote(t, "bo", "ana")
	f.vote(t, "cy", "bo")
	f.vote(t, "dee", "bo")
	f.vote(t, "eve", "bo")

	_, err := f.services.Game.AdvanceRound(ctx, f.code(), "ana")
	require.NoError(t, err)
	f.toVote(t)

	_, err = f.services.Vote.CastVote(ctx, f.code(), "bo", f.table.ID("ana"))
	assert.ErrorIs(t, err, domain.ErrVoterEliminated)

	_, err = f.services.Vote.CastVote(ctx, f.code(), "ana", f.table.ID("bo"))
	assert.ErrorIs(t, err, domain.ErrTargetNotEligible)
}

func TestVoteService_DictatorImmunity(t *testing.T) {
	f := newGame(t, "ana", "bo", "cy", "dee", "eve")
	ctx := context.Background()
	f.start(t, nil)
	f.forceRoles(t, map[string]domain.Role{
		"ana": domain.RoleDictator,
		"dee": domain.RoleOutsider,
	})
	f.toVote(t)

	// First time voted out: the Dictator survives
	f.vote(t, "ana", "bo")
	f.vote(t, "bo", "ana")
	f.vote(t, "cy", "ana")
	f.vote(t, "dee", "ana")
	last := f.vote(t, "eve", "ana")

	require.NotNil(t, last.Outcome)
	assert.Equal(t, domain.ResolutionDictatorSurvived, last.Outcome.Kind)
	assert.True(t, last.Outcome.DictatorSurvived)
	require.NotNil(t, last.Outcome.DictatorID)
	assert.Equal(t, f.table.ID("ana"), *last.Outcome.DictatorID)

	ana := f.player(t, "ana")
	assert.False(t, ana.IsEliminated)
	assert.True(t, ana.DictatorImmunityUsed)
	assert.True(t, ana.DictatorDoubleVoteActive)
	assert.True(t, ana.RoleRevealed())

	round, err := f.repos.Round.GetLatest(ctx, f.code())
	require.NoError(t, err)
	votes, err := f.repos.Vote.GetByRound(ctx, round.ID)
	require.NoError(t, err)
	assert.Empty(t, votes, "votes are cleared when the Dictator survives")
	assert.Equal(t, domain.NextActionNextRound, f.verdict(t).NextAction)

	// Next round: the double vote is spent on the first ballot only
	_, err = f.services.Game.AdvanceRound(ctx, f.code(), "ana")
	require.NoError(t, err)
	f.toVote(t)

	double := f.vote(t, "ana", "dee")
	assert.Equal(t, 2, double.Weight)
	assert.False(t, f.player(t, "ana").DictatorDoubleVoteActive)

	retry := f.vote(t, "ana", "dee")
	assert.Equal(t, 2, retry.Weight, "a changed vote keeps its weight")

	// Second time voted out: no immunity left
	f.vote(t, "bo", "ana")
	f.vote(t, "cy", "ana")
	f.vote(t, "dee", "ana")
	last = f.vote(t, "eve", "ana")

	require.NotNil(t, last.Outcome)
	assert.Equal(t, domain.ResolutionEliminated, last.Outcome.Kind)
	assert.Equal(t, "ana", last.Outcome.EliminatedNickname)
	assert.True(t, f.player(t, "ana").IsEliminated)
}

func TestVoteService_ChameleonUnaccusedWins(t *testing.T) {
	f := newGame(t, "ana", "bo", "cy", "dee")
	chameleon := true
	f.start(t, &domain.SettingsOverride{ChameleonEnabled: &chameleon})
	f.forceRoles(t, map[string]domain.Role{
		"cy":  domain.RoleChameleon,
		"dee": domain.RoleOutsider,
	})
	f.toVote(t)

	f.vote(t, "ana", "cy")
	f.vote(t, "bo", "cy")
	f.vote(t, "cy", "ana")
	last := f.vote(t, "dee", "cy")

	require.NotNil(t, last.Outcome)
	assert.True(t, last.Outcome.WasChameleon)
	assert.False(t, last.Outcome.ChameleonAccused)
	assert.True(t, last.Outcome.ChameleonWins)

	verdict := f.verdict(t)
	assert.Equal(t, domain.VerdictChameleonWins, verdict.Verdict)
	assert.True(t, verdict.GameOver)
}

func TestVoteService_ChameleonAccusedIsCaught(t *testing.T) {
	f := newGame(t, "ana", "bo", "cy", "dee", "eve")
	ctx := context.Background()
	chameleon := true
	f.start(t, &domain.SettingsOverride{ChameleonEnabled: &chameleon})
	f.forceRoles(t, map[string]domain.Role{
		"cy":  domain.RoleChameleon,
		"dee": domain.RoleOutsider,
	})
	f.toVote(t)

	_, err := f.services.Vote.CastAccusation(ctx, f.code(), "cy", f.table.ID("ana"))
	assert.ErrorIs(t, err, domain.ErrChameleonCannotAccuse)

	_, err = f.services.Vote.CastAccusation(ctx, f.code(), "bo", f.table.ID("bo"))
	assert.ErrorIs(t, err, domain.ErrSelfAccusation)

	accused, err := f.services.Vote.CastAccusation(ctx, f.code(), "bo", f.table.ID("cy"))
	require.NoError(t, err)
	assert.Equal(t, 1, accused.BallotsCast, "an accusation stands in for a vote")
	assert.True(t, f.player(t, "bo").HasUsedAccusation)

	_, err = f.services.Vote.CastVote(ctx, f.code(), "bo", f.table.ID("cy"))
	assert.ErrorIs(t, err, domain.ErrBallotAlreadyCast)

	f.vote(t, "ana", "cy")
	f.vote(t, "cy", "ana")
	f.vote(t, "dee", "cy")
	last := f.vote(t, "eve", "cy")

	require.NotNil(t, last.Outcome)
	assert.Equal(t, "cy", last.Outcome.EliminatedNickname)
	assert.True(t, last.Outcome.WasChameleon)
	assert.True(t, last.Outcome.ChameleonAccused)
	assert.False(t, last.Outcome.ChameleonWins)

	verdict := f.verdict(t)
	assert.Equal(t, domain.VerdictChameleonCaught, verdict.Verdict)
	assert.False(t, verdict.GameOver)

	// The accusation is spent for the rest of the game
	_, err = f.services.Game.AdvanceRound(ctx, f.code(), "ana")
	require.NoError(t, err)
	f.toVote(t)
	_, err = f.services.Vote.CastAccusation(ctx, f.code(), "bo", f.table.ID("dee"))
	assert.ErrorIs(t, err, domain.ErrAccusationUsed)
}

func TestVoteService_AccusationNeedsChameleonEnabled(t *testing.T) {
	f := newGame(t, "ana", "bo", "cy")
	f.start(t, nil)
	f.toVote(t)

	_, err := f.services.Vote.CastAccusation(context.Background(), f.code(), "ana", f.table.ID("bo"))
	assert.ErrorIs(t, err, domain.ErrChameleonDisabled)
}

func TestVoteService_TieAndRevote(t *testing.T) {
	f := newGame(t, "ana", "bo", "cy", "dee")
	ctx := context.Background()
	f.start(t, nil)
	f.forceRoles(t, map[string]domain.Role{"dee": domain.RoleOutsider})
	f.toVote(t)

	f.vote(t, "ana", "cy")
	f.vote(t, "bo", "dee")
	f.vote(t, "cy", "dee")
	last := f.vote(t, "dee", "cy")

	require.NotNil(t, last.Outcome)
	assert.Equal(t, domain.ResolutionTie, last.Outcome.Kind)
	assert.ElementsMatch(t, []uuid.UUID{f.table.ID("cy"), f.table.ID("dee")}, last.Outcome.TiePlayerIDs)
	assert.Equal(t, domain.NextActionRevote, f.verdict(t).NextAction)
	for nickname := range f.table.Players {
		assert.False(t, f.player(t, nickname).IsEliminated)
	}

	// The tie cannot be skipped by starting a new round
	_, err := f.services.Game.AdvanceRound(ctx, f.code(), "ana")
	assert.ErrorIs(t, err, domain.ErrRevotePending)
	assertPhase(t, f, domain.PhaseResults)

	require.NoError(t, f.services.Game.OpenVote(ctx, f.code(), "ana"))
	assertPhase(t, f, domain.PhaseVote)

	round, err := f.repos.Round.GetLatest(ctx, f.code())
	require.NoError(t, err)
	assert.Equal(t, 1, round.RevoteCount)
	assert.False(t, round.IsResolved())

	// Only the tied players can be voted for
	_, err = f.services.Vote.CastVote(ctx, f.code(), "ana", f.table.ID("bo"))
	assert.ErrorIs(t, err, domain.ErrTargetNotEligible)

	f.vote(t, "ana", "dee")
	f.vote(t, "bo", "dee")
	f.vote(t, "cy", "dee")
	last = f.vote(t, "dee", "cy")

	require.NotNil(t, last.Outcome)
	assert.Equal(t, domain.ResolutionEliminated, last.Outcome.Kind)
	assert.Equal(t, "dee", last.Outcome.EliminatedNickname)
	assert.Equal(t, domain.VerdictCiviliansWin, f.verdict(t).Verdict)

	err = f.services.Game.OpenVote(ctx, f.code(), "ana")
	assert.ErrorIs(t, err, domain.ErrNoTieToRevote)
}

func TestVoteService_ResolveIsIdempotent(t *testing.T) {
	f := newGame(t, "ana", "bo", "cy", "dee")
	ctx := context.Background()
	f.start(t, nil)
	f.forceRoles(t, map[string]domain.Role{"dee": domain.RoleOutsider})
	f.toVote(t)

	f.vote(t, "ana", "bo")
	f.vote(t, "cy", "bo")
	f.vote(t, "bo", "cy")
	last := f.vote(t, "dee", "bo")
	require.NotNil(t, last.Outcome)

	first, err := f.services.Vote.Resolve(ctx, f.code())
	require.NoError(t, err)
	assert.True(t, first.AlreadyResolved)
	assert.Equal(t, domain.ResolutionEliminated, first.Kind)
	assert.Equal(t, "bo", first.EliminatedNickname)
	assertPhase(t, f, domain.PhaseResults)

	second, err := f.services.Vote.Resolve(ctx, f.code())
	require.NoError(t, err)
	assert.True(t, second.AlreadyResolved)
	assert.Equal(t, first.Kind, second.Kind)
	assert.Equal(t, last.Outcome.EliminatedPlayerID, second.EliminatedPlayerID)
	assert.Equal(t, "bo", second.EliminatedNickname)

	var eliminated int64
	require.NoError(t, f.db.DB.Model(&domain.Player{}).
		Where("room_code = ? AND is_eliminated", f.code()).Count(&eliminated).Error)
	assert.Equal(t, int64(1), eliminated)
}

func TestVoteService_ResolveWaitsForEveryBallot(t *testing.T) {
	f := newGame(t, "ana", "bo", "cy", "dee")
	ctx := context.Background()
	f.start(t, nil)
	f.forceRoles(t, map[string]domain.Role{"dee": domain.RoleOutsider})
	f.toVote(t)

	_, err := f.services.Vote.Resolve(ctx, f.code())
	assert.ErrorIs(t, err, domain.ErrBallotsPending)
	assertPhase(t, f, domain.PhaseVote)

	f.vote(t, "ana", "bo")
	f.vote(t, "cy", "bo")

	_, err = f.services.Vote.Resolve(ctx, f.code())
	assert.ErrorIs(t, err, domain.ErrBallotsPending)
	assertPhase(t, f, domain.PhaseVote)
	assert.False(t, f.player(t, "bo").IsEliminated)

	round, err := f.repos.Round.GetLatest(ctx, f.code())
	require.NoError(t, err)
	assert.False(t, round.IsResolved())
}

func TestVoteService_LeaveDuringVote(t *testing.T) {
	f := newGame(t, "ana", "bo", "cy", "dee")
	ctx := context.Background()
	f.start(t, nil)
	f.forceRoles(t, map[string]domain.Role{"dee": domain.RoleOutsider})
	f.toVote(t)

	f.vote(t, "ana", "cy")
	f.vote(t, "bo", "dee")
	f.vote(t, "dee", "ana")

	// ana's vote named cy and stops counting once cy is gone
	left, err := f.services.Room.Leave(ctx, f.code(), "cy")
	require.NoError(t, err)
	assert.False(t, left.VoteClosed)
	assertPhase(t, f, domain.PhaseVote)

	_, err = f.services.Vote.Resolve(ctx, f.code())
	assert.ErrorIs(t, err, domain.ErrBallotsPending)

	last := f.vote(t, "ana", "dee")
	require.NotNil(t, last.Outcome)
	assert.Equal(t, 3, last.BallotsNeeded)
	assert.Equal(t, "dee", last.Outcome.EliminatedNickname)
	assertPhase(t, f, domain.PhaseResults)
}

func TestVoteService_LeaveCompletesVote(t *testing.T) {
	f := newGame(t, "ana", "bo", "cy", "dee")
	ctx := context.Background()
	f.start(t, nil)
	f.forceRoles(t, map[string]domain.Role{"dee": domain.RoleOutsider})
	f.toVote(t)

	f.vote(t, "ana", "dee")
	f.vote(t, "bo", "dee")
	f.vote(t, "dee", "ana")

	left, err := f.services.Room.Leave(ctx, f.code(), "cy")
	require.NoError(t, err)
	assert.True(t, left.VoteClosed)
	assertPhase(t, f, domain.PhaseResults)
	assert.True(t, f.player(t, "dee").IsEliminated)
	assert.Equal(t, domain.VerdictCiviliansWin, f.verdict(t).Verdict)
}

func TestVoteService_ResolveGuards(t *testing.T) {
	db, services := testutil.NewTestServices(t)
	ctx := context.Background()

	_, err := services.Vote.Resolve(ctx, "ZZZZZ")
	assert.ErrorIs(t, err, service.ErrRoomNotFound)

	table := testutil.NewTable(t, services.Room, "ana", "bo", "cy")
	_, err = services.Vote.Resolve(ctx, table.Code)
	assert.ErrorIs(t, err, service.ErrRoundNotFound)

	// A stray round in the lobby still cannot jump to RESULTS
	testutil.NewRoundBuilder(table.Code).Build(t, db.DB)
	_, err = services.Vote.Resolve(ctx, table.Code)
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
	testutil.AssertPhase(t, db.Repositories(), table.Code, domain.PhaseLobby)
}
