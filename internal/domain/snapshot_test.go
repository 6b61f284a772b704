package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotFixture(phase Phase) *RoomSnapshot {
	now := time.Now()
	players := []*Player{
		{ID: uuid.New(), Nickname: "ana", Role: RoleCivilian, IsHost: true},
		{ID: uuid.New(), Nickname: "bo", Role: RoleOutsider},
		{ID: uuid.New(), Nickname: "cy", Role: RoleDictator, DictatorImmunityUsed: true},
		{ID: uuid.New(), Nickname: "di", Role: RoleChameleon, IsEliminated: true},
	}
	round := &Round{ID: uuid.New(), Number: 1, WordCivilian: "sun", WordOutsider: "moon", TimerSeconds: 60}
	return &RoomSnapshot{
		Room:    &Room{Code: "ABCDE", HostNickname: "ana", CurrentPhase: phase, ChameleonEnabled: true},
		Players: players,
		Round:   round,
		Votes:   []*Vote{{RoundID: round.ID, VoterNickname: "ana", TargetPlayerID: players[1].ID, Weight: 1}},
		TakenAt: now,
	}
}

func roleOf(v *RoomView, nickname string) *Role {
	for _, p := range v.Players {
		if p.Nickname == nickname {
			return p.Role
		}
	}
	return nil
}

func TestViewFor_Redaction(t *testing.T) {
	s := snapshotFixture(PhaseVote)

	v := s.ViewFor("bo")

	require.NotNil(t, v.You)
	assert.Equal(t, RoleOutsider, v.You.Role)
	assert.Equal(t, "moon", v.You.Word)

	assert.Nil(t, roleOf(v, "ana"), "other living players stay hidden")
	require.NotNil(t, roleOf(v, "bo"))
	require.NotNil(t, roleOf(v, "cy"), "spent dictator is public")
	assert.Equal(t, RoleDictator, *roleOf(v, "cy"))
	require.NotNil(t, roleOf(v, "di"), "eliminated players are public")
	assert.Equal(t, RoleChameleon, *roleOf(v, "di"))

	assert.True(t, v.Players[0].HasVoted)
	assert.False(t, v.Players[1].HasVoted)
}

func TestViewFor_AccusationCountsAsBallot(t *testing.T) {
	s := snapshotFixture(PhaseVote)
	s.Accusations = []*Accusation{{RoundID: s.Round.ID, AccuserNickname: "bo", TargetPlayerID: s.Players[2].ID}}

	v := s.ViewFor("ana")
	assert.True(t, v.Players[1].HasVoted)

	s.Round.RevoteCount = 1
	v = s.ViewFor("ana")
	assert.False(t, v.Players[1].HasVoted, "a revote opens a fresh ballot")
}

func TestViewFor_ChameleonSeesCivilianWord(t *testing.T) {
	s := snapshotFixture(PhaseDraw)
	s.Players[3].IsEliminated = false

	v := s.ViewFor("di")

	assert.Equal(t, "sun", v.You.Word)
	assert.False(t, v.You.CanAccuse)
}

func TestViewFor_Spectator(t *testing.T) {
	s := snapshotFixture(PhaseDraw)

	v := s.ViewFor("")

	assert.Nil(t, v.You)
	assert.Nil(t, roleOf(v, "ana"))
	assert.Nil(t, roleOf(v, "bo"))
	require.NotNil(t, v.Round)
	assert.Equal(t, int64(60000), v.Round.RemainingMs)
}

func TestViewFor_ResultsCarryVerdict(t *testing.T) {
	s := snapshotFixture(PhaseResults)
	now := time.Now()
	s.Round.ApplyOutcome(VoteOutcome{Kind: ResolutionEliminated, EliminatedPlayerID: &s.Players[1].ID}, now)
	s.Players[1].IsEliminated = true

	v := s.ViewFor("ana")

	require.NotNil(t, v.Round.Outcome)
	assert.Equal(t, "bo", v.Round.Outcome.EliminatedNickname)
	require.NotNil(t, v.Verdict)
	assert.Equal(t, VerdictCiviliansWin, v.Verdict.Verdict)
	assert.Equal(t, map[string]int{"bo": 1}, v.Tally)
}

func TestViewFor_LobbyHidesRoles(t *testing.T) {
	s := snapshotFixture(PhaseLobby)

	v := s.ViewFor("bo")

	assert.Nil(t, v.Round)
	assert.Nil(t, roleOf(v, "di"))
	assert.Empty(t, v.You.Word)
}
