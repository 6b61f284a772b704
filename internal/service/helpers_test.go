package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/outsider-party/internal/domain"
	"github.com/dom/outsider-party/internal/repository"
	"github.com/dom/outsider-party/internal/service"
	"github.com/dom/outsider-party/internal/testutil"
	"github.com/stretchr/testify/require"
)

type gameFixture struct {
	db       *testutil.TestDB
	repos    *repository.Repositories
	services *service.Services
	table    *testutil.Table
}

func newGame(t *testing.T, nicknames ...string) *gameFixture {
	t.Helper()

	db, services := testutil.NewTestServices(t)
	return &gameFixture{
		db:       db,
		repos:    db.Repositories(),
		services: services,
		table:    testutil.NewTable(t, services.Room, nicknames...),
	}
}

func (f *gameFixture) code() string {
	return f.table.Code
}

func (f *gameFixture) start(t *testing.T, override *domain.SettingsOverride) *service.StartResult {
	t.Helper()

	result, err := f.services.Game.StartGame(context.Background(), service.StartGameInput{
		Code:        f.code(),
		RequestedBy: f.table.Host,
		Settings:    override,
	})
	require.NoError(t, err)
	return result
}

// forceRoles replaces the random deal. Nicknames not listed become Civilians.
func (f *gameFixture) forceRoles(t *testing.T, roles map[string]domain.Role) {
	t.Helper()

	ctx := context.Background()
	for nickname, player := range f.table.Players {
		role, ok := roles[nickname]
		if !ok {
			role = domain.RoleCivilian
		}
		require.NoError(t, f.repos.Player.SetRole(ctx, player.ID, role))
	}
}

// toVote drives the current round from WORD or DRAW into VOTE.
func (f *gameFixture) toVote(t *testing.T) {
	t.Helper()

	ctx := context.Background()
	room, err := f.services.Room.GetRoom(ctx, f.code())
	require.NoError(t, err)

	if room.CurrentPhase == domain.PhaseWord {
		_, err := f.services.Game.SetDrawStart(ctx, f.code(), nil)
		require.NoError(t, err)
	}
	require.NoError(t, f.services.Game.EnterReveal(ctx, f.code()))
	require.NoError(t, f.services.Game.OpenVote(ctx, f.code(), f.table.Host))
	testutil.AssertPhase(t, f.repos, f.code(), domain.PhaseVote)
}

func (f *gameFixture) vote(t *testing.T, voter, target string) *service.BallotResult {
	t.Helper()

	result, err := f.services.Vote.CastVote(context.Background(), f.code(), voter, f.table.ID(target))
	require.NoError(t, err, "%s votes %s", voter, target)
	return result
}

func (f *gameFixture) verdict(t *testing.T) domain.GameVerdict {
	t.Helper()

	snap, err := f.services.Room.Snapshot(context.Background(), f.code())
	require.NoError(t, err)
	return domain.EvaluateGame(snap.Players, snap.Round)
}

func (f *gameFixture) player(t *testing.T, nickname string) *domain.Player {
	t.Helper()
	return testutil.RequirePlayer(t, f.repos, f.code(), nickname)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
