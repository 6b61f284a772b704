package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/outsider-party/internal/domain"
	"github.com/dom/outsider-party/internal/service"
	"github.com/dom/outsider-party/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomService_CreateRoom(t *testing.T) {
	_, services := testutil.NewTestServices(t)
	ctx := context.Background()

	result, err := services.Room.CreateRoom(ctx, "  ana  ")
	require.NoError(t, err)

	assert.True(t, domain.ValidRoomCode(result.Room.Code))
	assert.Equal(t, "ana", result.Room.HostNickname)
	assert.Equal(t, domain.PhaseLobby, result.Room.CurrentPhase)
	assert.Equal(t, "ana", result.Player.Nickname)
	assert.True(t, result.Player.IsHost)
	assert.True(t, result.IsNewHost)
	assert.NotEmpty(t, result.Token)

	claims, err := services.Session.Validate(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.Room.Code, claims.RoomCode)
	assert.Equal(t, "ana", claims.Nickname)

	_, err = services.Room.CreateRoom(ctx, "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidNickname)
}

func TestRoomService_Join(t *testing.T) {
	_, services := testutil.NewTestServices(t)
	ctx := context.Background()

	t.Run("first join creates the room", func(t *testing.T) {
		result, err := services.Room.Join(ctx, "abcde", "ana")
		require.NoError(t, err)
		assert.Equal(t, "ABCDE", result.Room.Code)
		assert.True(t, result.IsNewHost)
		assert.True(t, result.Player.IsHost)
	})

	t.Run("later joins are guests", func(t *testing.T) {
		result, err := services.Room.Join(ctx, "ABCDE", "bo")
		require.NoError(t, err)
		assert.False(t, result.IsNewHost)
		assert.False(t, result.Player.IsHost)
		assert.Equal(t, "ana", result.Room.HostNickname)
	})

	t.Run("rejoin keeps the same player", func(t *testing.T) {
		first, err := services.Room.Join(ctx, "ABCDE", "cy")
		require.NoError(t, err)
		again, err := services.Room.Join(ctx, "ABCDE", "cy")
		require.NoError(t, err)
		assert.Equal(t, first.Player.ID, again.Player.ID)
	})

	t.Run("bad input", func(t *testing.T) {
		_, err := services.Room.Join(ctx, "A!", "dee")
		assert.ErrorIs(t, err, domain.ErrInvalidRoomCode)

		_, err = services.Room.Join(ctx, "ABCDE", "this-nickname-is-far-too-long-to-fit")
		assert.ErrorIs(t, err, domain.ErrInvalidNickname)
	})
}

func TestRoomService_Leave(t *testing.T) {
	db, services := testutil.NewTestServices(t)
	repos := db.Repositories()
	ctx := context.Background()
	table := testutil.NewTable(t, services.Room, "ana", "bo", "cy")

	result, err := services.Room.Leave(ctx, table.Code, "ana")
	require.NoError(t, err)
	assert.False(t, result.RoomDeleted)
	assert.Equal(t, int64(2), result.Remaining)
	assert.Equal(t, "bo", result.NewHost)

	room, err := services.Room.GetRoom(ctx, table.Code)
	require.NoError(t, err)
	assert.Equal(t, "bo", room.HostNickname)
	assert.True(t, testutil.RequirePlayer(t, repos, table.Code, "bo").IsHost)

	result, err = services.Room.Leave(ctx, table.Code, "cy")
	require.NoError(t, err)
	assert.Empty(t, result.NewHost)

	// The last player out takes the room with them
	result, err = services.Room.Leave(ctx, table.Code, "bo")
	require.NoError(t, err)
	assert.True(t, result.RoomDeleted)

	_, err = services.Room.GetRoom(ctx, table.Code)
	assert.ErrorIs(t, err, service.ErrRoomNotFound)

	result, err = services.Room.Leave(ctx, table.Code, "bo")
	require.NoError(t, err)
	assert.False(t, result.RoomDeleted)
}

func TestRoomService_LeaveMidGameCascades(t *testing.T) {
	f := newGame(t, "ana", "bo", "cy")
	ctx := context.Background()
	f.start(t, nil)

	for _, nickname := range []string{"ana", "bo", "cy"} {
		_, err := f.services.Room.Leave(ctx, f.code(), nickname)
		require.NoError(t, err)
	}

	var rounds int64
	require.NoError(t, f.db.DB.Model(&domain.Round{}).Where("room_code = ?", f.code()).Count(&rounds).Error)
	assert.Zero(t, rounds)
}

func TestRoomService_CleanupRoom(t *testing.T) {
	db, services := testutil.NewTestServices(t)
	ctx := context.Background()
	table := testutil.NewTable(t, services.Room, "ana")

	err := services.Room.CleanupRoom(ctx, table.Code)
	assert.ErrorIs(t, err, domain.ErrPlayersStillPresent)

	empty := testutil.NewRoomBuilder().WithHost("gone").Build(t, db.DB)
	require.NoError(t, services.Room.CleanupRoom(ctx, empty.Code))
	_, err = services.Room.GetRoom(ctx, empty.Code)
	assert.ErrorIs(t, err, service.ErrRoomNotFound)

	// Already gone
	require.NoError(t, services.Room.CleanupRoom(ctx, empty.Code))
}

func TestRoomService_SweepEmptyRooms(t *testing.T) {
	db, services := testutil.NewTestServices(t)
	ctx := context.Background()

	stale := testutil.NewRoomBuilder().WithHost("gone").Build(t, db.DB)
	fresh := testutil.NewRoomBuilder().WithHost("gone").Build(t, db.DB)
	occupied := testutil.NewTable(t, services.Room, "ana")

	old := time.Now().Add(-time.Hour)
	for _, code := range []string{stale.Code, occupied.Code} {
		require.NoError(t, db.DB.Exec("UPDATE rooms SET updated_at = ? WHERE code = ?", old, code).Error)
	}

	removed, err := services.Room.SweepEmptyRooms(ctx, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = services.Room.GetRoom(ctx, stale.Code)
	assert.ErrorIs(t, err, service.ErrRoomNotFound)
	_, err = services.Room.GetRoom(ctx, fresh.Code)
	assert.NoError(t, err)
	_, err = services.Room.GetRoom(ctx, occupied.Code)
	assert.NoError(t, err)
}

func TestRoomService_UpdateSettings(t *testing.T) {
	f := newGame(t, "ana", "bo", "cy")
	ctx := context.Background()

	outsiders := 5
	timer := 45
	theme := "  Animals "
	dictator := true
	room, err := f.services.Room.UpdateSettings(ctx, f.code(), "ana", &domain.SettingsOverride{
		OutsiderCount:       &outsiders,
		DrawingTimerSeconds: &timer,
		WordTheme:           &theme,
		DictatorEnabled:     &dictator,
	})
	require.NoError(t, err)

	settings := room.Settings()
	assert.Equal(t, 3, settings.OutsiderCount)
	assert.Equal(t, 45, settings.DrawingTimerSeconds)
	assert.Equal(t, "animals", settings.WordTheme)
	assert.True(t, settings.DictatorEnabled)
	assert.False(t, settings.ChameleonEnabled)

	odd := 50
	room, err = f.services.Room.UpdateSettings(ctx, f.code(), "ana", &domain.SettingsOverride{DrawingTimerSeconds: &odd})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultTimerSeconds, room.DrawingTimerSeconds)

	_, err = f.services.Room.UpdateSettings(ctx, f.code(), "bo", &domain.SettingsOverride{DrawingTimerSeconds: &timer})
	assert.ErrorIs(t, err, domain.ErrNotHost)

	f.start(t, nil)
	_, err = f.services.Room.UpdateSettings(ctx, f.code(), "ana", &domain.SettingsOverride{DrawingTimerSeconds: &timer})
	assert.ErrorIs(t, err, domain.ErrSettingsLocked)
}

func TestRoomService_ReturnToLobby(t *testing.T) {
	f := newGame(t, "ana", "bo", "cy")
	ctx := context.Background()
	f.start(t, nil)
	f.forceRoles(t, map[string]domain.Role{"cy": domain.RoleOutsider})
	f.toVote(t)

	f.vote(t, "ana", "cy")
	f.vote(t, "bo", "cy")
	f.vote(t, "cy", "ana")
	assertPhase(t, f, domain.PhaseResults)

	first, err := f.services.Room.ReturnToLobby(ctx, f.code(), "ana")
	require.NoError(t, err)
	assert.False(t, first.Reset)
	assert.Equal(t, 2, first.Waiting)

	// Returning twice does not count twice
	again, err := f.services.Room.ReturnToLobby(ctx, f.code(), "ana")
	require.NoError(t, err)
	assert.Equal(t, 2, again.Waiting)

	_, err = f.services.Room.ReturnToLobby(ctx, f.code(), "bo")
	require.NoError(t, err)

	// The last guest back does not reset; that is the host's call
	guest, err := f.services.Room.ReturnToLobby(ctx, f.code(), "cy")
	require.NoError(t, err)
	assert.False(t, guest.Reset)
	assert.Zero(t, guest.Waiting)
	assertPhase(t, f, domain.PhaseResults)

	last, err := f.services.Room.ReturnToLobby(ctx, f.code(), "ana")
	require.NoError(t, err)
	assert.True(t, last.Reset)
	assert.Zero(t, last.Waiting)

	assertPhase(t, f, domain.PhaseLobby)
	cy := f.player(t, "cy")
	assert.False(t, cy.IsEliminated)
	assert.Equal(t, domain.RoleCivilian, cy.Role)

	_, err = f.services.Room.ReturnToLobby(ctx, f.code(), "ghost")
	assert.ErrorIs(t, err, service.ErrPlayerNotFound)
}

func TestRoomService_SnapshotRedaction(t *testing.T) {
	f := newGame(t, "ana", "bo", "cy", "dee")
	ctx := context.Background()
	f.start(t, nil)
	f.forceRoles(t, map[string]domain.Role{"dee": domain.RoleOutsider})

	snap, err := f.services.Room.Snapshot(ctx, f.code())
	require.NoError(t, err)
	require.NotNil(t, snap.Round)

	words := map[string]string{}
	for _, nickname := range []string{"ana", "dee"} {
		view := snap.ViewFor(nickname)
		require.NotNil(t, view.You)
		words[nickname] = view.You.Word
		for _, p := range view.Players {
			if p.Nickname == nickname {
				require.NotNil(t, p.Role)
				continue
			}
			assert.Nil(t, p.Role, "%s must not see %s's role", nickname, p.Nickname)
		}
	}
	assert.Equal(t, snap.Round.WordCivilian, words["ana"])
	assert.Equal(t, snap.Round.WordOutsider, words["dee"])
	assert.NotEqual(t, words["ana"], words["dee"])

	spectator := snap.ViewFor("")
	assert.Nil(t, spectator.You)
	for _, p := range spectator.Players {
		assert.Nil(t, p.Role)
	}

	_, err = f.services.Room.Snapshot(ctx, "QQQQQ")
	assert.ErrorIs(t, err, service.ErrRoomNotFound)
}

func TestRoomService_Drawings(t *testing.T) {
	f := newGame(t, "ana", "bo", "cy")
	ctx := context.Background()
	f.start(t, nil)

	_, err := f.services.Game.SetDrawStart(ctx, f.code(), nil)
	require.NoError(t, err)
	_, err = f.services.Game.SubmitDrawing(ctx, f.code(), "ana", "image/png", []byte("png-bytes"))
	require.NoError(t, err)

	_, err = f.services.Room.Drawings(ctx, f.code())
	assert.ErrorIs(t, err, domain.ErrDrawingsHidden)

	require.NoError(t, f.services.Game.EnterReveal(ctx, f.code()))
	drawings, err := f.services.Room.Drawings(ctx, f.code())
	require.NoError(t, err)
	require.Len(t, drawings, 1)
	assert.Equal(t, "ana", drawings[0].Nickname)
	assert.Equal(t, []byte("png-bytes"), drawings[0].ImageData)
}
