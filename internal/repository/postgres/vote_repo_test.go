package postgres_test

import (
	"context"
	"testing"

	"github.com/dom/outsider-party/internal/domain"
	"github.com/dom/outsider-party/internal/repository/postgres"
	"github.com/dom/outsider-party/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestVoteRepository_Upsert(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewVoteRepository(testDB.DB)
	ctx := context.Background()

	room := testutil.NewRoomBuilder().WithHost("ana").Build(t, testDB.DB)
	round := testutil.NewRoundBuilder(room.Code).Build(t, testDB.DB)
	first, second := uuid.New(), uuid.New()

	require.NoError(t, repo.Upsert(ctx, &domain.Vote{
		RoomCode: room.Code, RoundID: round.ID, VoterNickname: "ana", TargetPlayerID: first, Weight: 2,
	}))
	require.NoError(t, repo.Upsert(ctx, &domain.Vote{
		RoomCode: room.Code, RoundID: round.ID, VoterNickname: "ana", TargetPlayerID: second, Weight: 2,
	}))
	require.NoError(t, repo.Upsert(ctx, &domain.Vote{
		RoomCode: room.Code, RoundID: round.ID, VoterNickname: "bo", TargetPlayerID: second, Weight: 1,
	}))

	votes, err := repo.GetByRound(ctx, round.ID)
	require.NoError(t, err)
	require.Len(t, votes, 2)

	ana, err := repo.GetByRoundAndVoter(ctx, round.ID, "ana")
	require.NoError(t, err)
	assert.Equal(t, second, ana.TargetPlayerID)
	assert.Equal(t, 2, ana.Weight)

	assert.Equal(t, 3, domain.TallyVotes(votes)[second])

	require.NoError(t, repo.DeleteByRound(ctx, round.ID))
	_, err = repo.GetByRoundAndVoter(ctx, round.ID, "ana")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAccusationRepository_OnePerGame(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewAccusationRepository(testDB.DB)
	ctx := context.Background()

	room := testutil.NewRoomBuilder().WithHost("ana").Build(t, testDB.DB)
	round := testutil.NewRoundBuilder(room.Code).Build(t, testDB.DB)

	accusation := func() *domain.Accusation {
		return &domain.Accusation{
			RoomCode:        room.Code,
			AccuserNickname: "ana",
			TargetPlayerID:  uuid.New(),
			RoundID:         round.ID,
		}
	}

	require.NoError(t, repo.Create(ctx, accusation()))
	err := repo.Create(ctx, accusation())
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	all, err := repo.GetByRoomCode(ctx, room.Code)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
