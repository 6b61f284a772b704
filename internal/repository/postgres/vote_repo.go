package postgres

import (
	"context"

	"github.com/dom/outsider-party/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type voteRepository struct {
	db *gorm.DB
}

func NewVoteRepository(db *gorm.DB) *voteRepository {
	return &voteRepository{db: db}
}

// Upsert replaces the voter's earlier ballot for the round, if any.
func (r *voteRepository) Upsert(ctx context.Context, vote *domain.Vote) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "round_id"}, {Name: "voter_nickname"}},
			DoUpdates: clause.AssignmentColumns([]string{"target_player_id", "weight", "updated_at"}),
		}).
		Create(vote).Error
}

func (r *voteRepository) GetByRound(ctx context.Context, roundID uuid.UUID) ([]*domain.Vote, error) {
	var votes []*domain.Vote
	err := r.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Order("created_at").
		Find(&votes).Error
	if err != nil {
		return nil, err
	}
	return votes, nil
}

func (r *voteRepository) GetByRoundAndVoter(ctx context.Context, roundID uuid.UUID, nickname string) (*domain.Vote, error) {
	var vote domain.Vote
	err := r.db.WithContext(ctx).
		Where("round_id = ? AND voter_nickname = ?", roundID, nickname).
		First(&vote).Error
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

func (r *voteRepository) DeleteByRound(ctx context.Context, roundID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("round_id = ?", roundID).Delete(&domain.Vote{}).Error
}

func (r *voteRepository) DeleteByRoomCode(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).Where("room_code = ?", code).Delete(&domain.Vote{}).Error
}
