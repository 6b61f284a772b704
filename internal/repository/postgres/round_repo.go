package postgres

import (
	"context"
	"time"

	"github.com/dom/outsider-party/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type roundRepository struct {
	db *gorm.DB
}

func NewRoundRepository(db *gorm.DB) *roundRepository {
	return &roundRepository{db: db}
}

func (r *roundRepository) Create(ctx context.Context, round *domain.Round) error {
	return r.db.WithContext(ctx).Create(round).Error
}

func (r *roundRepository) GetLatest(ctx context.Context, code string) (*domain.Round, error) {
	var round domain.Round
	err := r.db.WithContext(ctx).
		Where("room_code = ?", code).
		Order("number DESC").
		First(&round).Error
	if err != nil {
		return nil, err
	}
	return &round, nil
}

func (r *roundRepository) LockLatest(ctx context.Context, code string) (*domain.Round, error) {
	var round domain.Round
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("room_code = ?", code).
		Order("number DESC").
		First(&round).Error
	if err != nil {
		return nil, err
	}
	return &round, nil
}

func (r *roundRepository) Update(ctx context.Context, round *domain.Round) error {
	return r.db.WithContext(ctx).Save(round).Error
}

func (r *roundRepository) SetDrawStartIfUnset(ctx context.Context, id uuid.UUID, ts time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Round{}).
		Where("id = ? AND draw_starts_at IS NULL", id).
		Update("draw_starts_at", ts)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *roundRepository) DeleteByRoomCode(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).Where("room_code = ?", code).Delete(&domain.Round{}).Error
}
