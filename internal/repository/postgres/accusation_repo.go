package postgres

import (
	"context"

	"github.com/dom/outsider-party/internal/domain"
	"gorm.io/gorm"
)

type accusationRepository struct {
	db *gorm.DB
}

func NewAccusationRepository(db *gorm.DB) *accusationRepository {
	return &accusationRepository{db: db}
}

// Create fails with gorm.ErrDuplicatedKey when the accuser already has one.
func (r *accusationRepository) Create(ctx context.Context, accusation *domain.Accusation) error {
	return r.db.WithContext(ctx).Create(accusation).Error
}

func (r *accusationRepository) GetByRoomCode(ctx context.Context, code string) ([]*domain.Accusation, error) {
	var accusations []*domain.Accusation
	err := r.db.WithContext(ctx).
		Where("room_code = ?", code).
		Order("created_at").
		Find(&accusations).Error
	if err != nil {
		return nil, err
	}
	return accusations, nil
}

func (r *accusationRepository) DeleteByRoomCode(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).Where("room_code = ?", code).Delete(&domain.Accusation{}).Error
}
