package postgres

import (
	"context"

	"github.com/dom/outsider-party/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type drawingRepository struct {
	db *gorm.DB
}

func NewDrawingRepository(db *gorm.DB) *drawingRepository {
	return &drawingRepository{db: db}
}

func (r *drawingRepository) Upsert(ctx context.Context, drawing *domain.Drawing) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "room_code"}, {Name: "nickname"}},
			DoUpdates: clause.AssignmentColumns([]string{"round_id", "content_type", "image_data", "updated_at"}),
		}).
		Create(drawing).Error
}

func (r *drawingRepository) GetByRoomCode(ctx context.Context, code string) ([]*domain.Drawing, error) {
	var drawings []*domain.Drawing
	err := r.db.WithContext(ctx).
		Where("room_code = ?", code).
		Order("created_at, nickname").
		Find(&drawings).Error
	if err != nil {
		return nil, err
	}
	return drawings, nil
}

func (r *drawingRepository) ListNicknames(ctx context.Context, code string) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&domain.Drawing{}).
		Where("room_code = ?", code).
		Order("nickname").
		Pluck("nickname", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (r *drawingRepository) DeleteByRoomCode(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).Where("room_code = ?", code).Delete(&domain.Drawing{}).Error
}
