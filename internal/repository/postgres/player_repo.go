package postgres

import (
	"context"

	"github.com/dom/outsider-party/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type playerRepository struct {
	db *gorm.DB
}

func NewPlayerRepository(db *gorm.DB) *playerRepository {
	return &playerRepository{db: db}
}

func (r *playerRepository) Create(ctx context.Context, player *domain.Player) error {
	return r.db.WithContext(ctx).Create(player).Error
}

func (r *playerRepository) GetByRoomAndNickname(ctx context.Context, code, nickname string) (*domain.Player, error) {
	var player domain.Player
	err := r.db.WithContext(ctx).
		Where("room_code = ? AND nickname = ?", code, nickname).
		First(&player).Error
	if err != nil {
		return nil, err
	}
	return &player, nil
}

func (r *playerRepository) GetByRoomCode(ctx context.Context, code string) ([]*domain.Player, error) {
	var players []*domain.Player
	err := r.db.WithContext(ctx).
		Where("room_code = ?", code).
		Order("joined_at, nickname").
		Find(&players).Error
	if err != nil {
		return nil, err
	}
	return players, nil
}

func (r *playerRepository) Update(ctx context.Context, player *domain.Player) error {
	return r.db.WithContext(ctx).Save(player).Error
}

func (r *playerRepository) UpdateAll(ctx context.Context, code string, aliveOnly bool, updates map[string]interface{}) error {
	q := r.db.WithContext(ctx).Model(&domain.Player{}).Where("room_code = ?", code)
	if aliveOnly {
		q = q.Where("is_eliminated = ?", false)
	}
	return q.Updates(updates).Error
}

func (r *playerRepository) SetRole(ctx context.Context, id uuid.UUID, role domain.Role) error {
	return r.db.WithContext(ctx).
		Model(&domain.Player{}).
		Where("id = ?", id).
		Update("role", role).Error
}

func (r *playerRepository) Delete(ctx context.Context, code, nickname string) error {
	return r.db.WithContext(ctx).
		Where("room_code = ? AND nickname = ?", code, nickname).
		Delete(&domain.Player{}).Error
}

func (r *playerRepository) DeleteByRoomCode(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).Where("room_code = ?", code).Delete(&domain.Player{}).Error
}

func (r *playerRepository) CountByRoomCode(ctx context.Context, code string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Player{}).Where("room_code = ?", code).Count(&count).Error
	return count, err
}
